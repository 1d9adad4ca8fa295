package watcher_test

import (
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/kiln/internal/adapters/watcher"
)

func TestCoalescer_SingleTrigger(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var runs atomic.Int32
		c := watcher.NewCoalescer(func() { runs.Add(1) })

		c.Trigger()
		c.Wait()

		assert.Equal(t, int32(1), runs.Load())
	})
}

func TestCoalescer_TriggersDuringRunCollapseIntoOneFollowUp(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var runs atomic.Int32
		c := watcher.NewCoalescer(func() {
			runs.Add(1)
			time.Sleep(100 * time.Millisecond)
		})

		c.Trigger()
		synctest.Wait()
		for range 5 {
			c.Trigger()
		}
		c.Wait()

		assert.Equal(t, int32(2), runs.Load())
	})
}

func TestCoalescer_NeverOverlaps(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var active, maxActive atomic.Int32
		c := watcher.NewCoalescer(func() {
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
		})

		for range 10 {
			c.Trigger()
			time.Sleep(3 * time.Millisecond)
		}
		c.Wait()

		assert.Equal(t, int32(1), maxActive.Load())
	})
}

func TestCoalescer_TriggerAfterIdleStartsNewRun(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var runs atomic.Int32
		c := watcher.NewCoalescer(func() { runs.Add(1) })

		c.Trigger()
		c.Wait()
		c.Trigger()
		c.Wait()

		assert.Equal(t, int32(2), runs.Load())
	})
}
