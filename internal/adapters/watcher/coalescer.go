package watcher

import "sync"

// Coalescer serializes runs of one task. A trigger that arrives while a run
// is in flight schedules exactly one follow-up run, however many arrive.
type Coalescer struct {
	run func()

	mu      sync.Mutex
	running bool
	pending bool
	wg      sync.WaitGroup
}

// NewCoalescer creates a Coalescer around run.
func NewCoalescer(run func()) *Coalescer {
	return &Coalescer{run: run}
}

// Trigger starts a run, or marks a follow-up when one is already running.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.pending = true
		return
	}
	c.running = true
	c.wg.Add(1)
	go c.loop()
}

// Wait blocks until no run is in flight or scheduled.
func (c *Coalescer) Wait() {
	c.wg.Wait()
}

func (c *Coalescer) loop() {
	defer c.wg.Done()

	for {
		c.run()

		c.mu.Lock()
		if !c.pending {
			c.running = false
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}
