package linear_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/linear"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

func newRenderer(t *testing.T) (r *linear.Renderer, stdout, stderr *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	stdout, stderr = new(bytes.Buffer), new(bytes.Buffer)
	return linear.NewRenderer(stdout, stderr), stdout, stderr
}

func TestRenderer_TaskLifecycle(t *testing.T) {
	r, stdout, stderr := newRenderer(t)
	require.NoError(t, r.Start(context.Background()))

	r.OnPlanEmit([]string{"clean", "html"}, map[string][]string{"html": {"clean"}}, []string{"build"})
	assert.Contains(t, stderr.String(), "Using 2 task(s) for [build]")

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local)
	r.OnTaskStart("span1", "", "html", start)
	assert.Contains(t, stderr.String(), "[10:00:00] Starting 'html'...")

	r.OnTaskLog("span1", []byte("wrote app/html/index.html\n"))
	assert.Equal(t, "[html] wrote app/html/index.html\n", stdout.String())

	r.OnTaskComplete("span1", start.Add(12*time.Millisecond), nil)
	assert.Contains(t, stderr.String(), "Finished 'html' after 12 ms")

	require.NoError(t, r.Stop())
}

func TestRenderer_PartialLines(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("span1", "", "style", start)

	r.OnTaskLog("span1", []byte("partial"))
	assert.Empty(t, stdout.String())

	r.OnTaskLog("span1", []byte(" line\n"))
	assert.Equal(t, "[style] partial line\n", stdout.String())

	r.OnTaskLog("span1", []byte("unflushed"))
	r.OnTaskComplete("span1", start.Add(time.Millisecond), nil)
	assert.Contains(t, stdout.String(), "[style] unflushed\n")
}

func TestRenderer_TaskError(t *testing.T) {
	r, _, stderr := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("span1", "", "style", start)
	r.OnTaskComplete("span1", start.Add(3*time.Millisecond), zerr.New("compile failed"))

	assert.Contains(t, stderr.String(), "'style' errored after 3 ms: compile failed")
}

func TestRenderer_SkippedTask(t *testing.T) {
	r, _, stderr := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("span1", "", "style", start)
	r.OnTaskComplete("span1", start, domain.ErrDependencyFailed)

	assert.Contains(t, stderr.String(), "Skipped 'style' because a dependency failed")
	assert.NotContains(t, stderr.String(), "errored")
}

func TestRenderer_ConcurrentTasksKeepPrefixes(t *testing.T) {
	r, stdout, _ := newRenderer(t)

	start := time.Now()
	r.OnTaskStart("span1", "", "images", start)
	r.OnTaskStart("span2", "", "fonts", start)

	r.OnTaskLog("span1", []byte("a.png\n"))
	r.OnTaskLog("span2", []byte("b.woff2\n"))
	r.OnTaskLog("span1", []byte("c.png\n"))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Equal(t, []string{"[images] a.png", "[fonts] b.woff2", "[images] c.png"}, lines)
}

func TestRenderer_UnknownSpanIgnored(t *testing.T) {
	r, stdout, stderr := newRenderer(t)

	r.OnTaskLog("missing", []byte("dropped\n"))
	r.OnTaskComplete("missing", time.Now(), nil)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{850 * time.Microsecond, "850 μs"},
		{12 * time.Millisecond, "12 ms"},
		{1500 * time.Millisecond, "1.50 s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, linear.FormatDuration(tt.in))
	}
}
