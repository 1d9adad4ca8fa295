package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for task output rendering.
// It decouples telemetry collection from presentation so the scheduler never
// writes to the terminal directly.
//
//go:generate go run go.uber.org/mock/mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop flushes any buffered output.
	Stop() error

	// OnPlanEmit is called when the scheduler has planned a run.
	// tasks: all task names in execution order
	// deps: dependency map (task -> list of dependencies)
	// targets: the user-requested targets
	OnPlanEmit(tasks []string, deps map[string][]string, targets []string)

	// OnTaskStart is called when a task begins execution.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a task emits output. data may hold partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task finishes; err is nil on success.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
