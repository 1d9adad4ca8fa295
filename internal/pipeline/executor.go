package pipeline

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/pipeline/clean"
	"go.trai.ch/kiln/internal/pipeline/fonts"
	"go.trai.ch/kiln/internal/pipeline/html"
	"go.trai.ch/kiln/internal/pipeline/images"
	"go.trai.ch/kiln/internal/pipeline/incremental"
	"go.trai.ch/kiln/internal/pipeline/script"
	"go.trai.ch/kiln/internal/pipeline/sprite"
	"go.trai.ch/kiln/internal/pipeline/style"
	"go.trai.ch/zerr"
)

// Runner performs one task against a configuration.
type Runner interface {
	Run(ctx context.Context, cfg *domain.Config, out io.Writer) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cfg *domain.Config, out io.Writer) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	return f(ctx, cfg, out)
}

// Executor implements ports.Executor by dispatching on the task name.
type Executor struct {
	runners map[string]Runner
}

// NewExecutor wires every task implementation. Per-file failures go to
// notifier. The incremental tasks share one run history for the lifetime
// of the executor and clean resets it.
func NewExecutor(notifier ports.Notifier) *Executor {
	history := incremental.NewHistory()
	cleaner := func(ctx context.Context, cfg *domain.Config, out io.Writer) error {
		if err := clean.Run(ctx, cfg, out); err != nil {
			return err
		}
		history.Reset()
		return nil
	}
	return NewExecutorWithRunners(map[string]Runner{
		domain.TaskClean:  RunnerFunc(cleaner),
		domain.TaskHTML:   html.New(notifier),
		domain.TaskStyle:  style.New(notifier),
		domain.TaskJS:     script.New(notifier),
		domain.TaskImages: images.New(notifier, history),
		domain.TaskSVG:    sprite.New(notifier),
		domain.TaskFonts:  fonts.New(notifier, history),
	})
}

// NewExecutorWithRunners creates an Executor from explicit runners.
func NewExecutorWithRunners(runners map[string]Runner) *Executor {
	return &Executor{runners: runners}
}

// Execute runs the task's implementation. Composite tasks do nothing.
func (e *Executor) Execute(ctx context.Context, task *domain.Task, cfg *domain.Config, out io.Writer) error {
	if task.Kind == domain.KindComposite {
		return nil
	}
	runner, ok := e.runners[task.Name]
	if !ok {
		return zerr.With(domain.ErrNoRunner, "task", task.Name)
	}
	return runner.Run(ctx, cfg, out)
}
