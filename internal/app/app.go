// Package app implements the application layer for kiln.
package app

import (
	"context"
	"fmt"

	"go.trai.ch/kiln/internal/adapters/devserver"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.trai.ch/kiln/internal/pipeline"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	scheduler    *scheduler.Scheduler
	renderer     ports.Renderer
	watchers     ports.WatcherFactory
	logger       ports.Logger
	opener       func(url string) error
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	sched *scheduler.Scheduler,
	renderer ports.Renderer,
	watchers ports.WatcherFactory,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		scheduler:    sched,
		renderer:     renderer,
		watchers:     watchers,
		logger:       log,
	}
}

// WithOpener replaces the function the dev server uses to open a browser.
func (a *App) WithOpener(open func(url string) error) *App {
	a.opener = open
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// ConfigPath is the project configuration file.
	ConfigPath string
	// Port overrides the dev server port when non-zero.
	Port int
	// Open opens the browser at the start path when set.
	Open bool
}

// Run executes target. Task targets run once through the scheduler; watch,
// serve, dev and default run until ctx is cancelled.
func (a *App) Run(ctx context.Context, target string, opts RunOptions) error {
	if opts.ConfigPath == "" {
		opts.ConfigPath = domain.ConfigFileName
	}
	cfg, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}
	if opts.Port != 0 {
		if opts.Port < 1 || opts.Port > 65535 {
			return zerr.With(domain.ErrInvalidPort, "port", opts.Port)
		}
		cfg.Server.Port = opts.Port
	}
	if opts.Open {
		cfg.Server.Open = true
	}

	if err := a.renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = a.renderer.Stop() }()

	switch target {
	case domain.TaskWatch:
		return a.watch(ctx, cfg)
	case domain.TaskServe:
		return a.serve(ctx, cfg)
	case domain.TaskDev, domain.TaskDefault:
		return a.dev(ctx, cfg)
	default:
		return a.build(ctx, cfg, target)
	}
}

// build runs a task target and everything it depends on.
func (a *App) build(ctx context.Context, cfg *domain.Config, target string) error {
	graph, err := pipeline.Plan(target, cfg)
	if err != nil {
		return err
	}
	// Task failures come back joined with domain.ErrBuildExecutionFailed,
	// plan errors bare so the CLI logs them.
	return a.scheduler.Run(ctx, graph, cfg, []string{target})
}

// serve runs the dev server until ctx is cancelled.
func (a *App) serve(ctx context.Context, cfg *domain.Config) error {
	srv := devserver.New(cfg, a.watchers, a.logger)
	if a.opener != nil {
		srv = srv.WithOpener(a.opener)
	}
	return srv.Serve(ctx)
}

// dev builds once, then watches and serves concurrently. A failed build is
// reported but does not stop the watch loop, so the next save can fix it.
func (a *App) dev(ctx context.Context, cfg *domain.Config) error {
	if err := a.build(ctx, cfg, domain.TaskBuild); err != nil {
		if ctx.Err() != nil {
			return err
		}
		a.logger.Warn(fmt.Sprintf("initial build failed, watching for changes (mode %s)", cfg.Mode))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.watch(ctx, cfg) })
	g.Go(func() error { return a.serve(ctx, cfg) })
	return g.Wait()
}
