package app_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/core/ports/mocks"
	"go.trai.ch/kiln/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type appMocks struct {
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	renderer *mocks.MockRenderer
	logger   *mocks.MockLogger
	events   chan ports.WatchEvent
}

// executed records task names in the order the executor saw them.
type executed struct {
	mu    sync.Mutex
	names []string
}

func (e *executed) record(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, name)
}

func (e *executed) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, got := range e.names {
		if got == name {
			n++
		}
	}
	return n
}

func setupApp(t *testing.T, cfg *domain.Config) (*app.App, *appMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := &appMocks{
		loader:   mocks.NewMockConfigLoader(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		renderer: mocks.NewMockRenderer(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		events:   make(chan ports.WatchEvent, 8),
	}

	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)
	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		}).AnyTimes()
	tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()

	m.loader.EXPECT().Load(gomock.Any()).Return(cfg, nil).AnyTimes()
	m.renderer.EXPECT().Start(gomock.Any()).Return(nil).AnyTimes()
	m.renderer.EXPECT().Stop().Return(nil).AnyTimes()
	m.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	watchers := func() (ports.Watcher, error) {
		w := mocks.NewMockWatcher(ctrl)
		w.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		var once sync.Once
		w.EXPECT().Stop().DoAndReturn(func() error {
			once.Do(func() { close(m.events) })
			return nil
		}).AnyTimes()
		w.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
			for e := range m.events {
				if !yield(e) {
					return
				}
			}
		})).AnyTimes()
		return w, nil
	}

	sched := scheduler.NewScheduler(m.executor, tracer)
	a := app.New(m.loader, sched, m.renderer, watchers, m.logger).WithOpener(func(string) error { return nil })
	return a, m
}

func newConfig(t *testing.T) *domain.Config {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.Server.Port = 0
	return &cfg
}

func TestApp_Run_Task(t *testing.T) {
	cfg := newConfig(t)
	a, m := setupApp(t, cfg)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), cfg, gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ *domain.Config, _ io.Writer) error {
			assert.Equal(t, domain.TaskJS, task.Name)
			assert.Equal(t, cfg.Paths.JS.Src, task.Inputs)
			return nil
		})

	require.NoError(t, a.Run(context.Background(), domain.TaskJS, app.RunOptions{}))
}

func TestApp_Run_BuildRunsCleanFirst(t *testing.T) {
	cfg := newConfig(t)
	a, m := setupApp(t, cfg)

	var mu sync.Mutex
	var order []string
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ *domain.Config, _ io.Writer) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, task.Name)
			return nil
		}).Times(8)

	require.NoError(t, a.Run(context.Background(), domain.TaskBuild, app.RunOptions{}))
	require.Len(t, order, 8)
	assert.Equal(t, domain.TaskClean, order[0])
	assert.Equal(t, domain.TaskBuild, order[7])
	assert.Less(t, indexOf(order, domain.TaskSVG), indexOf(order, domain.TaskStyle))
}

func TestApp_Run_ProductionBuildStylesAfterDegradedHTML(t *testing.T) {
	cfg := newConfig(t)
	cfg.Mode = domain.ModeProduction
	a, m := setupApp(t, cfg)

	runs := &executed{}
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ *domain.Config, _ io.Writer) error {
			runs.record(task.Name)
			if task.Name == domain.TaskHTML {
				return domain.ErrTaskDegraded
			}
			return nil
		}).Times(8)

	err := a.Run(context.Background(), domain.TaskBuild, app.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.Equal(t, 1, runs.count(domain.TaskStyle))
	assert.Equal(t, 1, runs.count(domain.TaskBuild))
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestApp_Run_TaskFailure(t *testing.T) {
	cfg := newConfig(t)
	a, m := setupApp(t, cfg)

	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("boom"))

	err := a.Run(context.Background(), domain.TaskHTML, app.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestApp_Run_UnknownTask(t *testing.T) {
	cfg := newConfig(t)
	a, _ := setupApp(t, cfg)

	err := a.Run(context.Background(), "deploy", app.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrTaskNotFound.Error())
	assert.NotErrorIs(t, err, domain.ErrBuildExecutionFailed)
}

func TestApp_Run_InvalidPort(t *testing.T) {
	cfg := newConfig(t)
	a, _ := setupApp(t, cfg)

	err := a.Run(context.Background(), domain.TaskServe, app.RunOptions{Port: 70000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrInvalidPort.Error())
}

func TestApp_Run_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(domain.ConfigFileName).Return(nil, domain.ErrConfigParseFailed)

	a := app.New(loader, nil, mocks.NewMockRenderer(ctrl), nil, mocks.NewMockLogger(ctrl))
	err := a.Run(context.Background(), domain.TaskBuild, app.RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrConfigParseFailed.Error())
}

func TestApp_Watch_RerunsMatchingCategoryOnly(t *testing.T) {
	cfg := newConfig(t)
	a, m := setupApp(t, cfg)

	runs := &executed{}
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ *domain.Config, _ io.Writer) error {
			runs.record(task.Name)
			return nil
		}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx, domain.TaskWatch, app.RunOptions{}) }()

	m.events <- ports.WatchEvent{Path: filepath.Join(cfg.Root, "dev", "js", "lib", "util.js"), Operation: ports.OpWrite}
	m.events <- ports.WatchEvent{Path: filepath.Join(cfg.Root, "dev", "js", "main.js"), Operation: ports.OpWrite}

	require.Eventually(t, func() bool { return runs.count(domain.TaskJS) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, 1, runs.count(domain.TaskJS))
	assert.Zero(t, runs.count(domain.TaskStyle))
	assert.Zero(t, runs.count(domain.TaskClean))
}

func TestApp_Watch_KeepsRunningAfterTaskFailure(t *testing.T) {
	cfg := newConfig(t)
	a, m := setupApp(t, cfg)
	m.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	runs := &executed{}
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ *domain.Config, _ io.Writer) error {
			runs.record(task.Name)
			return domain.ErrTaskDegraded
		}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx, domain.TaskWatch, app.RunOptions{}) }()

	m.events <- ports.WatchEvent{Path: filepath.Join(cfg.Root, "dev", "scss", "main.scss"), Operation: ports.OpWrite}
	require.Eventually(t, func() bool { return runs.count(domain.TaskStyle) == 1 }, 2*time.Second, 10*time.Millisecond)

	m.events <- ports.WatchEvent{Path: filepath.Join(cfg.Root, "dev", "scss", "_vars.scss"), Operation: ports.OpWrite}
	require.Eventually(t, func() bool { return runs.count(domain.TaskStyle) == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
}

func TestApp_Dev_BuildsThenServes(t *testing.T) {
	cfg := newConfig(t)
	a, m := setupApp(t, cfg)

	built := make(chan struct{})
	var once sync.Once
	m.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ *domain.Config, _ io.Writer) error {
			if task.Name == domain.TaskBuild {
				once.Do(func() { close(built) })
			}
			return nil
		}).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx, domain.TaskDev, app.RunOptions{Open: true}) }()

	select {
	case <-built:
	case <-time.After(2 * time.Second):
		t.Fatal("build did not run")
	}

	cancel()
	require.NoError(t, <-errCh)
}
