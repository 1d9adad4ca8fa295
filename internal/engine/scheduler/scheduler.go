// Package scheduler runs the tasks of a graph in dependency order.
package scheduler

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// TaskStatus represents the status of a task.
type TaskStatus string

const (
	// StatusPending indicates the task is waiting to be executed.
	StatusPending TaskStatus = "Pending"
	// StatusRunning indicates the task is currently executing.
	StatusRunning TaskStatus = "Running"
	// StatusCompleted indicates the task has finished successfully.
	StatusCompleted TaskStatus = "Completed"
	// StatusFailed indicates the task execution failed.
	StatusFailed TaskStatus = "Failed"
	// StatusSkipped indicates the task did not run because a dependency failed.
	StatusSkipped TaskStatus = "Skipped"
)

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	executor    ports.Executor
	tracer      ports.Tracer
	parallelism int

	mu         sync.RWMutex
	taskStatus map[string]TaskStatus
}

// NewScheduler creates a new Scheduler that runs up to runtime.NumCPU tasks
// at once.
func NewScheduler(executor ports.Executor, tracer ports.Tracer) *Scheduler {
	return &Scheduler{
		executor:    executor,
		tracer:      tracer,
		parallelism: runtime.NumCPU(),
		taskStatus:  make(map[string]TaskStatus),
	}
}

// WithParallelism sets the maximum number of concurrently running tasks.
func (s *Scheduler) WithParallelism(n int) *Scheduler {
	if n > 0 {
		s.parallelism = n
	}
	return s
}

func (s *Scheduler) initTaskStatuses(tasks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range tasks {
		s.taskStatus[task] = StatusPending
	}
}

func (s *Scheduler) updateStatus(name string, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taskStatus[name] = status
}

// Run executes targetNames and everything they depend on. An empty
// targetNames runs the whole graph.
//
// A failed task's error is joined into the result and its dependents are
// skipped. Tasks that do not depend on it keep running. A degraded task
// still releases its dependents. Errors raised while tasks ran are joined
// with domain.ErrBuildExecutionFailed; plan errors are returned as is.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, cfg *domain.Config, targetNames []string) error {
	if err := graph.Validate(); err != nil {
		return err
	}

	state, err := s.newRunState(ctx, graph, cfg, targetNames)
	if err != nil {
		return err
	}

	plannedTasks := make([]string, 0, len(state.tasks))
	depMap := make(map[string][]string, len(state.tasks))
	for task := range graph.Walk() {
		if _, ok := state.tasks[task.Name]; ok {
			plannedTasks = append(plannedTasks, task.Name)
			depMap[task.Name] = task.Dependencies
		}
	}

	if len(targetNames) == 0 {
		targetNames = plannedTasks
	}
	s.tracer.EmitPlan(ctx, plannedTasks, depMap, targetNames)
	s.initTaskStatuses(plannedTasks)

	return state.runExecutionLoop()
}

// RunTask executes a single task without its dependencies. The watch loop
// uses it to re-run the task of a changed category.
func (s *Scheduler) RunTask(ctx context.Context, task *domain.Task, cfg *domain.Config) error {
	s.tracer.EmitPlan(ctx, []string{task.Name}, map[string][]string{task.Name: nil}, []string{task.Name})
	s.updateStatus(task.Name, StatusRunning)

	err := s.execute(ctx, task, cfg)
	if err != nil {
		s.updateStatus(task.Name, StatusFailed)
		return taskError(task.Name, err)
	}
	s.updateStatus(task.Name, StatusCompleted)
	return nil
}

func (s *Scheduler) execute(ctx context.Context, t *domain.Task, cfg *domain.Config) error {
	ctx, span := s.tracer.Start(ctx, t.Name)
	defer span.End()

	err := s.executor.Execute(ctx, t, cfg, span)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func taskError(name string, err error) error {
	return zerr.With(zerr.Wrap(err, domain.ErrTaskExecutionFailed.Error()), "task", name)
}

type result struct {
	task string
	err  error
}

type schedulerRunState struct {
	graph     *domain.Graph
	cfg       *domain.Config
	inDegree  map[string]int
	tasks     map[string]domain.Task
	ready     []string
	active    int
	resultsCh chan result
	errs      error
	ctx       context.Context
	s         *Scheduler
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	graph *domain.Graph,
	cfg *domain.Config,
	targetNames []string,
) (*schedulerRunState, error) {
	tasksToRun, err := resolveTasksToRun(graph, targetNames)
	if err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(tasksToRun))
	tasks := make(map[string]domain.Task, len(tasksToRun))
	for name := range tasksToRun {
		task, _ := graph.GetTask(name)
		tasks[name] = task

		degree := 0
		for _, dep := range task.Dependencies {
			if tasksToRun[dep] {
				degree++
			}
		}
		inDegree[name] = degree
	}

	// Seed the queue in topological order so runs are reproducible.
	var ready []string
	for task := range graph.Walk() {
		if tasksToRun[task.Name] && inDegree[task.Name] == 0 {
			ready = append(ready, task.Name)
		}
	}

	return &schedulerRunState{
		graph:     graph,
		cfg:       cfg,
		inDegree:  inDegree,
		tasks:     tasks,
		ready:     ready,
		resultsCh: make(chan result, s.parallelism),
		ctx:       ctx,
		s:         s,
	}, nil
}

func resolveTasksToRun(graph *domain.Graph, targetNames []string) (map[string]bool, error) {
	if len(targetNames) == 0 {
		tasksToRun := make(map[string]bool, graph.TaskCount())
		for task := range graph.Walk() {
			tasksToRun[task.Name] = true
		}
		return tasksToRun, nil
	}

	for _, name := range targetNames {
		if _, ok := graph.GetTask(name); !ok {
			return nil, zerr.With(domain.ErrTaskNotFound, "task", name)
		}
	}
	return collectDependencies(graph, targetNames), nil
}

func collectDependencies(graph *domain.Graph, targets []string) map[string]bool {
	tasksToRun := make(map[string]bool)

	queue := make([]string, len(targets))
	copy(queue, targets)
	for _, t := range targets {
		tasksToRun[t] = true
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		task, _ := graph.GetTask(current)
		for _, dep := range task.Dependencies {
			if !tasksToRun[dep] {
				tasksToRun[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	return tasksToRun
}

func (state *schedulerRunState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(domain.ErrBuildExecutionFailed, state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}
	if state.errs != nil {
		return errors.Join(domain.ErrBuildExecutionFailed, state.errs)
	}
	return nil
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.s.parallelism && state.ctx.Err() == nil {
		taskName := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(taskName, StatusRunning)

		t := state.tasks[taskName]
		go state.executeTask(&t)
	}
}

func (state *schedulerRunState) executeTask(t *domain.Task) {
	err := state.s.execute(state.ctx, t, state.cfg)
	state.resultsCh <- result{task: t.Name, err: err}
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	switch {
	case res.err == nil:
		state.s.updateStatus(res.task, StatusCompleted)
	case errors.Is(res.err, domain.ErrTaskDegraded):
		// The healthy outputs were written, so dependents can use them.
		state.errs = errors.Join(state.errs, taskError(res.task, res.err))
		state.s.updateStatus(res.task, StatusFailed)
	default:
		state.errs = errors.Join(state.errs, taskError(res.task, res.err))
		state.s.updateStatus(res.task, StatusFailed)
		state.skipDependents(res.task)
		return
	}

	state.release(res.task)
}

// release makes the dependents of name ready once all their dependencies ran.
func (state *schedulerRunState) release(name string) {
	for _, dep := range state.graph.Dependents(name) {
		if _, ok := state.tasks[dep]; ok {
			state.inDegree[dep]--
			if state.inDegree[dep] == 0 {
				state.ready = append(state.ready, dep)
			}
		}
	}
}

// skipDependents marks every task that transitively depends on name as
// skipped. Each gets a span so the renderer can report it.
func (state *schedulerRunState) skipDependents(name string) {
	queue := []string{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dep := range state.graph.Dependents(current) {
			if _, ok := state.tasks[dep]; !ok {
				continue
			}
			delete(state.tasks, dep)
			state.s.updateStatus(dep, StatusSkipped)

			_, span := state.s.tracer.Start(state.ctx, dep, ports.WithSkipped())
			span.RecordError(zerr.With(domain.ErrDependencyFailed, "dependency", current))
			span.End()

			queue = append(queue, dep)
		}
	}
}
