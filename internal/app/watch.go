package app

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/adapters/watcher"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/pipeline"
	"go.trai.ch/zerr"
)

// watchDebounce collapses one burst of editor writes into a single batch.
const watchDebounce = 50 * time.Millisecond

// category binds one generation task to its watch globs.
type category struct {
	task      domain.Task
	matcher   *fs.Matcher
	coalescer *watcher.Coalescer
}

// watch re-runs the task of each category whose watch globs match a
// changed file, until ctx is cancelled. Runs of one category never
// overlap; changes during a run schedule one follow-up run.
func (a *App) watch(ctx context.Context, cfg *domain.Config) error {
	categories, err := a.categories(ctx, cfg)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}

	var dirs []string
	for _, c := range categories {
		for _, base := range c.matcher.Bases() {
			dir := filepath.Join(root, filepath.FromSlash(base))
			if !slices.Contains(dirs, dir) {
				dirs = append(dirs, dir)
			}
		}
	}

	w, err := a.watchers()
	if err != nil {
		return err
	}
	if err := w.Start(ctx, dirs...); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(watchDebounce, func(paths []string) {
		for _, c := range categories {
			if slices.ContainsFunc(paths, c.matcher.Match) {
				c.coalescer.Trigger()
			}
		}
	})

	a.logger.Info("watching " + cfg.Mode.String() + " sources")

	go func() {
		<-ctx.Done()
		_ = w.Stop()
	}()

	for event := range w.Events() {
		rel, err := filepath.Rel(root, event.Path)
		if err != nil {
			continue
		}
		debouncer.Add(filepath.ToSlash(rel))
	}

	debouncer.Stop()
	for _, c := range categories {
		c.coalescer.Wait()
	}
	return nil
}

// categories builds a watched category for every enabled generation task.
func (a *App) categories(ctx context.Context, cfg *domain.Config) ([]*category, error) {
	var categories []*category
	for _, name := range pipeline.GenerationTasks {
		if !pipeline.Enabled(name, cfg) {
			continue
		}
		task, err := pipeline.NewTask(name, cfg)
		if err != nil {
			return nil, err
		}
		matcher, err := fs.NewMatcher(task.WatchGlobs)
		if err != nil {
			return nil, err
		}

		c := &category{task: task, matcher: matcher}
		c.coalescer = watcher.NewCoalescer(func() {
			if ctx.Err() != nil {
				return
			}
			if err := a.scheduler.RunTask(ctx, &c.task, cfg); err != nil {
				a.logger.Error(err)
			}
		})
		categories = append(categories, c)
	}
	return categories, nil
}
