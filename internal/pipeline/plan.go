// Package pipeline declares the asset tasks, their ordering and the
// executor that dispatches each task to its implementation.
package pipeline

import (
	"slices"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// GenerationTasks lists the tasks that turn a source category into output.
var GenerationTasks = []string{
	domain.TaskHTML,
	domain.TaskStyle,
	domain.TaskJS,
	domain.TaskImages,
	domain.TaskSVG,
	domain.TaskFonts,
}

// IsGeneration reports whether name is a generation task.
func IsGeneration(name string) bool {
	return slices.Contains(GenerationTasks, name)
}

// Category returns the path configuration of a generation task.
func Category(name string, cfg *domain.Config) (domain.Category, bool) {
	switch name {
	case domain.TaskHTML:
		return cfg.Paths.HTML, true
	case domain.TaskStyle:
		return cfg.Paths.Style, true
	case domain.TaskJS:
		return cfg.Paths.JS, true
	case domain.TaskImages:
		return cfg.Paths.Img, true
	case domain.TaskSVG:
		return cfg.Paths.SVG, true
	case domain.TaskFonts:
		return cfg.Paths.Fonts, true
	default:
		return domain.Category{}, false
	}
}

// Enabled reports whether a generation task takes part in build and watch.
// The svg task only runs when the sprite is enabled.
func Enabled(name string, cfg *domain.Config) bool {
	return name != domain.TaskSVG || cfg.Sprite.Enabled
}

// Intrinsic returns the tasks that must finish before name because name
// reads their output: style includes the sprite partial, and in production
// style removes rules against the built HTML.
func Intrinsic(name string, cfg *domain.Config) []string {
	if name != domain.TaskStyle {
		return nil
	}
	var deps []string
	if cfg.Sprite.Enabled {
		deps = append(deps, domain.TaskSVG)
	}
	if !cfg.Mode.IsDevelopment() {
		deps = append(deps, domain.TaskHTML)
	}
	return deps
}

// NewTask returns the definition of a single task without dependencies.
func NewTask(name string, cfg *domain.Config) (domain.Task, error) {
	if name == domain.TaskClean {
		return domain.Task{Name: name, Kind: domain.KindClean, Output: cfg.Paths.App}, nil
	}
	cat, ok := Category(name, cfg)
	if !ok {
		return domain.Task{}, zerr.With(domain.ErrTaskNotFound, "task", name)
	}
	return domain.Task{
		Name:       name,
		Kind:       domain.KindGeneration,
		Inputs:     cat.Src,
		WatchGlobs: cat.Watch,
		Output:     cat.Dest,
	}, nil
}

// Plan builds the validated task graph for target.
//
// A generation target runs with the tasks it intrinsically depends on.
// build runs clean first and then every enabled generation task, ordered
// only by the intrinsic edges; a composite build task depends on all of
// them so the target itself is part of the graph. clean runs alone. The long-running targets
// (watch, serve, dev, default) are not tasks and are rejected.
func Plan(target string, cfg *domain.Config) (*domain.Graph, error) {
	var names []string
	withClean := false

	switch {
	case target == domain.TaskClean:
		names = []string{domain.TaskClean}
	case target == domain.TaskBuild:
		withClean = true
		names = append(names, domain.TaskClean)
		for _, name := range GenerationTasks {
			if Enabled(name, cfg) {
				names = append(names, name)
			}
		}
	case IsGeneration(target):
		names = closure(target, cfg)
	default:
		return nil, zerr.With(domain.ErrTaskNotFound, "task", target)
	}

	g := domain.NewGraph()
	for _, name := range names {
		task, err := NewTask(name, cfg)
		if err != nil {
			return nil, err
		}
		if withClean && name != domain.TaskClean {
			task.Dependencies = append(task.Dependencies, domain.TaskClean)
		}
		for _, dep := range Intrinsic(name, cfg) {
			if slices.Contains(names, dep) {
				task.Dependencies = append(task.Dependencies, dep)
			}
		}
		if err := g.AddTask(&task); err != nil {
			return nil, err
		}
	}

	if target == domain.TaskBuild {
		build := domain.Task{Name: domain.TaskBuild, Kind: domain.KindComposite, Dependencies: slices.Clone(names)}
		if err := g.AddTask(&build); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// closure returns target and every task it intrinsically depends on.
func closure(target string, cfg *domain.Config) []string {
	names := []string{target}
	for i := 0; i < len(names); i++ {
		for _, dep := range Intrinsic(names[i], cfg) {
			if !slices.Contains(names, dep) {
				names = append(names, dep)
			}
		}
	}
	return names
}
