package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not known to the pipeline.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoRunner is returned when a task has no registered runner.
	ErrNoRunner = zerr.New("no runner registered for task")

	// ErrBuildExecutionFailed is returned when at least one task of a run failed.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrTaskDegraded is returned when a task finished but some of its files failed.
	// The failures have already been reported through the notifier.
	ErrTaskDegraded = zerr.New("task finished with file errors")

	// ErrDependencyFailed is returned for tasks skipped because a dependency failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidBrowserTarget is returned when a browser entry cannot be mapped to an engine.
	ErrInvalidBrowserTarget = zerr.New("invalid browser target, expected e.g. chrome120")

	// ErrInvalidGlob is returned when a source or watch glob cannot be compiled.
	ErrInvalidGlob = zerr.New("invalid glob pattern")

	// ErrInvalidPort is returned when the server port is outside 0-65535.
	ErrInvalidPort = zerr.New("invalid server port")

	// ErrPathOutsideRoot is returned when a path to delete or write lies outside the project root.
	ErrPathOutsideRoot = zerr.New("path is outside project root")

	// ErrFailedToClean is returned when the output root cannot be removed.
	ErrFailedToClean = zerr.New("failed to clean output")

	// ErrIncludeNotFound is returned when an include directive references a missing file.
	ErrIncludeNotFound = zerr.New("include target not found")

	// ErrIncludeCycle is returned when include directives reference each other recursively.
	ErrIncludeCycle = zerr.New("include cycle detected")

	// ErrStyleCompileFailed is returned when the stylesheet compiler rejects its input.
	ErrStyleCompileFailed = zerr.New("failed to compile stylesheet")

	// ErrTransformFailed is returned when prefixing or minification fails.
	ErrTransformFailed = zerr.New("failed to transform output")

	// ErrInvalidSVG is returned when an icon cannot be parsed as SVG.
	ErrInvalidSVG = zerr.New("invalid svg document")

	// ErrTemplateFailed is returned when the sprite stylesheet template cannot be rendered.
	ErrTemplateFailed = zerr.New("failed to render sprite stylesheet template")

	// ErrFileReadFailed is returned when a source file cannot be read.
	ErrFileReadFailed = zerr.New("failed to read file")

	// ErrFileWriteFailed is returned when an output file cannot be written.
	ErrFileWriteFailed = zerr.New("failed to write file")

	// ErrWatchFailed is returned when the file watcher cannot be started.
	ErrWatchFailed = zerr.New("failed to start file watcher")

	// ErrServerFailed is returned when the development server stops with an error.
	ErrServerFailed = zerr.New("development server failed")
)
