package domain

// TaskKind distinguishes how a task participates in a run.
type TaskKind uint8

const (
	// KindGeneration tasks transform a source category into its output directory.
	KindGeneration TaskKind = iota
	// KindClean tasks delete generated output.
	KindClean
	// KindComposite tasks only group other tasks.
	KindComposite
)

// Task represents a unit of work in the asset pipeline.
type Task struct {
	Name         string
	Kind         TaskKind
	Inputs       []string
	WatchGlobs   []string
	Output       string
	Dependencies []string
}

// Task names understood by the pipeline and the CLI.
const (
	TaskClean   = "clean"
	TaskHTML    = "html"
	TaskStyle   = "style"
	TaskJS      = "js"
	TaskImages  = "images"
	TaskSVG     = "svg"
	TaskFonts   = "fonts"
	TaskBuild   = "build"
	TaskWatch   = "watch"
	TaskServe   = "serve"
	TaskDev     = "dev"
	TaskDefault = "default"
)
