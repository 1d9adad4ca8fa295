package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/core/domain"
)

type taskCommand struct {
	name   string
	short  string
	server bool
}

var taskCommands = []taskCommand{
	{name: domain.TaskClean, short: "Delete the output directory"},
	{name: domain.TaskHTML, short: "Assemble HTML pages from templates and partials"},
	{name: domain.TaskStyle, short: "Compile, prefix and (in production) purge and minify stylesheets"},
	{name: domain.TaskJS, short: "Bundle scripts through include directives"},
	{name: domain.TaskImages, short: "Copy and optimize changed images"},
	{name: domain.TaskSVG, short: "Build the SVG icon sprite and its stylesheet partial"},
	{name: domain.TaskFonts, short: "Copy changed font files"},
	{name: domain.TaskBuild, short: "Clean, then run every generation task"},
	{name: domain.TaskWatch, short: "Re-run the matching task when sources change"},
	{name: domain.TaskServe, short: "Serve the output directory with live reload", server: true},
	{name: domain.TaskDev, short: "Build, then watch and serve", server: true},
	{name: domain.TaskDefault, short: "Same as dev", server: true},
}

func (c *CLI) newTaskCmd(spec taskCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.name,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE:  c.runTarget(spec.name),
	}
	if spec.server {
		addServerFlags(cmd)
	}
	return cmd
}

func (c *CLI) runTarget(target string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		opts := app.RunOptions{ConfigPath: c.configPath}
		if f := cmd.Flags().Lookup("port"); f != nil {
			opts.Port, _ = cmd.Flags().GetInt("port")
		}
		if f := cmd.Flags().Lookup("open"); f != nil {
			opts.Open, _ = cmd.Flags().GetBool("open")
		}
		return c.app.Run(cmd.Context(), target, opts)
	}
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 0, "Dev server port (overrides the configuration)")
	cmd.Flags().BoolP("open", "o", false, "Open the browser at the start path")
}
