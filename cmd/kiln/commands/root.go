// Package commands implements the CLI commands for the kiln asset pipeline.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/kiln/internal/app"
	"go.trai.ch/kiln/internal/build"
	"go.trai.ch/kiln/internal/core/domain"
)

// CLI represents the command line interface for kiln.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
	setJSON func(bool)

	configPath string
	jsonLogs   bool
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, target string, opts app.RunOptions) error
}

// New creates a new CLI instance with the given app. setJSON, if not nil,
// switches the logger to JSON output when --json is passed.
func New(a Application, setJSON func(bool)) *CLI {
	c := &CLI{
		app:     a,
		setJSON: setJSON,
	}

	rootCmd := &cobra.Command{
		Use:           "kiln [task]",
		Short:         "Front-end asset pipeline with watch and live reload",
		Long:          "kiln builds HTML, styles, scripts, images, icons and fonts from dev/ into app/.\nRunning kiln without a task runs default: build, then watch and serve.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if c.setJSON != nil {
				c.setJSON(c.jsonLogs)
			}
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", domain.ConfigFileName, "Path to the project configuration file")
	rootCmd.PersistentFlags().BoolVar(&c.jsonLogs, "json", false, "Write logs as JSON")

	addServerFlags(rootCmd)
	rootCmd.RunE = c.runTarget(domain.TaskDefault)
	c.rootCmd = rootCmd

	for _, spec := range taskCommands {
		rootCmd.AddCommand(c.newTaskCmd(spec))
	}
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
