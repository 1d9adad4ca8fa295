// Package fonts copies font files.
package fonts

import (
	"context"
	"io"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/pipeline/incremental"
	"go.trai.ch/kiln/internal/pipeline/report"
)

// Copier runs the fonts task.
type Copier struct {
	notifier ports.Notifier
	history  *incremental.History
}

// New creates a Copier. history is shared across runs of the process.
func New(notifier ports.Notifier, history *incremental.History) *Copier {
	return &Copier{notifier: notifier, history: history}
}

// Run copies every changed font verbatim into the font output directory.
func (c *Copier) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	failures := report.NewFailures(c.notifier, "Fonts", out)
	err := incremental.Run(ctx, cfg, c.history, incremental.Job{
		Task: domain.TaskFonts,
		Src:  cfg.Paths.Fonts.Src,
		Dest: cfg.Paths.Fonts.Dest,
	}, failures, out)
	if err != nil {
		return err
	}
	return failures.Err()
}
