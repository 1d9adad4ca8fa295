// Package script assembles JavaScript entry files.
package script

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/pipeline/include"
	"go.trai.ch/kiln/internal/pipeline/report"
	"go.trai.ch/kiln/internal/pipeline/transform"
)

// NotificationTitle is the title of notifications about failed scripts.
const NotificationTitle = "Scripts"

// Assembler flattens each entry through its include directives, then
// minifies it in production or appends an inline source map in development.
type Assembler struct {
	notifier ports.Notifier
}

// New creates an Assembler that reports broken entries to notifier.
func New(notifier ports.Notifier) *Assembler {
	return &Assembler{notifier: notifier}
}

// Run writes one output file per entry matched by the js source globs.
func (a *Assembler) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	entries, err := fs.Expand(cfg.Root, cfg.Paths.JS.Src)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "no files matched %s\n", strings.Join(cfg.Paths.JS.Src, ", "))
		return nil
	}

	engines, err := transform.Engines(cfg.Browsers)
	if err != nil {
		return err
	}

	failures := report.NewFailures(a.notifier, NotificationTitle, out)
	dest := cfg.Abs(cfg.Paths.JS.Dest)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		source, err := include.Resolve(entry.Path)
		if err != nil {
			failures.Add(report.Rel(cfg.Root, entry.Path), err)
			continue
		}

		code, err := transform.JS(string(source), transform.Options{
			Sourcefile: report.Rel(cfg.Root, entry.Path),
			Engines:    engines,
			Minify:     !cfg.Mode.IsDevelopment(),
			SourceMap:  cfg.Mode.IsDevelopment(),
		})
		if err != nil {
			failures.Add(report.Rel(cfg.Root, entry.Path), err)
			continue
		}

		target := filepath.Join(dest, entry.Rel)
		written, err := fs.WriteIfChanged(target, []byte(code))
		if err != nil {
			return err
		}
		if written {
			_, _ = fmt.Fprintf(out, "wrote %s\n", report.Rel(cfg.Root, target))
		}
	}

	return failures.Err()
}
