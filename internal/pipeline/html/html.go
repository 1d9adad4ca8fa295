// Package html assembles pages by expanding their include directives.
package html

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
)

// NotificationTitle is the title of notifications about failed pages.
const NotificationTitle = "HTML"

// Assembler writes one flattened document per page.
type Assembler struct {
	notifier ports.Notifier
}

// New creates an Assembler that reports broken pages to notifier.
func New(notifier ports.Notifier) *Assembler {
	return &Assembler{notifier: notifier}
}

// Run assembles every page matched by the html source globs. Files whose
// name starts with an underscore are partials and produce no output.
// A page with a broken include is skipped and reported; the task then
// returns domain.ErrTaskDegraded after writing the remaining pages.
func (a *Assembler) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	pages, err := fs.Expand(cfg.Root, cfg.Paths.HTML.Src)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		_, _ = fmt.Fprintf(out, "no files matched %s\n", strings.Join(cfg.Paths.HTML.Src, ", "))
		return nil
	}

	failures := report.NewFailures(a.notifier, NotificationTitle, out)
	dest := cfg.Abs(cfg.Paths.HTML.Dest)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if IsPartial(page.Path) {
			continue
		}

		doc, err := include.Resolve(page.Path)
		if err != nil {
			failures.Add(report.Rel(cfg.Root, page.Path), err)
			continue
		}

		target := filepath.Join(dest, page.Rel)
		written, err := fs.WriteIfChanged(target, doc)
		if err != nil {
			return err
		}
		if written {
			_, _ = fmt.Fprintf(out, "wrote %s\n", report.Rel(cfg.Root, target))
		}
	}

	return failures.Err()
}

// IsPartial reports whether the file is an include-only partial.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}
