// Package clean removes the generated output tree.
package clean

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/pipeline/report"
	"go.trai.ch/zerr"
)

// Run deletes the output root. The root must lie strictly inside the
// project root; anything else is refused with domain.ErrPathOutsideRoot.
func Run(_ context.Context, cfg *domain.Config, out io.Writer) error {
	rootAbs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return zerr.Wrap(err, domain.ErrFailedToClean.Error())
	}

	target := cfg.Abs(cfg.Paths.App)
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToClean.Error()), "path", target)
	}

	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToClean.Error()), "path", target)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return zerr.With(domain.ErrPathOutsideRoot, "path", cfg.Paths.App)
	}

	if _, err := os.Lstat(targetAbs); os.IsNotExist(err) {
		return nil
	}

	// Remove the validated absolute path so that exactly what was checked is deleted.
	if err := os.RemoveAll(targetAbs); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFailedToClean.Error()), "path", target)
	}
	_, _ = fmt.Fprintf(out, "removed %s\n", report.Rel(rootAbs, targetAbs))
	return nil
}
