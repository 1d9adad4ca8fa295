// Package style compiles the entry stylesheet.
package style

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bep/golibsass/libsass"
	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/pipeline/report"
	"go.trai.ch/kiln/internal/pipeline/transform"
	"go.trai.ch/kiln/internal/pipeline/uncss"
	"go.trai.ch/zerr"
)

// NotificationTitle is the title of notifications about compile errors.
const NotificationTitle = "Styles"

// Compiler turns SCSS entries into CSS.
//
// In development the output carries an inline source map. In production
// rules unused by the HTML output are removed and the result is minified.
// Vendor prefixes for the browser matrix are applied in both modes.
type Compiler struct {
	notifier ports.Notifier
}

// New creates a Compiler that reports compile errors to notifier.
func New(notifier ports.Notifier) *Compiler {
	return &Compiler{notifier: notifier}
}

// Run compiles every entry matched by the style source globs. A compile
// error is reported and ends the run with domain.ErrTaskDegraded.
func (c *Compiler) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	entries, err := fs.Expand(cfg.Root, cfg.Paths.Style.Src)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(out, "no files matched %s\n", strings.Join(cfg.Paths.Style.Src, ", "))
		return nil
	}

	engines, err := transform.Engines(cfg.Browsers)
	if err != nil {
		return err
	}

	var usage *uncss.Usage
	if !cfg.Mode.IsDevelopment() {
		if usage, err = collectUsage(cfg, out); err != nil {
			return err
		}
	}

	failures := report.NewFailures(c.notifier, NotificationTitle, out)
	dest := cfg.Abs(cfg.Paths.Style.Dest)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(entry.Path), "_") {
			continue
		}

		target := filepath.Join(dest, strings.TrimSuffix(entry.Rel, filepath.Ext(entry.Rel))+".css")
		name := report.Rel(cfg.Root, entry.Path)

		css, err := compile(entry.Path, target, cfg.Mode.IsDevelopment())
		if err != nil {
			failures.Add(name, err)
			return failures.Err()
		}

		css, err = finish(css, name, engines, usage, cfg.Mode)
		if err != nil {
			failures.Add(name, err)
			continue
		}

		written, err := fs.WriteIfChanged(target, []byte(css))
		if err != nil {
			return err
		}
		if written {
			_, _ = fmt.Fprintf(out, "wrote %s\n", report.Rel(cfg.Root, target))
		}
	}

	return failures.Err()
}

// compile runs libsass over the entry. Imports resolve from the entry's
// directory. In development the compiler embeds its source map.
func compile(entry, target string, development bool) (string, error) {
	src, err := os.ReadFile(entry) //nolint:gosec // path comes from a source glob
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", entry)
	}

	opts := libsass.Options{
		IncludePaths: []string{filepath.Dir(entry)},
		OutputStyle:  libsass.ExpandedStyle,
	}
	if development {
		opts.SourceMapOptions = libsass.SourceMapOptions{
			Filename:       target + ".map",
			OutputPath:     target,
			InputPath:      entry,
			Contents:       true,
			EnableEmbedded: true,
		}
	}

	transpiler, err := libsass.New(opts)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrStyleCompileFailed.Error())
	}

	result, err := transpiler.Execute(string(src))
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "file", entry)
	}
	return result.CSS, nil
}

// finish applies prefixing, unused rule removal and minification in order.
func finish(css, name string, engines []api.Engine, usage *uncss.Usage, mode domain.Mode) (string, error) {
	css, err := transform.CSS(css, transform.Options{
		Sourcefile: name,
		Engines:    engines,
		SourceMap:  mode.IsDevelopment(),
	})
	if err != nil {
		return "", err
	}
	if mode.IsDevelopment() {
		return css, nil
	}

	filtered, err := uncss.Filter([]byte(css), usage)
	if err != nil {
		return "", err
	}

	return transform.CSS(string(filtered), transform.Options{
		Sourcefile: name,
		Engines:    engines,
		Minify:     true,
	})
}

// collectUsage scans the built HTML pages. When none exist yet it falls
// back to the HTML sources, partials included.
func collectUsage(cfg *domain.Config, out io.Writer) (*uncss.Usage, error) {
	built := path.Join(filepath.ToSlash(cfg.Paths.HTML.Dest), "**", "*.html")
	docs, err := fs.Expand(cfg.Root, []string{built})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		_, _ = fmt.Fprintf(out, "no built pages under %s, scanning html sources\n", cfg.Paths.HTML.Dest)
		if docs, err = fs.Expand(cfg.Root, cfg.Paths.HTMLAll); err != nil {
			return nil, err
		}
	}

	usage := uncss.NewUsage()
	for _, doc := range docs {
		if err := addDocument(usage, doc.Path); err != nil {
			return nil, err
		}
	}
	return usage, nil
}

func addDocument(usage *uncss.Usage, file string) error {
	f, err := os.Open(file) //nolint:gosec // path comes from a glob under the project root
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "file", file)
	}
	defer f.Close() //nolint:errcheck // read-only

	if err := usage.Add(f); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "file", file)
	}
	return nil
}
