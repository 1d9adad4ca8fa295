// Package transform runs esbuild over single stylesheets and scripts for
// vendor prefixing, minification and inline source maps.
package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Options selects what a transformation does.
type Options struct {
	// Sourcefile names the input in error messages and source maps.
	Sourcefile string
	// Engines is the browser support matrix used for prefixing and lowering.
	Engines []api.Engine
	// Minify enables whitespace, syntax and identifier minification.
	Minify bool
	// SourceMap appends an inline source map.
	SourceMap bool
}

// CSS transforms a stylesheet.
func CSS(code string, opts Options) (string, error) {
	return run(code, api.LoaderCSS, opts)
}

// JS transforms a script.
func JS(code string, opts Options) (string, error) {
	return run(code, api.LoaderJS, opts)
}

func run(code string, loader api.Loader, opts Options) (string, error) {
	result := api.Transform(code, api.TransformOptions{
		Loader:            loader,
		Sourcefile:        opts.Sourcefile,
		Engines:           opts.Engines,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		Sourcemap:         cond(opts.SourceMap, api.SourceMapInline, api.SourceMapNone),
		SourcesContent:    api.SourcesContentInclude,
		LegalComments:     cond(opts.Minify, api.LegalCommentsNone, api.LegalCommentsInline),
		LogLevel:          api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return "", zerr.With(
			zerr.Wrap(errors.New(formatMessages(result.Errors)), domain.ErrTransformFailed.Error()),
			"file", opts.Sourcefile,
		)
	}
	return string(result.Code), nil
}

func formatMessages(msgs []api.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if loc := msg.Location; loc != nil {
			lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", loc.File, loc.Line, loc.Column, msg.Text))
			continue
		}
		lines = append(lines, msg.Text)
	}
	return strings.Join(lines, "\n")
}

var browserPattern = regexp.MustCompile(`^([a-z]+)([0-9]+(?:\.[0-9]+){0,2})$`)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"safari":  api.EngineSafari,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
}

// Engines maps browser entries such as "chrome120" or "safari17.2" to
// esbuild engine targets.
func Engines(browsers []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(browsers))
	for _, browser := range browsers {
		m := browserPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(browser)))
		if m == nil {
			return nil, zerr.With(domain.ErrInvalidBrowserTarget, "browser", browser)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, zerr.With(domain.ErrInvalidBrowserTarget, "browser", browser)
		}
		engines = append(engines, api.Engine{Name: name, Version: m[2]})
	}
	return engines, nil
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}
