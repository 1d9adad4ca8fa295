// Package sprite assembles icon SVGs into one symbol sprite and renders a
// stylesheet partial that references every symbol.
package sprite

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/pipeline/report"
	"go.trai.ch/kiln/internal/pipeline/svgmin"
	"go.trai.ch/zerr"
)

// NotificationTitle is the title of notifications about broken icons.
const NotificationTitle = "SVG"

// DefaultTemplate renders one sized selector per symbol.
const DefaultTemplate = `// Generated by kiln. Do not edit.

$sprite-url: "{{ .URL }}";
{{ range .Icons }}
.{{ .ID }} {
  width: {{ .Width }};
  height: {{ .Height }};
}
{{ end }}`

// presentationAttrs are stripped so icons inherit color from CSS.
var presentationAttrs = []string{"fill", "stroke", "style"}

// Icon describes one symbol of the sprite.
type Icon struct {
	// Name is the icon file name without extension.
	Name string
	// ID is the symbol id, the configured prefix followed by Name.
	ID      string
	ViewBox string
	Width   string
	Height  string
}

// StylesheetData is passed to the stylesheet template.
type StylesheetData struct {
	// URL is the sprite path relative to the style output directory.
	URL   string
	Icons []Icon
}

// Builder runs the svg task.
type Builder struct {
	notifier ports.Notifier
}

// New creates a Builder that reports broken icons to notifier.
func New(notifier ports.Notifier) *Builder {
	return &Builder{notifier: notifier}
}

// Run writes the sprite into the svg output directory and the stylesheet
// partial into the source tree. Icons that fail to parse are reported and
// left out; the task then returns domain.ErrTaskDegraded.
func (b *Builder) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	if !cfg.Sprite.Enabled {
		_, _ = fmt.Fprintln(out, "sprite disabled")
		return nil
	}

	tmplText, err := templateText(cfg)
	if err != nil {
		return err
	}

	files, err := fs.Expand(cfg.Root, cfg.Paths.SVG.Src)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintf(out, "no files matched %s\n", strings.Join(cfg.Paths.SVG.Src, ", "))
	}

	failures := report.NewFailures(b.notifier, NotificationTitle, out)
	var symbols []*svgmin.Node
	var icons []Icon
	seen := make(map[string]bool)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := iconName(file.Path)
		if seen[name] {
			failures.Add(report.Rel(cfg.Root, file.Path), zerr.With(domain.ErrInvalidSVG, "duplicate_icon", name))
			continue
		}

		data, err := os.ReadFile(file.Path) //nolint:gosec // path comes from a source glob
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", file.Path)
		}

		root, err := svgmin.Parse(data)
		if err != nil {
			failures.Add(report.Rel(cfg.Root, file.Path), err)
			continue
		}

		seen[name] = true
		symbol, icon := Symbol(root, name, cfg.Sprite.Prefix)
		symbols = append(symbols, symbol)
		icons = append(icons, icon)
	}

	spritePath := cfg.Abs(cfg.SpritePath())
	if err := write(cfg, out, spritePath, Assemble(symbols)); err != nil {
		return err
	}

	url, err := filepath.Rel(cfg.Paths.Style.Dest, cfg.SpritePath())
	if err != nil {
		url = cfg.SpritePath()
	}

	var partial bytes.Buffer
	if err := RenderStylesheet(&partial, tmplText, StylesheetData{URL: filepath.ToSlash(url), Icons: icons}); err != nil {
		return err
	}
	if err := write(cfg, out, cfg.Abs(cfg.Sprite.Stylesheet), partial.Bytes()); err != nil {
		return err
	}

	return failures.Err()
}

// Symbol strips presentation attributes from the icon tree and turns its
// root into a <symbol> with the prefixed id and the icon's viewBox.
func Symbol(root *svgmin.Node, name, prefix string) (*svgmin.Node, Icon) {
	root.Walk(func(n *svgmin.Node) {
		n.RemoveAttrs(presentationAttrs...)
	})

	icon := Icon{Name: name, ID: prefix + name}
	icon.ViewBox, icon.Width, icon.Height = dimensions(root)

	attrs := []svgmin.Attr{{Name: "id", Value: icon.ID}}
	if icon.ViewBox != "" {
		attrs = append(attrs, svgmin.Attr{Name: "viewBox", Value: icon.ViewBox})
	}
	for _, a := range root.Attrs {
		switch {
		case a.Name == "id", a.Name == "viewBox", a.Name == "width", a.Name == "height":
		case a.Name == "xmlns", strings.HasPrefix(a.Name, "xmlns:"):
		default:
			attrs = append(attrs, a)
		}
	}

	return &svgmin.Node{Name: "symbol", Attrs: attrs, Children: root.Children}, icon
}

// Assemble wraps symbols into a sprite document.
func Assemble(symbols []*svgmin.Node) []byte {
	doc := &svgmin.Node{
		Name: "svg",
		Attrs: []svgmin.Attr{
			{Name: "xmlns", Value: "http://www.w3.org/2000/svg"},
			{Name: "xmlns:xlink", Value: "http://www.w3.org/1999/xlink"},
		},
		Children: symbols,
	}

	var buf bytes.Buffer
	doc.Render(&buf)
	return Repair(buf.Bytes())
}

// Repair turns the escaped greater-than sign back into ">". Attribute
// stripping leaves it escaped in text and attribute values.
func Repair(doc []byte) []byte {
	doc = bytes.ReplaceAll(doc, []byte("&gt;"), []byte(">"))
	return bytes.ReplaceAll(doc, []byte("&gt"), []byte(">"))
}

// RenderStylesheet executes a stylesheet template.
func RenderStylesheet(w io.Writer, text string, data StylesheetData) error {
	tmpl, err := template.New("sprite").Parse(text)
	if err != nil {
		return zerr.Wrap(err, domain.ErrTemplateFailed.Error())
	}
	if err := tmpl.Execute(w, data); err != nil {
		return zerr.Wrap(err, domain.ErrTemplateFailed.Error())
	}
	return nil
}

// templateText returns the configured stylesheet template, or the default.
func templateText(cfg *domain.Config) (string, error) {
	if cfg.Sprite.Template == "" {
		return DefaultTemplate, nil
	}
	path := cfg.Abs(cfg.Sprite.Template)
	data, err := os.ReadFile(path) //nolint:gosec // configured by the project
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrTemplateFailed.Error()), "template", path)
	}
	return string(data), nil
}

func write(cfg *domain.Config, out io.Writer, path string, data []byte) error {
	written, err := fs.WriteIfChanged(path, data)
	if err != nil {
		return err
	}
	if written {
		_, _ = fmt.Fprintf(out, "wrote %s\n", report.Rel(cfg.Root, path))
	}
	return nil
}

// iconName derives a symbol-safe name from the file name.
func iconName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
}

// dimensions returns the viewBox and CSS size of an icon. A missing viewBox
// is derived from width and height.
func dimensions(root *svgmin.Node) (viewBox, width, height string) {
	viewBox, _ = root.Attr("viewBox")
	w, _ := root.Attr("width")
	h, _ := root.Attr("height")

	if fields := strings.Fields(strings.ReplaceAll(viewBox, ",", " ")); len(fields) == 4 {
		if w == "" {
			w = fields[2]
		}
		if h == "" {
			h = fields[3]
		}
	} else if w != "" && h != "" {
		viewBox = fmt.Sprintf("0 0 %s %s", strings.TrimSuffix(w, "px"), strings.TrimSuffix(h, "px"))
	}

	return viewBox, cssLength(w), cssLength(h)
}

func cssLength(v string) string {
	if v == "" {
		return "1em"
	}
	if strings.IndexFunc(v, func(r rune) bool { return (r < '0' || r > '9') && r != '.' }) < 0 {
		return v + "px"
	}
	return v
}
