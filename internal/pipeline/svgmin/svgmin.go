// Package svgmin parses and minifies SVG documents.
//
// Minification removes comments, doctypes, processing instructions,
// descriptive elements (<metadata>, <title>, <desc>), editor-specific
// elements and attributes, and whitespace-only text. The viewBox attribute is
// always kept.
package svgmin

import (
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Attr is an element attribute. Value is stored unquoted and unescaped
// entities are left as written.
type Attr struct {
	Name  string
	Value string
}

// Node is an element, or a text node when Name is empty.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Text     string
}

// editorPrefixes mark elements and attributes written by drawing tools.
var editorPrefixes = []string{"sodipodi:", "inkscape:", "xmlns:sodipodi", "xmlns:inkscape", "sketch:", "xmlns:sketch"}

// droppedElements are removed with their subtree.
var droppedElements = map[string]bool{"metadata": true, "title": true, "desc": true}

// droppedAttrs are removed from every element.
var droppedAttrs = map[string]bool{"version": true, "xml:space": true, "enable-background": true}

// Parse reads an SVG document into a tree rooted at the <svg> element.
func Parse(data []byte) (*Node, error) {
	l := xml.NewLexer(parse.NewInputBytes(data))

	var root *Node
	var stack []*Node
	skip := 0

	for {
		tt, text := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() != io.EOF {
				return nil, zerr.Wrap(l.Err(), domain.ErrInvalidSVG.Error())
			}
			if root == nil || len(stack) > 0 {
				return nil, zerr.With(domain.ErrInvalidSVG, "reason", "unterminated or missing <svg> element")
			}
			return root, nil

		case xml.StartTagToken:
			name := string(l.Text())
			if skip > 0 || droppedElements[name] || isEditor(name) {
				skip++
				continue
			}
			n := &Node{Name: name}
			if len(stack) == 0 {
				if root != nil || name != "svg" {
					return nil, zerr.With(domain.ErrInvalidSVG, "element", name)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)

		case xml.AttributeToken:
			if skip > 0 || len(stack) == 0 {
				continue
			}
			name := string(l.Text())
			if droppedAttrs[name] || isEditor(name) {
				continue
			}
			n := stack[len(stack)-1]
			n.Attrs = append(n.Attrs, Attr{Name: name, Value: unquote(l.AttrVal())})

		case xml.StartTagCloseVoidToken:
			if skip > 0 {
				skip--
				continue
			}
			stack = stack[:len(stack)-1]

		case xml.EndTagToken:
			if skip > 0 {
				skip--
				continue
			}
			if len(stack) == 0 || stack[len(stack)-1].Name != string(l.Text()) {
				return nil, zerr.With(domain.ErrInvalidSVG, "unexpected", "</"+string(l.Text())+">")
			}
			stack = stack[:len(stack)-1]

		case xml.TextToken, xml.CDATAToken:
			if skip > 0 || len(stack) == 0 || len(bytes.TrimSpace(text)) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{Text: string(text)})
		}
	}
}

// Minify parses data and renders it compactly.
func Minify(data []byte) ([]byte, error) {
	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	root.Render(&buf)
	return buf.Bytes(), nil
}

// Render writes the subtree rooted at n.
func (n *Node) Render(buf *bytes.Buffer) {
	if n.Name == "" {
		buf.WriteString(n.Text)
		return
	}

	buf.WriteByte('<')
	buf.WriteString(n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`=`)
		buf.WriteString(quote(a.Value))
	}
	if len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	for _, c := range n.Children {
		c.Render(buf)
	}
	buf.WriteString("</")
	buf.WriteString(n.Name)
	buf.WriteByte('>')
}

// Walk calls fn for n and every element below it.
func (n *Node) Walk(fn func(*Node)) {
	if n.Name == "" {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// RemoveAttrs deletes the named attributes from n.
func (n *Node) RemoveAttrs(names ...string) {
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if !slices.Contains(names, a.Name) {
			kept = append(kept, a)
		}
	}
	n.Attrs = kept
}

func isEditor(name string) bool {
	for _, prefix := range editorPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func unquote(val []byte) string {
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		return string(val[1 : len(val)-1])
	}
	return string(val)
}

// quote renders an attribute value in double quotes. Values read from
// single-quoted attributes may hold a raw double quote.
func quote(val string) string {
	return `"` + strings.ReplaceAll(val, `"`, "&quot;") + `"`
}
