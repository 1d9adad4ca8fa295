// Package uncss removes style rules whose selectors no HTML document uses.
//
// The analysis is static: a selector is used when every element name,
// class and id it names appears somewhere in the documents. Pseudo-classes,
// attribute selectors and combinators are not evaluated.
package uncss

import (
	"bytes"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
	"github.com/tdewolff/parse/v2/xml"
)

// Usage records the element names, classes and ids present in HTML documents.
type Usage struct {
	tags    map[string]bool
	classes map[string]bool
	ids     map[string]bool
}

// NewUsage creates an empty Usage.
func NewUsage() *Usage {
	return &Usage{
		tags:    make(map[string]bool),
		classes: make(map[string]bool),
		ids:     make(map[string]bool),
	}
}

// Add scans one HTML document.
func (u *Usage) Add(r io.Reader) error {
	l := html.NewLexer(parse.NewInput(r))
	for {
		tt, data := l.Next()
		switch tt {
		case html.ErrorToken:
			if l.Err() == io.EOF {
				return nil
			}
			return l.Err()
		case html.StartTagToken:
			u.tags[strings.ToLower(string(l.Text()))] = true
		case html.AttributeToken:
			u.addAttr(strings.ToLower(string(l.Text())), unquote(l.AttrVal()))
		case html.SVGToken, html.MathToken:
			// The lexer returns inline <svg> and <math> as one raw token.
			u.addForeign(bytes.Clone(data))
		}
	}
}

// addForeign scans an inline <svg> or <math> element, which is XML.
// Markup after a syntax error is ignored.
func (u *Usage) addForeign(data []byte) {
	l := xml.NewLexer(parse.NewInputBytes(data))
	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			return
		case xml.StartTagToken:
			u.tags[strings.ToLower(string(l.Text()))] = true
		case xml.AttributeToken:
			u.addAttr(strings.ToLower(string(l.Text())), unquote(l.AttrVal()))
		}
	}
}

func (u *Usage) addAttr(name, value string) {
	switch name {
	case "class":
		for _, class := range strings.Fields(value) {
			u.classes[class] = true
		}
	case "id":
		if id := strings.TrimSpace(value); id != "" {
			u.ids[id] = true
		}
	}
}

// HasTag reports whether an element with the given name was seen.
func (u *Usage) HasTag(name string) bool { return u.tags[strings.ToLower(name)] }

// HasClass reports whether the class was seen.
func (u *Usage) HasClass(name string) bool { return u.classes[name] }

// HasID reports whether the id was seen.
func (u *Usage) HasID(name string) bool { return u.ids[name] }

func unquote(val []byte) string {
	if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
		val = val[1 : len(val)-1]
	}
	return string(bytes.TrimSpace(val))
}
