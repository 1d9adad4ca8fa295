// Package include expands rigger-style include directives.
//
// A directive is a line of the form
//
//	//= relative/path
//
// and is replaced by the contents of the referenced file, resolved relative
// to the including file. Every line of the included content is prefixed with
// the indentation of the directive. Expansion is recursive.
package include

import (
	"bytes"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

var directive = regexp.MustCompile(`^([ \t]*)//=[ \t]*(\S+)[ \t]*$`)

// Resolve reads the file at path and returns it with every directive expanded.
func Resolve(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}

	data, err := os.ReadFile(abs) //nolint:gosec // path comes from a source glob
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}

	return expand(abs, data, []string{abs})
}

// expand resolves the directives of data, which was read from path.
// stack holds the chain of files currently being expanded.
func expand(path string, data []byte, stack []string) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(data))

	for line := range bytes.Lines(data) {
		body, newline := splitNewline(line)
		m := directive.FindSubmatch(body)
		if m == nil {
			out.Write(line)
			continue
		}

		indent := string(m[1])
		target := filepath.Join(filepath.Dir(path), strings.Trim(string(m[2]), `"'`))

		if slices.Contains(stack, target) {
			return nil, zerr.With(domain.ErrIncludeCycle, "cycle", cyclePath(stack, target))
		}

		included, err := os.ReadFile(target) //nolint:gosec // resolved relative to a source file
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil, zerr.With(zerr.With(domain.ErrIncludeNotFound, "include", string(m[2])), "file", path)
			}
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", target)
		}

		expanded, err := expand(target, included, append(slices.Clip(stack), target))
		if err != nil {
			return nil, err
		}

		writeIndented(&out, expanded, indent)
		out.Write(newline)
	}

	return out.Bytes(), nil
}

// writeIndented writes content with indent before every non-empty line.
// A single trailing newline of content is dropped; the directive's own
// line ending takes its place.
func writeIndented(out *bytes.Buffer, content []byte, indent string) {
	content = bytes.TrimSuffix(content, []byte("\n"))
	content = bytes.TrimSuffix(content, []byte("\r"))

	for line := range bytes.Lines(content) {
		if indent != "" && len(bytes.TrimSpace(line)) > 0 {
			out.WriteString(indent)
		}
		out.Write(line)
	}
}

func splitNewline(line []byte) (body, newline []byte) {
	body = bytes.TrimSuffix(line, []byte("\n"))
	body = bytes.TrimSuffix(body, []byte("\r"))
	return body, line[len(body):]
}

func cyclePath(stack []string, target string) string {
	start := slices.Index(stack, target)
	names := make([]string, 0, len(stack)-start+1)
	for _, p := range stack[start:] {
		names = append(names, filepath.Base(p))
	}
	names = append(names, filepath.Base(target))
	return strings.Join(names, " -> ")
}
