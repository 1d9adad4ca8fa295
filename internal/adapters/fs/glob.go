package fs

import (
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

const globMeta = "*?[{"

// Pattern is a compiled source glob. "**" matches zero or more directories.
type Pattern struct {
	raw      string
	base     string
	literal  bool
	variants []glob.Glob
}

// Compile parses a slash-separated, project-relative glob.
func Compile(pattern string) (*Pattern, error) {
	pattern = path.Clean(filepath.ToSlash(pattern))

	p := &Pattern{
		raw:     pattern,
		base:    staticBase(pattern),
		literal: !strings.ContainsAny(pattern, globMeta),
	}

	for _, variant := range expandGlobstars(pattern) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidGlob.Error()), "pattern", pattern)
		}
		p.variants = append(p.variants, g)
	}
	return p, nil
}

// String returns the normalized pattern.
func (p *Pattern) String() string {
	return p.raw
}

// Base returns the directory prefix that contains no glob syntax.
// Output paths are computed relative to it.
func (p *Pattern) Base() string {
	return p.base
}

// Match reports whether a slash-separated, project-relative path matches.
func (p *Pattern) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range p.variants {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// staticBase returns the leading path segments free of glob syntax. A
// pattern without glob syntax names a file, so its base is its directory.
func staticBase(pattern string) string {
	if !strings.ContainsAny(pattern, globMeta) {
		return path.Dir(pattern)
	}

	segments := strings.Split(pattern, "/")
	var static []string
	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, globMeta) {
			break
		}
		static = append(static, seg)
	}
	if len(static) == 0 {
		return "."
	}
	return strings.Join(static, "/")
}

// expandGlobstars returns every variant of pattern in which each "**/"
// segment is either kept or dropped, so that "a/**/b" also matches "a/b".
func expandGlobstars(pattern string) []string {
	const star = "**/"
	idx := strings.Index(pattern, star)
	if idx < 0 || (idx > 0 && pattern[idx-1] != '/') {
		return []string{pattern}
	}

	head, tail := pattern[:idx], pattern[idx+len(star):]
	var out []string
	for _, rest := range expandGlobstars(tail) {
		out = append(out, head+star+rest, head+rest)
	}
	return out
}

// File is one match of a source glob.
type File struct {
	// Path is the file path, joined onto the expansion root.
	Path string
	// Rel is the path relative to the matching pattern's base.
	Rel string
}

// Expand resolves patterns against root. Matches are deduplicated and
// sorted by path; a pattern with no matches contributes nothing.
func Expand(root string, patterns []string) ([]File, error) {
	seen := make(map[string]bool)
	var files []File

	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}

		for _, rel := range p.candidates(root) {
			if seen[rel] || !p.Match(rel) {
				continue
			}
			seen[rel] = true

			relToBase := rel
			if p.base != "." {
				relToBase = strings.TrimPrefix(rel, p.base+"/")
			}
			files = append(files, File{
				Path: filepath.Join(root, filepath.FromSlash(rel)),
				Rel:  filepath.FromSlash(relToBase),
			})
		}
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// candidates lists slash-separated, root-relative paths the pattern may match.
func (p *Pattern) candidates(root string) []string {
	if p.literal {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(p.raw)))
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		return []string{p.raw}
	}

	var out []string
	for file := range WalkFiles(filepath.Join(root, filepath.FromSlash(p.base))) {
		rel, err := filepath.Rel(root, file)
		if err != nil {
			continue
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// Matcher matches paths against a set of patterns.
type Matcher struct {
	patterns []*Pattern
}

// NewMatcher compiles patterns into a Matcher.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match reports whether rel matches any pattern.
func (m *Matcher) Match(rel string) bool {
	for _, p := range m.patterns {
		if p.Match(rel) {
			return true
		}
	}
	return false
}

// Bases returns the distinct static bases of the patterns.
func (m *Matcher) Bases() []string {
	var bases []string
	for _, p := range m.patterns {
		if !slices.Contains(bases, p.base) {
			bases = append(bases, p.base)
		}
	}
	return bases
}
