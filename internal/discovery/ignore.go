package discovery

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Ignorer evaluates whether a root-relative, forward-slash path should be
// excluded from discovery regardless of a profile's own glob sets. isDir
// distinguishes directory-only patterns from file patterns.
type Ignorer interface {
	IsIgnored(path string, isDir bool) bool
}

// CompositeIgnorer chains multiple Ignorer sources; a path is ignored if any
// one of them matches it.
type CompositeIgnorer struct {
	ignorers []Ignorer
}

// NewCompositeIgnorer builds a CompositeIgnorer from the given sources,
// silently skipping any nil entries.
func NewCompositeIgnorer(ignorers ...Ignorer) *CompositeIgnorer {
	filtered := make([]Ignorer, 0, len(ignorers))
	for _, ig := range ignorers {
		if ig != nil {
			filtered = append(filtered, ig)
		}
	}
	return &CompositeIgnorer{ignorers: filtered}
}

// IsIgnored returns true if any chained ignorer matches path.
func (c *CompositeIgnorer) IsIgnored(path string, isDir bool) bool {
	for _, ig := range c.ignorers {
		if ig.IsIgnored(path, isDir) {
			return true
		}
	}
	return false
}

var _ Ignorer = (*CompositeIgnorer)(nil)

// LunestIgnoreMatcher applies the gitignore-syntax patterns of a single
// project-root .lunestignore file across every profile, supplementing (never
// replacing) a profile's own exclude_globs.
type LunestIgnoreMatcher struct {
	matcher *gitignore.GitIgnore
}

// LoadLunestIgnore reads <root>/.lunestignore if present. A missing file is
// not an error: it returns (nil, nil), meaning no supplemental ignores apply.
func LoadLunestIgnore(root string) (*LunestIgnoreMatcher, error) {
	path := filepath.Join(root, ".lunestignore")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	m, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "discovery").Debug("loaded .lunestignore", "path", path)
	return &LunestIgnoreMatcher{matcher: m}, nil
}

// IsIgnored reports whether path matches the .lunestignore patterns. A
// directory path is matched with a trailing slash so directory-only patterns
// such as "fixtures/" apply to it.
func (m *LunestIgnoreMatcher) IsIgnored(path string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	if isDir && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return m.matcher.MatchesPath(path)
}

var _ Ignorer = (*LunestIgnoreMatcher)(nil)
