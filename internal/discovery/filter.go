// Package discovery walks a project tree under a profile's include/exclude
// globs and returns the ordered list of target files the scripted side
// should load.
package discovery

import (
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternFilter applies a profile's include/exclude globs to root-relative,
// forward-slash-normalized paths. Exclude always wins over include; an empty
// include set matches no files.
type PatternFilter struct {
	includes []string
	excludes []string
	logger   *slog.Logger
}

// NewPatternFilter builds a PatternFilter from a profile's glob lists. Both
// slices are copied so later mutation of the caller's slices has no effect.
func NewPatternFilter(includes, excludes []string) *PatternFilter {
	inc := make([]string, len(includes))
	copy(inc, includes)
	exc := make([]string, len(excludes))
	copy(exc, excludes)
	return &PatternFilter{
		includes: inc,
		excludes: exc,
		logger:   slog.Default().With("component", "pattern-filter"),
	}
}

// MatchesDir reports whether a directory's relative path should be pruned:
// it returns false when the directory matches an exclude pattern, meaning the
// whole subtree must be skipped. Include patterns are never checked against
// directories; descent happens unless excluded.
func (f *PatternFilter) MatchesDir(relPath string) bool {
	return !f.matchAny(f.excludes, relPath)
}

// MatchesFile reports whether a file's relative path is a target file: it
// must not match any exclude pattern, and must match at least one include
// pattern.
func (f *PatternFilter) MatchesFile(relPath string) bool {
	if f.matchAny(f.excludes, relPath) {
		return false
	}
	return f.matchAny(f.includes, relPath)
}

func (f *PatternFilter) matchAny(patterns []string, relPath string) bool {
	relPath = normalize(relPath)
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			f.logger.Debug("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// normalize converts a path to the forward-slash form globs are matched
// against. Backslashes are replaced unconditionally (not just on Windows
// hosts) so glob patterns behave the same regardless of where the host
// process runs.
func normalize(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	return strings.TrimPrefix(path, "./")
}
