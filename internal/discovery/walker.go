package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// TargetFile pairs a target file's absolute path with the forward-slash
// relative display name the scripted side and terminal output use as its
// stable identifier.
type TargetFile struct {
	AbsPath string
	RelName string
}

// Options configures one discovery pass.
type Options struct {
	// Root is the project root every glob is interpreted relative to.
	Root string

	// IncludeGlobs, ExcludeGlobs are the profile's glob sets.
	IncludeGlobs []string
	ExcludeGlobs []string

	// InitScriptAbs, if non-empty, is treated as an additional implicit
	// exclude: the file a profile loads before discovery must never also be
	// selected as a target file.
	InitScriptAbs string

	// Ignorer is consulted in addition to ExcludeGlobs (the project-level
	// .lunestignore supplement). May be nil.
	Ignorer Ignorer
}

// Walker discovers target files beneath a root directory.
type Walker struct {
	logger *slog.Logger
}

// NewWalker returns a Walker that logs under the "discovery" component.
func NewWalker() *Walker {
	return &Walker{logger: slog.Default().With("component", "discovery")}
}

// Walk returns the target files selected by opts, in deterministic pre-order
// (siblings sorted by file name, directories visited depth-first immediately
// after being listed). Symbolic links are followed; a visited-real-path set
// prevents infinite loops through cyclic symlinks.
func (w *Walker) Walk(opts Options) ([]TargetFile, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	filter := NewPatternFilter(opts.IncludeGlobs, opts.ExcludeGlobs)

	var initRel string
	if opts.InitScriptAbs != "" {
		if rel, err := filepath.Rel(root, opts.InitScriptAbs); err == nil {
			initRel = normalize(rel)
		}
	}

	sym := NewSymlinkResolver()
	var results []TargetFile

	var walkDir func(absDir, relDir string) error
	walkDir = func(absDir, relDir string) error {
		entries, err := os.ReadDir(absDir)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", absDir, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			name := entry.Name()
			absPath := filepath.Join(absDir, name)
			relPath := name
			if relDir != "" {
				relPath = relDir + "/" + name
			}

			isDir := entry.IsDir()
			isSymlink := entry.Type()&os.ModeSymlink != 0
			if isSymlink {
				realPath, isLoop, err := sym.Resolve(absPath)
				if err != nil {
					w.logger.Debug("symlink error", "path", relPath, "error", err)
					continue
				}
				if isLoop {
					w.logger.Debug("symlink loop skipped", "path", relPath)
					continue
				}
				sym.MarkVisited(realPath)
				fi, err := os.Stat(absPath)
				if err != nil {
					continue
				}
				isDir = fi.IsDir()
				absPath = realPath
			}

			if isDir {
				if opts.Ignorer != nil && opts.Ignorer.IsIgnored(relPath, true) {
					continue
				}
				if !filter.MatchesDir(relPath) {
					w.logger.Debug("directory excluded", "path", relPath)
					continue
				}
				if err := walkDir(absPath, relPath); err != nil {
					return err
				}
				continue
			}

			if relPath == initRel {
				continue
			}
			if opts.Ignorer != nil && opts.Ignorer.IsIgnored(relPath, false) {
				continue
			}
			if filter.MatchesFile(relPath) {
				results = append(results, TargetFile{AbsPath: absPath, RelName: relPath})
			}
		}
		return nil
	}

	if err := walkDir(root, ""); err != nil {
		return nil, err
	}

	w.logger.Debug("discovery complete", "files", len(results))
	return results, nil
}
