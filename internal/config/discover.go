package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// maxSearchDepth bounds the upward directory search, to prevent runaway
// traversal on an unusually deep or looping filesystem.
const maxSearchDepth = 64

// candidateNames is checked, in order, at every directory level ascended.
// The first match wins; lower-priority names at the same level are not
// consulted once a higher one is found there.
var candidateNames = []string{"lunest.toml", ".lunest.toml", filepath.Join(".config", "lunest.toml")}

// Discover walks up the directory tree from startDir looking for a lunest
// config file under any of candidateNames. It returns the absolute path of
// the first match, or "" if none is found before reaching the filesystem
// root or maxSearchDepth levels.
func Discover(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("abs path for %s: %w", startDir, err)
	}

	if resolved, evalErr := filepath.EvalSymlinks(abs); evalErr == nil {
		abs = resolved
	} else {
		slog.Debug("symlink eval failed, using unresolved path", "dir", abs, "err", evalErr)
	}

	dir := abs
	for depth := 0; depth < maxSearchDepth; depth++ {
		for _, name := range candidateNames {
			candidate := filepath.Join(dir, name)
			if _, statErr := os.Stat(candidate); statErr == nil {
				slog.Debug("discovered config", "path", candidate, "depth", depth)
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			slog.Debug("reached filesystem root without finding a config file")
			return "", nil
		}
		dir = parent
	}

	slog.Debug("reached max search depth without finding a config file", "maxDepth", maxSearchDepth)
	return "", nil
}

// Load discovers and parses the config file reachable from startDir. The
// config's root directory is the directory the config file was found in
// (not startDir itself, which may be a subdirectory). If no config file is
// found, Load returns a Config backed by an empty configFile rooted at
// startDir, so callers can still resolve the built-in default profile.
func Load(startDir string) (*Config, error) {
	path, err := Discover(startDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		abs, err := filepath.Abs(startDir)
		if err != nil {
			return nil, fmt.Errorf("abs path for %s: %w", startDir, err)
		}
		return &Config{rootDir: abs}, nil
	}
	return LoadFromFile(path, filepath.Dir(path))
}
