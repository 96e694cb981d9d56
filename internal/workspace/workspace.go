// Package workspace manages the per-invocation temp directory: the
// materialized bootstrap script, the per-child scratch subdirectories, and
// their scoped, best-effort cleanup.
package workspace

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
)

//go:embed assets/bootstrap.lua
var bootstrapScript []byte

// BootstrapScript returns the embedded bootstrap script's contents
// unmodified, for the wrapper CLI command.
func BootstrapScript() []byte {
	return bootstrapScript
}

// TempWorkspace is the scratch directory for one invocation: the bootstrap
// script is written once, and each child gets its own numbered subdirectory
// allocated by a monotonic counter.
type TempWorkspace struct {
	root          string
	bootstrapPath string
	counter       atomic.Uint64
	keep          bool
}

// New creates a fresh temp workspace under the OS temp directory and writes
// the bootstrap script into it. If keep is true, Close leaves the directory
// on disk instead of removing it.
func New(keep bool) (*TempWorkspace, error) {
	root, err := os.MkdirTemp("", "lunest-*")
	if err != nil {
		return nil, fmt.Errorf("create temp workspace: %w", err)
	}

	bootstrapPath := filepath.Join(root, "main.lua")
	if err := os.WriteFile(bootstrapPath, bootstrapScript, 0o644); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("write bootstrap script: %w", err)
	}

	return &TempWorkspace{root: root, bootstrapPath: bootstrapPath, keep: keep}, nil
}

// Root returns the workspace's root directory.
func (w *TempWorkspace) Root() string { return w.root }

// BootstrapPath returns the absolute path of the materialized bootstrap
// script, passed as the final argument to every child process.
func (w *TempWorkspace) BootstrapPath() string { return w.bootstrapPath }

// ChildDir is one child's scratch subdirectory and its two control files.
type ChildDir struct {
	Dir     string
	InPath  string
	OutPath string
}

// NewChildDir allocates the next `p<hex>` subdirectory and creates its two
// control files: in.jsonl is created exclusively (the host is its sole
// writer) and out.jsonl is created empty for the child to append to and the
// host to read.
func (w *TempWorkspace) NewChildDir() (*ChildDir, error) {
	n := w.counter.Add(1) - 1
	dir := filepath.Join(w.root, fmt.Sprintf("p%x", n))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create child scratch dir: %w", err)
	}

	inPath := filepath.Join(dir, "in.jsonl")
	inFile, err := os.OpenFile(inPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", inPath, err)
	}
	inFile.Close()

	outPath := filepath.Join(dir, "out.jsonl")
	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", outPath, err)
	}
	outFile.Close()

	return &ChildDir{Dir: dir, InPath: inPath, OutPath: outPath}, nil
}

// Close removes the entire workspace tree unless it was created with
// keep=true. Removal is best-effort: per-entry errors are logged, not
// returned, since a half-removed temp directory is harmless to leave behind.
func (w *TempWorkspace) Close() {
	if w.keep {
		slog.Info("keeping temp workspace", "dir", w.root)
		return
	}
	if err := os.RemoveAll(w.root); err != nil {
		slog.Warn("failed to fully remove temp workspace", "dir", w.root, "err", err)
	}
}
