package testutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"tw-go/internal/tw"
)

// WriteTree creates files under root. Keys are slash-separated paths relative
// to root; parent directories are created as needed.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// FaultyFilesystem wraps a FilesystemManager and injects per-path failures.
// Faults may be added while a scan runs.
type FaultyFilesystem struct {
	tw.FilesystemManager

	mu        sync.Mutex
	lstatErrs map[string]error
	openErrs  map[string]error
	walkErrs  map[string]error
}

// NewFaultyFilesystem wraps inner with no faults configured.
func NewFaultyFilesystem(inner tw.FilesystemManager) *FaultyFilesystem {
	return &FaultyFilesystem{
		FilesystemManager: inner,
		lstatErrs:         make(map[string]error),
		openErrs:          make(map[string]error),
		walkErrs:          make(map[string]error),
	}
}

// FailLstat makes Lstat of path return err.
func (f *FaultyFilesystem) FailLstat(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lstatErrs[path] = err
}

// Vanish makes path look deleted between enumeration and capture.
func (f *FaultyFilesystem) Vanish(path string) {
	f.FailLstat(path, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist})
}

// FailOpen makes Open of path return err.
func (f *FaultyFilesystem) FailOpen(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErrs[path] = err
}

// FailWalk makes Walk yield path with err in addition to the real entries.
func (f *FaultyFilesystem) FailWalk(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walkErrs[path] = err
}

func (f *FaultyFilesystem) Walk(root string, exclude []string, fn tw.WalkFunc) error {
	if err := f.FilesystemManager.Walk(root, exclude, fn); err != nil {
		return err
	}
	f.mu.Lock()
	injected := make(map[string]error, len(f.walkErrs))
	for p, err := range f.walkErrs {
		injected[p] = err
	}
	f.mu.Unlock()
	for p, err := range injected {
		if err := fn(p, err); err != nil {
			return err
		}
	}
	return nil
}

func (f *FaultyFilesystem) Lstat(path string) (fs.FileInfo, error) {
	f.mu.Lock()
	err := f.lstatErrs[path]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.FilesystemManager.Lstat(path)
}

func (f *FaultyFilesystem) Open(path string) (io.ReadCloser, error) {
	f.mu.Lock()
	err := f.openErrs[path]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.FilesystemManager.Open(path)
}

// Compile-time check that FaultyFilesystem implements tw.FilesystemManager interface
var _ tw.FilesystemManager = (*FaultyFilesystem)(nil)
