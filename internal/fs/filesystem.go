package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"tw-go/internal/tw"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	exclude []string
}

// NewOSFilesystemManager creates a filesystem manager whose walks always
// apply the given exclusion patterns, on top of any passed per walk.
func NewOSFilesystemManager(exclude []string) *OSFilesystemManager {
	return &OSFilesystemManager{exclude: exclude}
}

// Walk traverses root with filepath.WalkDir, which never follows symlinks.
func (m *OSFilesystemManager) Walk(root string, exclude []string, fn tw.WalkFunc) error {
	root = filepath.Clean(root)

	patterns := make([]string, 0, len(m.exclude)+len(exclude))
	patterns = append(patterns, m.exclude...)
	patterns = append(patterns, exclude...)
	matcher, err := NewExcludeMatcher(patterns)
	if err != nil {
		return err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if p == root {
			if err != nil {
				return fmt.Errorf("reading root: %w", err)
			}
			return fn(p, nil)
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return fn(p, relErr)
		}
		if matcher.Match(rel, filepath.Join(absRoot, rel)) {
			if d != nil && d.IsDir() && err == nil {
				return filepath.SkipDir
			}
			return nil
		}

		// A failed ReadDir reports the directory a second time with err set.
		return fn(p, err)
	})
}

// Lstat returns file info without following a final symlink.
func (m *OSFilesystemManager) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// Open opens a file for reading. Directories are rejected.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return f, nil
}

// Compile-time check that OSFilesystemManager implements tw.FilesystemManager interface
var _ tw.FilesystemManager = (*OSFilesystemManager)(nil)
