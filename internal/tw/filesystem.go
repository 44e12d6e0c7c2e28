package tw

import (
	"io"
	"io/fs"
)

// WalkFunc is called by FilesystemManager.Walk for every path it yields.
// A non-nil err reports a path that could not be enumerated; the walk
// continues after the callback returns nil.
type WalkFunc func(path string, err error) error

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access so scans can be driven against fakes in tests.
type FilesystemManager interface {
	// Walk calls fn for root and every path beneath it, in no particular order.
	// Symbolic links are yielded but never followed. Paths matching an
	// exclusion pattern are neither yielded nor descended into. Errors at the
	// root itself are returned; errors below it are passed to fn.
	Walk(root string, exclude []string, fn WalkFunc) error

	// Lstat returns file info for path without following a final symlink.
	Lstat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// ExtractStatData extracts platform-specific stat data from a FileInfo.
	ExtractStatData(info fs.FileInfo) (*StatData, error)
}

// Hasher computes content digests for regular files.
type Hasher interface {
	// HashFile returns the digests of the file at path. Each algorithm is
	// independent: a failed algorithm leaves its digest absent and is reported
	// in the returned error while the others are still returned.
	HashFile(path string) (Digests, error)
}
