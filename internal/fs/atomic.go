package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// PendingFile is an output file that only appears at its destination once
// committed. Data is written to a temp file in the destination directory so
// the final rename is atomic.
type PendingFile struct {
	dest string
	tmp  *os.File
	done bool
}

var errPendingClosed = errors.New("pending file already committed or aborted")

// CreatePending opens a temp file next to dest.
func CreatePending(dest string) (*PendingFile, error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &PendingFile{dest: dest, tmp: tmp}, nil
}

// Name returns the path of the temp file.
func (p *PendingFile) Name() string {
	return p.tmp.Name()
}

// Write appends to the temp file.
func (p *PendingFile) Write(b []byte) (int, error) {
	if p.done {
		return 0, errPendingClosed
	}
	return p.tmp.Write(b)
}

// Commit syncs the temp file and renames it over the destination.
// On failure the temp file is removed and the destination is untouched.
func (p *PendingFile) Commit() error {
	if p.done {
		return errPendingClosed
	}
	p.done = true
	tmpPath := p.tmp.Name()

	if err := p.tmp.Sync(); err != nil {
		p.tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := p.tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, p.dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (p *PendingFile) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	p.tmp.Close()
	if err := os.Remove(p.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to dest through a PendingFile.
func WriteFileAtomic(dest string, data []byte) error {
	p, err := CreatePending(dest)
	if err != nil {
		return err
	}
	if _, err := p.Write(data); err != nil {
		p.Abort()
		return fmt.Errorf("failed to write data: %w", err)
	}
	return p.Commit()
}
