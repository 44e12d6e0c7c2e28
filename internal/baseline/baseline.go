// Package baseline persists baselines as JSON Lines: one self-describing
// FileEntity record per line. Paths ending in ".zst" are zstd-compressed.
package baseline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tw-go/internal/fs"
	"tw-go/internal/tw"
)

// CompressedSuffix selects zstd compression for a baseline path.
const CompressedSuffix = ".zst"

// ParseError reports a malformed baseline record.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("baseline line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store reads and writes baseline files on the local filesystem.
type Store struct{}

// NewStore creates a baseline store.
func NewStore() *Store {
	return &Store{}
}

// Create starts a baseline that replaces path when committed.
func (s *Store) Create(path string) (tw.BaselineWriter, error) {
	pending, err := fs.CreatePending(path)
	if err != nil {
		return nil, fmt.Errorf("creating baseline %s: %w", path, err)
	}

	w := &Writer{pending: pending}
	var sink io.Writer = pending
	if IsCompressed(path) {
		zw, err := zstd.NewWriter(pending, zstd.WithEncoderConcurrency(1))
		if err != nil {
			pending.Abort()
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		w.zw = zw
		sink = zw
	}
	w.buf = bufio.NewWriter(sink)
	w.enc = json.NewEncoder(w.buf)
	return w, nil
}

// Load reads every record of the baseline at path into memory.
// The first malformed record fails the whole load.
func (s *Store) Load(path string) (tw.Baseline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening baseline: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsCompressed(path) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	b, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("reading baseline %s: %w", path, err)
	}
	return b, nil
}

// IsCompressed reports whether path selects zstd compression.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// Writer streams entities into a pending baseline file.
type Writer struct {
	pending *fs.PendingFile
	zw      *zstd.Encoder
	buf     *bufio.Writer
	enc     *json.Encoder
	count   int
}

// Write appends one record.
func (w *Writer) Write(e *tw.FileEntity) error {
	if err := w.enc.Encode(e); err != nil {
		return fmt.Errorf("encoding %s: %w", e.Path, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written so far.
func (w *Writer) Count() int {
	return w.count
}

// TempPath returns where the records are staged until Commit.
func (w *Writer) TempPath() string {
	return w.pending.Name()
}

// Commit flushes all records and moves the baseline into place.
func (w *Writer) Commit() error {
	if err := w.buf.Flush(); err != nil {
		w.pending.Abort()
		return fmt.Errorf("flushing baseline: %w", err)
	}
	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			w.pending.Abort()
			return fmt.Errorf("closing zstd stream: %w", err)
		}
	}
	return w.pending.Commit()
}

// Abort discards everything written so far.
func (w *Writer) Abort() error {
	if w.zw != nil {
		w.zw.Close()
	}
	return w.pending.Abort()
}

// Decode parses JSON Lines from r into a Baseline. Blank lines are skipped;
// if a path repeats, the last record wins.
func Decode(r io.Reader) (tw.Baseline, error) {
	b := make(tw.Baseline)
	br := bufio.NewReader(r)

	for line := 1; ; line++ {
		raw, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			var e tw.FileEntity
			if uerr := json.Unmarshal(trimmed, &e); uerr != nil {
				return nil, &ParseError{Line: line, Err: uerr}
			}
			if verr := e.Validate(); verr != nil {
				return nil, &ParseError{Line: line, Err: verr}
			}
			b[e.Path] = &e
		}

		if errors.Is(err, io.EOF) {
			return b, nil
		}
	}
}

// Compile-time check that Store implements tw.BaselineStore interface
var _ tw.BaselineStore = (*Store)(nil)
