package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/zeebo/blake3"

	"tw-go/internal/tw"
)

// Algorithm names a content hash.
type Algorithm string

const (
	// BLAKE3 is the primary digest, always computed.
	BLAKE3 Algorithm = "blake3"
	// SHA256 is the optional secondary digest.
	SHA256 Algorithm = "sha256"
)

// DefaultBufferSize is the read buffer used per file.
const DefaultBufferSize = 1 << 20

// Options configures the digest engine.
type Options struct {
	// BufferSize bounds memory per hashed file. Default: 1 MiB.
	BufferSize int

	// Secondary enables the SHA-256 digest alongside BLAKE3.
	Secondary bool
}

// DefaultOptions returns the recommended default options.
func DefaultOptions() Options {
	return Options{BufferSize: DefaultBufferSize}
}

// OpenFunc opens a file for reading.
type OpenFunc func(path string) (io.ReadCloser, error)

// Engine streams files through the configured algorithms.
// It is safe for concurrent use; buffers are pooled across callers.
type Engine struct {
	opts Options
	open OpenFunc
	bufs sync.Pool
}

// NewEngine creates an engine that reads files through open.
func NewEngine(opts Options, open OpenFunc) *Engine {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	e := &Engine{opts: opts, open: open}
	e.bufs.New = func() any {
		b := make([]byte, e.opts.BufferSize)
		return &b
	}
	return e
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case BLAKE3:
		return blake3.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

// Sum streams r through algo and returns the lowercase hex digest.
func (e *Engine) Sum(r io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	bp := e.bufs.Get().(*[]byte)
	defer e.bufs.Put(bp)
	buf := *bp

	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile opens path and returns its digest under algo.
func (e *Engine) SumFile(path string, algo Algorithm) (string, error) {
	f, err := e.open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return e.Sum(f, algo)
}

// HashFile computes the primary digest and, when enabled, the secondary one.
// Each algorithm reads the file in its own pass so a failure in one leaves
// the other intact.
func (e *Engine) HashFile(path string) (tw.Digests, error) {
	var sums tw.Digests
	var errs []error

	if h, err := e.SumFile(path, BLAKE3); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", BLAKE3, err))
	} else {
		sums.Primary = tw.NewDigest(h)
	}

	if e.opts.Secondary {
		if h, err := e.SumFile(path, SHA256); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", SHA256, err))
		} else {
			sums.Secondary = tw.NewDigest(h)
		}
	}

	return sums, errors.Join(errs...)
}

// Compile-time check that Engine implements tw.Hasher interface
var _ tw.Hasher = (*Engine)(nil)
