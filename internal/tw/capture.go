package tw

import (
	"fmt"
	"sync/atomic"
)

// CaptureResult summarizes a capture.
type CaptureResult struct {
	Entities int
	Dropped  int
	Partial  int // entities written without one or more digests
}

// Capture walks root and writes a baseline of every entity to out.
// Paths that cannot be captured are dropped: without an expected state a
// transient miss carries no signal. The baseline only appears at out once the
// whole walk has been written, and neither out nor its staging file is ever
// recorded.
func (s *TWService) Capture(root, out string, exclude []string) (*CaptureResult, error) {
	s.logger.Info("capture started", "root", root, "out", out, "workers", s.workers)

	w, err := s.baselines.Create(out)
	if err != nil {
		return nil, fmt.Errorf("creating baseline: %w", err)
	}

	entities := make(chan *FileEntity, s.workers*4)
	writeDone := make(chan error, 1)
	go func() {
		var werr error
		for e := range entities {
			if werr == nil {
				werr = w.Write(e)
			}
		}
		writeDone <- werr
	}()

	var dropped, partial atomic.Int64
	own := newOwnPaths(out, w.TempPath())
	scanErr := s.scan(root, exclude, own, func(_ int, r scanResult) {
		if r.err != nil {
			switch {
			case r.entity != nil:
				partial.Add(1)
				s.logger.Warn("digest failed", "path", r.path, "error", r.err.Err)
			case r.vanished():
				dropped.Add(1)
				s.logger.Debug("path vanished", "path", r.path)
			default:
				dropped.Add(1)
				s.logger.Debug("path dropped", "path", r.path, "stage", string(r.err.Stage), "error", r.err.Err)
			}
		}
		if r.entity != nil {
			entities <- r.entity
		}
	})
	close(entities)
	writeErr := <-writeDone

	if scanErr != nil {
		w.Abort()
		return nil, fmt.Errorf("walking %s: %w", root, scanErr)
	}
	if writeErr != nil {
		w.Abort()
		return nil, fmt.Errorf("writing baseline: %w", writeErr)
	}
	written := w.Count()
	if err := w.Commit(); err != nil {
		return nil, fmt.Errorf("committing baseline: %w", err)
	}

	res := &CaptureResult{Entities: written, Dropped: int(dropped.Load()), Partial: int(partial.Load())}
	s.logger.Info("capture finished", "root", root, "entities", res.Entities, "dropped", res.Dropped, "partial", res.Partial)
	return res, nil
}
