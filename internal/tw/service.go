package tw

import (
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// TWService is the orchestration layer that drives captures and checks
// across the filesystem, hasher and stores.
type TWService struct {
	fsmgr     FilesystemManager
	hasher    Hasher
	baselines BaselineStore
	reports   ReportStore
	logger    Logger
	clock     Clock
	host      HostProvider
	workers   int
}

// NewTWService creates a new TWService with the provided dependencies.
// workers bounds the number of paths processed in parallel; values below one
// mean runtime.NumCPU().
func NewTWService(fsmgr FilesystemManager, hasher Hasher, baselines BaselineStore, reports ReportStore, logger Logger, clock Clock, host HostProvider, workers int) *TWService {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &TWService{
		fsmgr:     fsmgr,
		hasher:    hasher,
		baselines: baselines,
		reports:   reports,
		logger:    logger,
		clock:     clock,
		host:      host,
		workers:   workers,
	}
}

// Workers returns the size of the worker pool.
func (s *TWService) Workers() int {
	return s.workers
}

type walkItem struct {
	path string
	err  error
}

// scanResult is the outcome of processing one path. entity is nil when the
// path could not be captured; err is set for any soft failure, including a
// digest failure on an otherwise captured entity.
type scanResult struct {
	path   string
	entity *FileEntity
	err    *ScanError
}

// vanished reports whether the path disappeared between enumeration and capture.
func (r scanResult) vanished() bool {
	return r.entity == nil && r.err != nil && errors.Is(r.err.Err, fs.ErrNotExist)
}

// ownPaths holds the absolute paths of files the run itself writes.
type ownPaths map[string]bool

func newOwnPaths(paths ...string) ownPaths {
	own := make(ownPaths, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			own[abs] = true
		}
	}
	return own
}

func (o ownPaths) contains(path string) bool {
	if len(o) == 0 {
		return false
	}
	abs, err := filepath.Abs(path)
	return err == nil && o[abs]
}

// scan walks root sequentially and processes every yielded path on the worker
// pool. Paths in own are never processed: a baseline or report written inside
// root must not end up describing itself. sink is called from the worker
// goroutine with that worker's index, so callers can keep per-worker state
// without locking.
func (s *TWService) scan(root string, exclude []string, own ownPaths, sink func(worker int, r scanResult)) error {
	paths := make(chan walkItem, s.workers*4)

	var g errgroup.Group
	g.Go(func() error {
		defer close(paths)
		return s.fsmgr.Walk(root, exclude, func(path string, err error) error {
			if own.contains(path) {
				s.logger.Debug("skipping own output", "path", path)
				return nil
			}
			paths <- walkItem{path: path, err: err}
			return nil
		})
	})

	for w := range s.workers {
		g.Go(func() error {
			for item := range paths {
				sink(w, s.process(item))
			}
			return nil
		})
	}

	return g.Wait()
}

// process captures a single path: lstat, stat data, then digests for regular files.
func (s *TWService) process(item walkItem) scanResult {
	if item.err != nil {
		return scanResult{path: item.path, err: &ScanError{Stage: StageWalk, Path: item.path, Err: item.err}}
	}

	info, err := s.fsmgr.Lstat(item.path)
	if err != nil {
		return scanResult{path: item.path, err: &ScanError{Stage: StageStat, Path: item.path, Err: err}}
	}
	stat, err := s.fsmgr.ExtractStatData(info)
	if err != nil {
		return scanResult{path: item.path, err: &ScanError{Stage: StageStat, Path: item.path, Err: err}}
	}

	var sums Digests
	var digestErr error
	if KindOf(info.Mode()) == KindFile {
		sums, digestErr = s.hasher.HashFile(item.path)
	}

	res := scanResult{path: item.path, entity: NewFileEntity(item.path, info, stat, sums)}
	if digestErr != nil {
		res.err = &ScanError{Stage: StageDigest, Path: item.path, Err: digestErr}
	}
	return res
}
