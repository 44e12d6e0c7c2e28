package tw

import (
	"errors"
	"fmt"
)

// ErrChangesDetected is returned by callers that need to signal a report with
// changes or per-path errors, e.g. through the process exit status.
var ErrChangesDetected = errors.New("changes detected")

// Stage names the step at which a per-path error happened.
type Stage string

const (
	StageWalk   Stage = "walk"
	StageStat   Stage = "stat"
	StageDigest Stage = "digest"
)

// ScanError is a soft, per-path failure. It never aborts a scan.
type ScanError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s error: %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
