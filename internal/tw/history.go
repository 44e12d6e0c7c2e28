package tw

import (
	"database/sql"
	"time"
)

// Run statuses recorded in the history.
const (
	RunSuccess = "success"
	RunChanges = "changes"
	RunError   = "error"
)

// RunStats summarizes the outcome of one capture or check.
type RunStats struct {
	Entities int
	Added    int
	Removed  int
	Modified int
	Errors   int
}

// Run is one recorded capture or check invocation.
type Run struct {
	ID         int64
	OpID       string
	Operation  string
	Root       string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Stats      RunStats
}

// History records scan runs.
type History interface {
	// StartRun records the start of an operation and assigns it an ID.
	// opID is the identifier the operation's log lines carry.
	StartRun(opID, operation, root, parameters string) (*Run, error)

	// FinishRun stores the final status and stats for a run.
	FinishRun(id int64, status string, stats RunStats) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// Close releases the underlying storage.
	Close() error
}

// NopHistory discards everything. It backs history.type = "none".
type NopHistory struct{}

func (NopHistory) StartRun(opID, operation, root, parameters string) (*Run, error) {
	return &Run{OpID: opID, Operation: operation, Root: root, Parameters: parameters, StartedAt: time.Now()}, nil
}
func (NopHistory) FinishRun(int64, string, RunStats) error { return nil }
func (NopHistory) ListRuns(int) ([]*Run, error)            { return nil, nil }
func (NopHistory) Close() error                            { return nil }
