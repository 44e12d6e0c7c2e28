package app

import (
	"github.com/google/uuid"

	"tw-go/internal/tw"
)

// Operation tracks one CLI invocation. OpID tags every log line of the
// invocation; RunID is set once the operation is recorded in the history.
type Operation struct {
	OpID       string
	RunID      int64
	Name       string
	Parameters string
	Status     string
}

// NewOperation creates an in-memory operation with a fresh OpID.
func NewOperation(name string) *Operation {
	return &Operation{
		OpID:   uuid.NewString(),
		Name:   name,
		Status: tw.RunSuccess,
	}
}

// Persisted returns true if this operation has been recorded in the history.
func (op *Operation) Persisted() bool {
	return op.RunID != 0
}

// statusFor maps a completed check's report to a run status.
func statusFor(r *tw.Report) string {
	if r.NeedsAttention() {
		return tw.RunChanges
	}
	return tw.RunSuccess
}
