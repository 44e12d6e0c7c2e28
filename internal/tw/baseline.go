package tw

// Baseline maps a path to the entity recorded for it.
// A loaded Baseline is only read during a check, so concurrent lookups are safe.
type Baseline map[string]*FileEntity

// BaselineWriter streams entities into a pending baseline.
// Nothing is visible at the destination until Commit succeeds.
// Implementations are not safe for concurrent use.
type BaselineWriter interface {
	Write(e *FileEntity) error
	Commit() error
	Abort() error

	// Count returns the number of entities written so far.
	Count() int

	// TempPath is where entities are staged until Commit.
	TempPath() string
}

// BaselineStore persists and loads baselines.
type BaselineStore interface {
	// Create starts a new baseline that will replace path on Commit.
	Create(path string) (BaselineWriter, error)

	// Load reads a complete baseline. Any malformed record fails the load.
	Load(path string) (Baseline, error)
}
