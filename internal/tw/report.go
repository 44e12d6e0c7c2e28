package tw

import "time"

// Report is the result of one check run.
type Report struct {
	Timestamp string   `json:"ts"`
	Host      string   `json:"host"`
	Root      string   `json:"root,omitempty"`
	Baseline  string   `json:"baseline,omitempty"`
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Modified  []string `json:"modified"`
	Errors    []string `json:"errors"`
}

// NewReport wraps a diff result with the time and host it was produced on.
func NewReport(now time.Time, host, root, baselinePath string, d *DiffResult) *Report {
	return &Report{
		Timestamp: now.UTC().Format(time.RFC3339),
		Host:      host,
		Root:      root,
		Baseline:  baselinePath,
		Added:     nonNil(d.Added),
		Removed:   nonNil(d.Removed),
		Modified:  nonNil(d.Modified),
		Errors:    nonNil(d.Errors),
	}
}

// HasChanges reports whether any path was added, removed or modified.
func (r *Report) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Modified) > 0
}

// NeedsAttention reports whether the report has changes or per-path errors.
func (r *Report) NeedsAttention() bool {
	return r.HasChanges() || len(r.Errors) > 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ReportStore persists reports.
type ReportStore interface {
	Save(path string, r *Report) error
	Load(path string) (*Report, error)
}
