// Package report persists check reports as indented JSON and renders them
// for operators.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"tw-go/internal/fs"
	"tw-go/internal/tw"
)

// Store reads and writes reports on the local filesystem.
type Store struct{}

// NewStore creates a report store.
func NewStore() *Store {
	return &Store{}
}

// Save writes r to path. The file is replaced atomically.
func (s *Store) Save(path string, r *tw.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')
	if err := fs.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// Load reads the report at path.
func (s *Store) Load(path string) (*tw.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r tw.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &r, nil
}

// Summarize prints a human-readable summary of r.
// When verbose is set every path is listed under its section.
func Summarize(w io.Writer, r *tw.Report, verbose bool) error {
	sections := []struct {
		title string
		items []string
	}{
		{"Added", r.Added},
		{"Removed", r.Removed},
		{"Modified", r.Modified},
	}

	if _, err := fmt.Fprintf(w, "Report @ %s on %s\n", r.Timestamp, r.Host); err != nil {
		return err
	}
	if r.Root != "" {
		fmt.Fprintf(w, "  Root: %s\n", r.Root)
	}
	for _, sec := range sections {
		fmt.Fprintf(w, "  %s: %d\n", sec.title, len(sec.items))
		if verbose {
			for _, p := range sec.items {
				fmt.Fprintf(w, "    %s\n", p)
			}
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "  Errors: %d\n", len(r.Errors))
		if verbose {
			for _, e := range r.Errors {
				fmt.Fprintf(w, "    %s\n", e)
			}
		}
	}
	_, err := fmt.Fprintf(w, "Status: %s\n", Status(r))
	return err
}

// Status is "ATTENTION" when r has changes or errors and "OK" otherwise.
func Status(r *tw.Report) string {
	if r.NeedsAttention() {
		return "ATTENTION"
	}
	return "OK"
}

// Compile-time check that Store implements tw.ReportStore interface
var _ tw.ReportStore = (*Store)(nil)
