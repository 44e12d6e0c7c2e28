package tw

import "fmt"

// CheckResult is the saved report plus the number of entities observed.
type CheckResult struct {
	Report   *Report
	Observed int
}

// Check loads the baseline at baselinePath, walks root and writes a report of
// every added, removed and modified path to out.
//
// Per-path failures are recorded in the report's errors and never stop the
// run. Failing to load the baseline, walk the root or save the report aborts
// without writing anything.
func (s *TWService) Check(root, baselinePath, out string, exclude []string) (*CheckResult, error) {
	s.logger.Info("check started", "root", root, "baseline", baselinePath, "workers", s.workers)

	baseline, err := s.baselines.Load(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("loading baseline: %w", err)
	}
	s.logger.Debug("baseline loaded", "entities", len(baseline))

	accs := make([]*Accumulator, s.workers)
	for i := range accs {
		accs[i] = NewAccumulator(baseline)
	}

	own := newOwnPaths(baselinePath, out)
	err = s.scan(root, exclude, own, func(w int, r scanResult) {
		acc := accs[w]
		if r.err != nil {
			s.logger.Warn("path error", "path", r.path, "stage", string(r.err.Stage), "error", r.err.Err)
			acc.Fail(r.path, r.err)
		}
		if r.entity != nil {
			if c := acc.Observe(r.entity); c != Unchanged {
				s.logger.Debug("path changed", "path", r.path, "change", c.String())
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	diff := Merge(baseline, accs...)
	report := NewReport(s.clock.Now(), s.host.Hostname(), root, baselinePath, diff)

	if err := s.reports.Save(out, report); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	s.logger.Info("check finished",
		"root", root,
		"observed", diff.Observed,
		"added", len(report.Added),
		"removed", len(report.Removed),
		"modified", len(report.Modified),
		"errors", len(report.Errors),
	)
	return &CheckResult{Report: report, Observed: diff.Observed}, nil
}

// Stats summarizes the check for the run history.
func (c *CheckResult) Stats() RunStats {
	return RunStats{
		Entities: c.Observed,
		Added:    len(c.Report.Added),
		Removed:  len(c.Report.Removed),
		Modified: len(c.Report.Modified),
		Errors:   len(c.Report.Errors),
	}
}
