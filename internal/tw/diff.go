package tw

import (
	"fmt"
	"slices"
)

// Change is the classification of one path against the baseline.
type Change int

const (
	// Unchanged indicates the classification keys match
	Unchanged Change = iota
	// Added indicates the path is not in the baseline
	Added
	// Removed indicates the path is in the baseline but was not observed
	Removed
	// Modified indicates the path exists in both but its key differs
	Modified
)

func (c Change) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return fmt.Sprintf("Change(%d)", int(c))
	}
}

// Classify compares the baseline entity old with the observed entity cur.
// Either may be nil to mean "absent on that side".
func Classify(old, cur *FileEntity) Change {
	switch {
	case old == nil && cur == nil:
		return Unchanged
	case old == nil:
		return Added
	case cur == nil:
		return Removed
	}
	if sameKey(old, cur) {
		return Unchanged
	}
	return Modified
}

// sameKey compares the classification keys of two entities for one path.
//
// Regular files compare (primary digest, size, mode, mtime). A missing primary
// digest on either side never matches. Secondary digests are compared only
// when both sides carry one. Every other kind compares (kind, mode) only, so
// directory timestamp churn is not reported.
func sameKey(old, cur *FileEntity) bool {
	if old.Kind != cur.Kind {
		return false
	}
	switch cur.Kind {
	case KindFile:
		if !old.Primary.Valid || !cur.Primary.Valid || old.Primary.Hex != cur.Primary.Hex {
			return false
		}
		if old.Secondary.Valid && cur.Secondary.Valid && old.Secondary.Hex != cur.Secondary.Hex {
			return false
		}
		return old.Size == cur.Size && old.Mode == cur.Mode && old.MTime == cur.MTime
	case KindDir, KindSymlink, KindSpecial:
		return old.Mode == cur.Mode
	default:
		panic(fmt.Sprintf("tw: no classification key for %v", cur.Kind))
	}
}

// Accumulator collects classifications for the paths one worker observed.
// It is owned by a single goroutine; results from all workers are combined
// with Merge once the scan is over.
type Accumulator struct {
	baseline Baseline
	seen     map[string]struct{}
	added    []string
	modified []string
	errors   []string
}

// NewAccumulator returns an accumulator reading from baseline.
func NewAccumulator(baseline Baseline) *Accumulator {
	return &Accumulator{
		baseline: baseline,
		seen:     make(map[string]struct{}),
	}
}

// Observe classifies an entity from the current walk.
func (a *Accumulator) Observe(e *FileEntity) Change {
	old, ok := a.baseline[e.Path]
	if ok {
		a.seen[e.Path] = struct{}{}
	}
	c := Classify(old, e)
	switch c {
	case Added:
		a.added = append(a.added, e.Path)
	case Modified:
		a.modified = append(a.modified, e.Path)
	}
	return c
}

// Fail records a per-path error. A baseline path that failed is counted as
// seen: its state is unknown, so it is reported as an error and not as removed.
func (a *Accumulator) Fail(path string, err error) {
	if _, ok := a.baseline[path]; ok {
		a.seen[path] = struct{}{}
	}
	a.errors = append(a.errors, err.Error())
}

// DiffResult is the merged outcome of a check, with every list sorted.
type DiffResult struct {
	Added    []string
	Removed  []string
	Modified []string
	Errors   []string
	Observed int
}

// Merge combines worker accumulators and computes the removed set as the
// baseline paths no worker saw.
func Merge(baseline Baseline, accs ...*Accumulator) *DiffResult {
	d := &DiffResult{}
	seen := make(map[string]struct{}, len(baseline))
	for _, a := range accs {
		d.Added = append(d.Added, a.added...)
		d.Modified = append(d.Modified, a.modified...)
		d.Errors = append(d.Errors, a.errors...)
		for p := range a.seen {
			seen[p] = struct{}{}
		}
	}
	d.Observed = len(seen) + len(d.Added)
	for p := range baseline {
		if _, ok := seen[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	slices.Sort(d.Added)
	slices.Sort(d.Removed)
	slices.Sort(d.Modified)
	slices.Sort(d.Errors)
	return d
}
