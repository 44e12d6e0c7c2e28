package database

import (
	"path/filepath"
	"testing"
	"time"

	"tw-go/internal/tw"
)

// newTestHistory creates a new in-memory history with schema applied.
func newTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()

	h, err := NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to create history: %v", err)
	}
	t.Cleanup(func() {
		h.Close()
	})
	return h
}

func TestSQLiteHistory_StartFinish(t *testing.T) {
	h := newTestHistory(t)
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return start }

	run, err := h.StartRun("op-1", "check", "/etc", "baseline=/var/lib/tw/etc.jsonl")
	if err != nil {
		t.Fatalf("StartRun() error = %v", err)
	}
	if run.ID == 0 {
		t.Fatal("StartRun() returned zero ID")
	}
	if run.Status != "running" {
		t.Errorf("Status = %q, want running", run.Status)
	}

	h.now = func() time.Time { return start.Add(time.Minute) }
	stats := tw.RunStats{Entities: 120, Added: 1, Removed: 2, Modified: 3, Errors: 4}
	if err := h.FinishRun(run.ID, tw.RunChanges, stats); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := h.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	got := runs[0]
	if got.OpID != "op-1" || got.Operation != "check" || got.Root != "/etc" {
		t.Errorf("run = %+v", got)
	}
	if got.Status != tw.RunChanges {
		t.Errorf("Status = %q, want %q", got.Status, tw.RunChanges)
	}
	if got.Stats != stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, stats)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}
	if !got.FinishedAt.Valid || !got.FinishedAt.Time.Equal(start.Add(time.Minute)) {
		t.Errorf("FinishedAt = %+v", got.FinishedAt)
	}
}

func TestSQLiteHistory_FinishUnknownRun(t *testing.T) {
	h := newTestHistory(t)
	if err := h.FinishRun(99, tw.RunSuccess, tw.RunStats{}); err == nil {
		t.Error("FinishRun() expected error for unknown run")
	}
}

func TestSQLiteHistory_ListRuns(t *testing.T) {
	h := newTestHistory(t)
	for _, op := range []string{"capture", "check", "check"} {
		if _, err := h.StartRun("op", op, "/srv", ""); err != nil {
			t.Fatalf("StartRun() error = %v", err)
		}
	}

	t.Run("newest first with limit", func(t *testing.T) {
		runs, err := h.ListRuns(2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(runs) = %d, want 2", len(runs))
		}
		if runs[0].ID <= runs[1].ID {
			t.Errorf("runs not newest first: %d, %d", runs[0].ID, runs[1].ID)
		}
		if runs[0].FinishedAt.Valid {
			t.Error("unfinished run has FinishedAt")
		}
	})

	t.Run("zero limit returns all", func(t *testing.T) {
		runs, err := h.ListRuns(0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 3 {
			t.Errorf("len(runs) = %d, want 3", len(runs))
		}
	})
}

func TestSQLiteHistory_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.db")

	h, err := NewSQLiteHistory(path)
	if err != nil {
		t.Fatalf("NewSQLiteHistory() error = %v", err)
	}
	if _, err := h.StartRun("op", "capture", "/etc", ""); err != nil {
		t.Fatal(err)
	}
	h.Close()

	h, err = NewSQLiteHistory(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer h.Close()
	if h.Path() != path {
		t.Errorf("Path() = %q, want %q", h.Path(), path)
	}
	runs, err := h.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("len(runs) = %d, want 1", len(runs))
	}
}
