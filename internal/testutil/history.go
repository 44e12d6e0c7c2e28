package testutil

import (
	"testing"

	"tw-go/internal/database"
	"tw-go/internal/tw"
)

// NewTestHistory creates an in-memory run history with the schema applied.
// It is closed automatically when the test completes.
func NewTestHistory(t *testing.T) tw.History {
	t.Helper()

	h, err := database.NewSQLiteHistory(":memory:")
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	t.Cleanup(func() {
		h.Close()
	})
	return h
}
