package database

import (
	"fmt"
	"os"
	"path/filepath"

	"tw-go/internal/config"
	"tw-go/internal/tw"
)

// NewHistoryFromConfig creates a History implementation based on the history config type.
func NewHistoryFromConfig(cfg config.HistoryConfig, hostID string) (tw.History, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite history")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return openSQLite(":memory:")
	case "", "none":
		return tw.NopHistory{}, nil
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}

func openSQLite(path string) (tw.History, error) {
	h, err := NewSQLiteHistory(path)
	if err != nil {
		return nil, err
	}
	return h, nil
}
