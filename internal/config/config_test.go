package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		HostID:   "test-host-abc",
		BaseDir:  "/home/user/.local/share/tw",
		LogDir:   "/home/user/.local/share/tw/log",
		LogLevel: "debug",
		Scan:     ScanConfig{Workers: 8, SecondaryDigest: true},
		Digest:   DigestConfig{BufferSize: 65536},
		Filesystem: FilesystemConfig{
			Exclude: []string{"/proc", "*.swp"},
		},
		History: HistoryConfig{Type: "sqlite", DataDir: "/home/user/.local/share/tw/db"},
		Log:     LogConfig{MaxSizeMB: 5, MaxBackups: 2, MaxAgeDays: 7, Compress: true},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.HostID != original.HostID {
		t.Errorf("HostID = %q, want %q", got.HostID, original.HostID)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Scan != original.Scan {
		t.Errorf("Scan = %+v, want %+v", got.Scan, original.Scan)
	}
	if got.Digest.BufferSize != 65536 {
		t.Errorf("Digest.BufferSize = %d, want %d", got.Digest.BufferSize, 65536)
	}
	if got.History != original.History {
		t.Errorf("History = %+v, want %+v", got.History, original.History)
	}
	if got.Log != original.Log {
		t.Errorf("Log = %+v, want %+v", got.Log, original.Log)
	}
	if len(got.Filesystem.Exclude) != 2 {
		t.Fatalf("len(Filesystem.Exclude) = %d, want 2", len(got.Filesystem.Exclude))
	}
}

func TestManager_Read_Literal(t *testing.T) {
	in := `
host_id = "h"
base_dir = "/var/lib/tw"

[scan]
workers = 4

[filesystem]
exclude = ["/var/lib/tw/**", "*.pid"]

[history]
type = "memory"
`
	got, err := (&Manager{}).Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Scan.Workers != 4 || got.Scan.SecondaryDigest {
		t.Errorf("Scan = %+v", got.Scan)
	}
	if got.History.Type != "memory" {
		t.Errorf("History.Type = %q, want memory", got.History.Type)
	}
	if len(got.Filesystem.Exclude) != 2 || got.Filesystem.Exclude[1] != "*.pid" {
		t.Errorf("Filesystem.Exclude = %v", got.Filesystem.Exclude)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("host-1", "/data/tw")

	if cfg.HostID != "host-1" {
		t.Errorf("HostID = %q, want %q", cfg.HostID, "host-1")
	}
	if cfg.LogDir != "/data/tw/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/tw/log")
	}
	if cfg.History.Type != "sqlite" || cfg.History.DataDir != "/data/tw/db" {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Digest.BufferSize != 1<<20 {
		t.Errorf("Digest.BufferSize = %d, want %d", cfg.Digest.BufferSize, 1<<20)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative workers", func(c *Config) { c.Scan.Workers = -1 }},
		{"negative buffer", func(c *Config) { c.Digest.BufferSize = -5 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"unknown history type", func(c *Config) { c.History.Type = "postgres" }},
		{"sqlite without data dir", func(c *Config) { c.History = HistoryConfig{Type: "sqlite"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("h", "/data/tw")
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tw.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tw.toml")
		cfg := NewConfig("h1", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tw.toml")
		cfg := NewConfig("read-test", dir)
		cfg.History = HistoryConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.HostID != "read-test" {
			t.Errorf("HostID = %q, want %q", got.HostID, "read-test")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/tw.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tw.toml")
		os.WriteFile(path, []byte("[scan]\nworkers = -2\n"), 0644)
		if _, err := ReadFromFile(path); err == nil {
			t.Fatal("ReadFromFile() expected validation error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("falls back to defaults without history", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(filepath.Join(dir, "missing.toml"), "h", dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.HostID != "h" {
			t.Errorf("HostID = %q, want h", cfg.HostID)
		}
		if cfg.History.Type != "none" {
			t.Errorf("History.Type = %q, want none", cfg.History.Type)
		}
	})

	t.Run("reports malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tw.toml")
		os.WriteFile(path, []byte("host_id = \n"), 0644)
		if _, err := Load(path, "h", "/tmp"); err == nil {
			t.Fatal("Load() expected decode error")
		}
	})
}
