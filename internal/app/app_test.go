package app

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"tw-go/internal/config"
	"tw-go/internal/testutil"
	"tw-go/internal/tw"
)

func newTestConfig(t *testing.T, historyType string) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.NewConfig("test-host", base)
	cfg.Filesystem.Exclude = nil
	cfg.LogLevel = "debug"
	cfg.Scan.Workers = 2
	if historyType == "sqlite" {
		cfg.History.DataDir = filepath.Join(base, "db")
	} else {
		cfg.History = config.HistoryConfig{Type: historyType}
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *TWApp {
	t.Helper()
	a, err := NewTWApp(cfg, operation,
		WithConsole(nil),
		WithClock(testutil.FixedClock()),
		WithHost(testutil.StubHost("web-01")))
	if err != nil {
		t.Fatalf("NewTWApp() error = %v", err)
	}
	return a
}

func TestTWApp_CaptureAndCheck(t *testing.T) {
	cfg := newTestConfig(t, "sqlite")
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"etc/passwd": "root", "etc/hosts": "localhost"})
	out := t.TempDir()
	baselinePath := filepath.Join(out, "baseline.jsonl.zst")
	reportPath := filepath.Join(out, "report.json")

	a := newTestApp(t, cfg, "capture")
	res, err := a.Capture(root, baselinePath, nil)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if res.Entities != 4 {
		t.Errorf("Entities = %d, want 4", res.Entities)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	testutil.WriteTree(t, root, map[string]string{"etc/sudoers": "ALL"})

	a = newTestApp(t, cfg, "check")
	defer a.Close()
	cr, err := a.Check(root, baselinePath, reportPath, nil)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(cr.Report.Added) != 1 || cr.Report.Host != "web-01" {
		t.Errorf("report = %+v", cr.Report)
	}
	if a.Operation().Status != tw.RunChanges {
		t.Errorf("Status = %q, want %q", a.Operation().Status, tw.RunChanges)
	}

	runs, err := a.History(0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	check, capture := runs[0], runs[1]
	if check.Operation != "check" || check.Status != tw.RunChanges || check.Stats.Added != 1 || check.Stats.Entities != 5 {
		t.Errorf("check run = %+v", check)
	}
	if check.OpID != a.Operation().OpID {
		t.Errorf("OpID = %q, want %q", check.OpID, a.Operation().OpID)
	}
	if capture.Operation != "capture" || capture.Status != tw.RunSuccess || capture.Stats.Entities != 4 {
		t.Errorf("capture run = %+v", capture)
	}
	if capture.Root != root || !strings.Contains(capture.Parameters, "out="+baselinePath) {
		t.Errorf("capture run root/params = %q %q", capture.Root, capture.Parameters)
	}

	logData, err := os.ReadFile(filepath.Join(cfg.LogDir, "tw.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(logData), "\t"+a.Operation().OpID+"\tcheck finished") {
		t.Errorf("log missing check summary:\n%s", logData)
	}
}

func TestTWApp_FailedCheckIsRecorded(t *testing.T) {
	cfg := newTestConfig(t, "memory")
	a := newTestApp(t, cfg, "check")
	defer a.Close()

	_, err := a.Check(t.TempDir(), filepath.Join(t.TempDir(), "missing.jsonl"), filepath.Join(t.TempDir(), "r.json"), nil)
	if err == nil {
		t.Fatal("Check() expected error for missing baseline")
	}

	runs, err := a.History(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != tw.RunError || !runs[0].FinishedAt.Valid {
		t.Errorf("runs = %+v", runs)
	}
}

func TestTWApp_RelativeRoot(t *testing.T) {
	cfg := newTestConfig(t, "none")
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a": "1"})
	t.Chdir(root)

	a := newTestApp(t, cfg, "capture")
	defer a.Close()
	baselinePath := filepath.Join(t.TempDir(), "b.jsonl")
	if _, err := a.Capture(".", baselinePath, nil); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	data, err := os.ReadFile(baselinePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"path":"`+filepath.Join(root, "a")+`"`) {
		t.Errorf("baseline paths are not absolute:\n%s", data)
	}

	runs, _ := a.History(0)
	if len(runs) != 0 {
		t.Errorf("none history returned %d runs", len(runs))
	}
}

func TestTWApp_StateInsideRoot(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"etc/passwd": "root"})
	cfg := config.NewConfig("test-host", filepath.Join(root, "state"))
	cfg.Filesystem.Exclude = nil
	cfg.LogLevel = "debug"
	out := t.TempDir()
	baselinePath := filepath.Join(out, "baseline.jsonl")

	a := newTestApp(t, cfg, "capture")
	res, err := a.Capture(root, baselinePath, nil)
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	a.Close()
	// root, etc and etc/passwd; the state directory is never recorded
	if res.Entities != 3 {
		t.Errorf("Entities = %d, want 3", res.Entities)
	}

	a = newTestApp(t, cfg, "check")
	defer a.Close()
	chk, err := a.Check(root, baselinePath, filepath.Join(out, "report.json"), nil)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if chk.Report.NeedsAttention() {
		t.Errorf("log and history writes reported as changes: %+v", chk.Report)
	}
}

func TestScanExcludes(t *testing.T) {
	cfg := config.NewConfig("h", "/var/lib/tw")
	cfg.Filesystem.Exclude = []string{"*.swp"}

	got := scanExcludes(cfg)
	want := []string{"*.swp", "/var/lib/tw", "/var/lib/tw/log", "/var/lib/tw/db"}
	if !slices.Equal(got, want) {
		t.Errorf("scanExcludes() = %v, want %v", got, want)
	}
	if len(cfg.Filesystem.Exclude) != 1 {
		t.Errorf("config exclusions modified: %v", cfg.Filesystem.Exclude)
	}

	cfg.History = config.HistoryConfig{Type: "none"}
	cfg.LogDir = "relative/log"
	if got := scanExcludes(cfg); !slices.Equal(got, []string{"*.swp", "/var/lib/tw"}) {
		t.Errorf("scanExcludes() = %v", got)
	}
}

func TestNewTWApp_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t, "memory")
	cfg.Scan.Workers = -1
	if _, err := NewTWApp(cfg, "capture", WithConsole(nil)); err == nil {
		t.Error("NewTWApp() expected error for invalid config")
	}
}
