package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"tw-go/internal/baseline"
	"tw-go/internal/config"
	"tw-go/internal/database"
	"tw-go/internal/digest"
	"tw-go/internal/fs"
	"tw-go/internal/report"
	"tw-go/internal/tw"
)

// TWApp is the application layer between the CLI and TWService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and records every run in the history.
type TWApp struct {
	cfg     *config.Config
	history tw.History
	service *tw.TWService
	logger  *slogAdapter
	op      *Operation
	logFile io.Closer
}

// Option customizes a TWApp.
type Option func(*appOptions)

type appOptions struct {
	console io.Writer
	clock   tw.Clock
	host    tw.HostProvider
}

// WithConsole sets where log lines are echoed besides the log file.
// A nil writer disables the echo. Default: os.Stderr.
func WithConsole(w io.Writer) Option {
	return func(o *appOptions) { o.console = w }
}

// WithClock overrides the clock used to timestamp reports.
func WithClock(c tw.Clock) Option {
	return func(o *appOptions) { o.clock = c }
}

// WithHost overrides the host named in reports.
func WithHost(h tw.HostProvider) Option {
	return func(o *appOptions) { o.host = h }
}

// NewTWApp creates a fully wired TWApp from the given config.
// operation identifies the CLI command being run (e.g. "capture", "check").
// The caller must call Close when done.
func NewTWApp(cfg *config.Config, operation string, opts ...Option) (*TWApp, error) {
	o := appOptions{
		console: os.Stderr,
		clock:   tw.RealClock{},
		host:    tw.OSHost{Fallback: cfg.HostID},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	history, err := database.NewHistoryFromConfig(cfg.History, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	op := NewOperation(operation)
	logger, logFile, err := newLogger(cfg.LogDir, op.OpID, cfg.LogLevel, cfg.Log, o.console)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	fsmgr := fs.NewOSFilesystemManager(scanExcludes(cfg))
	hasher := digest.NewEngine(digest.Options{
		BufferSize: cfg.Digest.BufferSize,
		Secondary:  cfg.Scan.SecondaryDigest,
	}, fsmgr.Open)

	svc := tw.NewTWService(fsmgr, hasher, baseline.NewStore(), report.NewStore(),
		adapter, o.clock, o.host, cfg.Scan.Workers)

	return &TWApp{
		cfg:     cfg,
		history: history,
		service: svc,
		logger:  adapter,
		op:      op,
		logFile: logFile,
	}, nil
}

// scanExcludes adds the directories tw writes its own state to, so logging and
// history during a scan never show up as changes.
func scanExcludes(cfg *config.Config) []string {
	exclude := slices.Clone(cfg.Filesystem.Exclude)
	dirs := []string{cfg.BaseDir, cfg.LogDir}
	if cfg.History.Type == "sqlite" {
		dirs = append(dirs, cfg.History.DataDir)
	}
	for _, dir := range dirs {
		if dir == "" || !filepath.IsAbs(dir) {
			continue
		}
		exclude = append(exclude, fs.LiteralPattern(dir))
	}
	return exclude
}

// startRun records the operation in the history. History failures are logged
// and never stop the scan.
func (a *TWApp) startRun(root, parameters string) {
	a.op.Parameters = parameters
	run, err := a.history.StartRun(a.op.OpID, a.op.Name, root, parameters)
	if err != nil {
		a.logger.Warn("recording run failed", "error", err)
		return
	}
	a.op.RunID = run.ID
}

func (a *TWApp) finishRun(status string, stats tw.RunStats) {
	a.op.Status = status
	if !a.op.Persisted() {
		return
	}
	if err := a.history.FinishRun(a.op.RunID, status, stats); err != nil {
		a.logger.Warn("recording run outcome failed", "run", a.op.RunID, "error", err)
	}
}

// Capture resolves rawRoot and writes its baseline to out.
func (a *TWApp) Capture(rawRoot, out string, exclude []string) (*tw.CaptureResult, error) {
	root, err := filepath.Abs(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	a.startRun(root, params("out", out, "exclude", strings.Join(exclude, ","), "workers", a.service.Workers()))

	res, err := a.service.Capture(root, out, exclude)
	if err != nil {
		a.logger.Error("capture failed", "error", err)
		a.finishRun(tw.RunError, tw.RunStats{})
		return nil, err
	}
	a.finishRun(tw.RunSuccess, tw.RunStats{Entities: res.Entities})
	return res, nil
}

// Check resolves rawRoot, compares it against the baseline and writes the
// report to out.
func (a *TWApp) Check(rawRoot, baselinePath, out string, exclude []string) (*tw.CheckResult, error) {
	root, err := filepath.Abs(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	a.startRun(root, params("baseline", baselinePath, "out", out, "exclude", strings.Join(exclude, ","), "workers", a.service.Workers()))

	res, err := a.service.Check(root, baselinePath, out, exclude)
	if err != nil {
		a.logger.Error("check failed", "error", err)
		a.finishRun(tw.RunError, tw.RunStats{})
		return nil, err
	}
	a.finishRun(statusFor(res.Report), res.Stats())
	return res, nil
}

// History returns the most recent recorded runs.
func (a *TWApp) History(limit int) ([]*tw.Run, error) {
	return a.history.ListRuns(limit)
}

// Operation returns the operation this app was created for.
func (a *TWApp) Operation() *Operation {
	return a.op
}

// Close releases the history database and the log file.
func (a *TWApp) Close() error {
	var errs []error
	if err := a.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing history: %w", err))
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// params renders key/value pairs for the run history, skipping empty values.
func params(kv ...any) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		v := fmt.Sprint(kv[i+1])
		if v == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%v=%s", kv[i], v))
	}
	return strings.Join(parts, " ")
}
