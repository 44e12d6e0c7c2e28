package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"tw-go/internal/app"
	"tw-go/internal/config"
	"tw-go/internal/fs"
	"tw-go/internal/report"
	"tw-go/internal/tw"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitOK        = 0
	exitAttention = 1 // the report has changes or per-path errors
	exitFatal     = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and maps the outcome to an exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, tw.ErrChangesDetected):
		return exitAttention
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
}

// configPath returns the --config flag, or the default config location.
func configPath(cmd *cobra.Command) (string, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", nil, fmt.Errorf("getting defaults: %w", err)
	}
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = defaults["config_path"]
	}
	return path, defaults, nil
}

// loadConfig reads the config file, falling back to defaults when there is none.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, defaults, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	hostID, _ := os.Hostname()
	cfg, err := config.Load(path, hostID, defaults["base_dir"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config, applies scan flags and creates a TWApp.
// The caller must defer app.Close().
func newApp(cmd *cobra.Command, operation string) (*app.TWApp, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		cfg.Scan.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if secondary, _ := cmd.Flags().GetBool("secondary"); secondary {
		cfg.Scan.SecondaryDigest = true
	}

	a, err := app.NewTWApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// excludes merges --exclude patterns with those read from --exclude-from.
func excludes(cmd *cobra.Command) ([]string, error) {
	patterns, _ := cmd.Flags().GetStringArray("exclude")
	from, _ := cmd.Flags().GetString("exclude-from")
	if from == "" {
		return patterns, nil
	}
	more, err := fs.ParseExcludeFile(from)
	if err != nil {
		return nil, err
	}
	return append(patterns, more...), nil
}

func printStatus(w io.Writer, status string) error {
	return json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
	}{status})
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Directory to scan")
	cmd.Flags().String("out", "", "Output file")
	cmd.Flags().StringArray("exclude", nil, "Exclusion pattern (repeatable)")
	cmd.Flags().String("exclude-from", "", "File with one exclusion pattern per line")
	cmd.Flags().Int("workers", 0, "Paths processed in parallel (default: config, then one per CPU)")
	cmd.Flags().Bool("secondary", false, "Also compute SHA-256 digests")
	cmd.MarkFlagRequired("root")
	cmd.MarkFlagRequired("out")
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tw",
		Short:         "File integrity baseline and check tool",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().String("config", "", "Config file (default: $TW_CONFIG_PATH or ~/.config/tw.toml)")

	// capture command
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Record a baseline of a directory tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			out, _ := cmd.Flags().GetString("out")
			exclude, err := excludes(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, "capture")
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.Capture(root, out, exclude); err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}
			return printStatus(stdout, "OK")
		},
	}
	addScanFlags(captureCmd)

	// check command
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Compare a directory tree against a baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			baselinePath, _ := cmd.Flags().GetString("baseline")
			out, _ := cmd.Flags().GetString("out")
			exitZero, _ := cmd.Flags().GetBool("exit-zero")
			exclude, err := excludes(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, "check")
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Check(root, baselinePath, out, exclude)
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}
			if err := printStatus(stdout, report.Status(res.Report)); err != nil {
				return err
			}
			if res.Report.NeedsAttention() && !exitZero {
				return tw.ErrChangesDetected
			}
			return nil
		},
	}
	addScanFlags(checkCmd)
	checkCmd.Flags().String("baseline", "", "Baseline file to compare against")
	checkCmd.Flags().Bool("exit-zero", false, "Exit 0 even when changes are found")
	checkCmd.MarkFlagRequired("baseline")

	// print command
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Summarize a saved report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("report")
			verbose, _ := cmd.Flags().GetBool("verbose")

			r, err := report.NewStore().Load(path)
			if err != nil {
				return err
			}
			return report.Summarize(stdout, r, verbose)
		},
	}
	printCmd.Flags().String("report", "", "Report file")
	printCmd.Flags().BoolP("verbose", "v", false, "List every path")
	printCmd.MarkFlagRequired("report")

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View recorded capture and check runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := newApp(cmd, "history")
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.History(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(stdout, "No runs recorded.")
				return nil
			}

			for _, r := range runs {
				duration := ""
				if r.FinishedAt.Valid {
					duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
				}
				fmt.Fprintf(stdout, "#%d  %-8s  %s  %-8s  %-10s  +%d -%d ~%d !%d  %s\n",
					r.ID,
					r.Operation,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Status,
					duration,
					r.Stats.Added, r.Stats.Removed, r.Stats.Modified, r.Stats.Errors,
					r.Root,
				)
			}
			return nil
		},
	}
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")

	// config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, defaults, err := configPath(cmd)
			if err != nil {
				return err
			}

			hostID := uuid.New().String()
			cfg := config.NewConfig(hostID, defaults["base_dir"])

			if err := config.Init(path, cfg); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			fmt.Fprintf(stdout, "Configuration initialized at %s\n", path)
			fmt.Fprintf(stdout, "Host ID: %s\n", hostID)
			fmt.Fprintf(stdout, "Base Dir: %s\n", defaults["base_dir"])
			return nil
		},
	}

	configListCmd := &cobra.Command{
		Use:   "list",
		Short: "View configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.ReadFromFile(path)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			fmt.Fprintf(stdout, "Configuration from %s:\n\n", path)
			return (&config.Manager{}).Write(stdout, cfg)
		},
	}

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	return rootCmd
}
