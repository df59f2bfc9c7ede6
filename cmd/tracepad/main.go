// Package main provides the CLI entrypoint for tracepad.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tracepad/internal/capture"
	"github.com/verte-zerg/tracepad/internal/config"
	"github.com/verte-zerg/tracepad/internal/gateway"
	"github.com/verte-zerg/tracepad/internal/input"
	"github.com/verte-zerg/tracepad/internal/logging"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/replay"
	"github.com/verte-zerg/tracepad/internal/stats"
	"github.com/verte-zerg/tracepad/internal/statsui"
	"github.com/verte-zerg/tracepad/internal/store"
	"github.com/verte-zerg/tracepad/internal/trajectory"
	"github.com/verte-zerg/tracepad/internal/tui"
)

const (
	defaultMode        = "pattern"
	defaultTimeout     = 10 * time.Second
	defaultCurveWindow = 5
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
)

// Flags shared by the capture TUI and replay.
var (
	captureMode    string
	gatewayURL     string
	gatewayTimeout time.Duration
	maxBatch       int
	idleTimeoutMs  int
	seed           int64
	recordPath     string

	logLevel  string
	logFormat string
	logFile   string

	replayWatch       string
	replayConcurrency int
	replayNoStore     bool

	historyMode   string
	historySince  string
	historyLast   int
	historyWindow int
	historyPlain  bool
	historyTable  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tracepad",
		Short:         "Terminal pointer-telemetry capture",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCaptureCmd,
	}

	addSessionFlags(rootCmd)
	rootCmd.Flags().StringVar(&recordPath, "record", "", "write the raw event log to this path (\"auto\" picks a file in the data dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", defaultLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default: state dir while the TUI runs, stderr otherwise)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func addSessionFlags(cmd *cobra.Command) {
	defaults := model.DefaultCaptureConfig()
	cmd.Flags().StringVar(&captureMode, "mode", defaultMode, "interaction mode (pattern, circular, drawing)")
	cmd.Flags().StringVar(&gatewayURL, "gateway", "", "gateway URL (http(s)://, ws(s)://, file:// or a path; empty discards)")
	cmd.Flags().DurationVar(&gatewayTimeout, "timeout", defaultTimeout, "per-batch gateway timeout")
	cmd.Flags().IntVar(&maxBatch, "max-batch", defaults.MaxBatchSize, "samples per batch")
	cmd.Flags().IntVar(&idleTimeoutMs, "idle-timeout", int(defaults.IdleTimeout/time.Millisecond), "idle abandonment timeout in milliseconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for target selection (default: random)")
}

// settings is the resolved configuration of one command run.
type settings struct {
	mode    model.Mode
	capture model.CaptureConfig
	pattern model.PatternConfig
	seeded  bool
}

// loadConfig reads file and env settings and applies the log section.
func loadConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fileCfg, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	return fileCfg, nil
}

// resolveSettings merges flags over env over file over defaults.
func resolveSettings(cmd *cobra.Command) (settings, error) {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return settings{}, err
	}
	s := settings{
		capture: model.DefaultCaptureConfig(),
		pattern: model.DefaultPatternConfig(),
	}
	fileCfg.Capture.Apply(&s.capture)
	fileCfg.Pattern.Apply(&s.pattern)
	applyStringConfig(cmd, "mode", &captureMode, fileCfg.Capture.Mode)
	applyStringConfig(cmd, "gateway", &gatewayURL, fileCfg.Gateway.URL)
	applyDurationMsConfig(cmd, "timeout", &gatewayTimeout, fileCfg.Gateway.TimeoutMs)
	applyIntConfig(cmd, "max-batch", &maxBatch, fileCfg.Capture.MaxBatch)
	applyIntConfig(cmd, "idle-timeout", &idleTimeoutMs, fileCfg.Capture.IdleTimeoutMs)
	applyInt64Config(cmd, "seed", &seed, fileCfg.Pattern.Seed)
	s.capture.MaxBatchSize = maxBatch
	s.capture.IdleTimeout = time.Duration(idleTimeoutMs) * time.Millisecond
	s.seeded = cmd.Flags().Changed("seed") || fileCfg.Pattern.Seed != nil

	mode, err := model.ParseMode(captureMode)
	if err != nil {
		return settings{}, fmt.Errorf("--mode: %w", err)
	}
	s.mode = mode
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func (s settings) picker() *trajectory.Picker {
	if s.seeded {
		return trajectory.NewSeededPicker(seed)
	}
	return trajectory.NewPicker()
}

func validateSettings(s settings) error {
	if s.capture.MaxBatchSize <= 0 {
		return fmt.Errorf("--max-batch must be > 0")
	}
	if s.capture.IdleTimeout <= 0 {
		return fmt.Errorf("--idle-timeout must be > 0")
	}
	if gatewayTimeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if err := capture.ValidateConfig(s.capture); err != nil {
		return fmt.Errorf("invalid capture config: %w", err)
	}
	if err := trajectory.ValidateConfig(s.pattern); err != nil {
		return fmt.Errorf("invalid pattern config: %w", err)
	}
	return nil
}

// newLogger builds the logger; when toFile is set and no file was configured,
// logs go to the default state file so they do not corrupt the TUI.
func newLogger(toFile bool) (*slog.Logger, io.Closer, error) {
	path := logFile
	if path == "" && toFile {
		path = config.DefaultLogPath()
	}
	var out io.Writer = os.Stderr
	var closer io.Closer
	if path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		out, closer = f, f
	}
	logger, err := logging.New(logging.Options{Level: logLevel, Format: logFormat, Output: out})
	if err != nil {
		if closer != nil {
			if cerr := closer.Close(); cerr != nil {
				// Best-effort close on logger failure.
				_ = cerr
			}
		}
		return nil, nil, fmt.Errorf("invalid log settings: %w", err)
	}
	return logger, closer, nil
}

func closeQuietly(name string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logErrf("failed to close %s: %v\n", name, err)
	}
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(true)
	if err != nil {
		return err
	}
	defer closeQuietly("log file", logCloser)

	submitter, err := gateway.New(gateway.Options{URL: gatewayURL, Timeout: gatewayTimeout, Logger: logger})
	if err != nil {
		return fmt.Errorf("--gateway: %w", err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeQuietly("db", st)

	var recorder *input.Writer
	if recordPath != "" {
		path := recordPath
		if path == "auto" {
			path = filepath.Join(config.DefaultRecordDir(), time.Now().UTC().Format("20060102-150405")+replay.LogExt)
		}
		recorder, err = input.Create(path)
		if err != nil {
			return err
		}
		defer closeQuietly("event log", recorder)
		logger.Info("recording events", slog.String("path", path))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, err := tui.NewModel(tui.Options{
		Context:   ctx,
		Capture:   s.capture,
		Pattern:   s.pattern,
		Mode:      s.mode,
		Picker:    s.picker(),
		Submitter: submitter,
		History:   st,
		Recorder:  recorder,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.Pipeline().Close(); err != nil {
		return fmt.Errorf("failed to flush event log: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [FILE...]",
		Short: "Replay recorded event logs through the capture pipeline",
		RunE:  runReplayCmd,
	}
	addSessionFlags(cmd)
	cmd.Flags().StringVar(&replayWatch, "watch", "", "replay logs as they appear in this directory")
	cmd.Flags().IntVar(&replayConcurrency, "concurrency", replay.DefaultConcurrency, "logs replayed at once")
	cmd.Flags().BoolVar(&replayNoStore, "no-store", false, "do not record outcomes in history")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && replayWatch == "" {
		return fmt.Errorf("pass event log files or --watch DIR")
	}
	if replayConcurrency <= 0 {
		return fmt.Errorf("--concurrency must be > 0")
	}
	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(false)
	if err != nil {
		return err
	}
	defer closeQuietly("log file", logCloser)

	submitter, err := gateway.New(gateway.Options{URL: gatewayURL, Timeout: gatewayTimeout, Logger: logger})
	if err != nil {
		return fmt.Errorf("--gateway: %w", err)
	}
	opts := replay.Options{
		Capture:   s.capture,
		Pattern:   s.pattern,
		Mode:      s.mode,
		Seed:      seed,
		Submitter: submitter,
		Logger:    logger,
		Start:     time.Now().UTC(),
	}
	if !replayNoStore {
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer closeQuietly("db", st)
		opts.Sink = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		results, err := replay.RunFiles(ctx, args, opts, replayConcurrency)
		if err != nil {
			return err
		}
		var outcomes []model.SessionOutcome
		for _, res := range results {
			if err := printResult(out, res); err != nil {
				return err
			}
			outcomes = append(outcomes, res.Outcomes...)
		}
		if err := stats.RenderOutcomeTable(out, outcomes); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if replayWatch == "" {
		return nil
	}
	logErrf("Watching %s for %s files (ctrl+c to stop)\n", replayWatch, replay.LogExt)
	err = replay.Watch(ctx, replayWatch, opts, replay.WatchOptions{
		OnResult: func(res replay.Result) {
			if err := printResult(out, res); err != nil {
				logger.Error("failed to write output", slog.Any("err", err))
			}
		},
		OnError: func(path string, err error) {
			logger.Error("replay failed", slog.String("path", path), slog.Any("err", err))
		},
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printResult(w io.Writer, res replay.Result) error {
	c := res.Counters
	_, err := fmt.Fprintf(w, "%s: events=%d batches=%d submitted=%d failed=%d abandoned=%d score=%d\n",
		res.Name, res.Events, len(res.Outcomes), c.Submitted, c.Failed, c.Abandoned, res.Score)
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show submitted sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyMode, "mode", "", "mode filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a report instead of opening the browser")
	cmd.Flags().BoolVar(&historyTable, "table", false, "include the per-session table in the plain report")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	filter, err := historyFilter()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer closeQuietly("db", st)

	if historyPlain {
		report, err := stats.BuildReport(cmd.Context(), st, filter)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return report.Render(cmd.OutOrStdout(), stats.RenderOptions{
			Window: historyWindow,
			Table:  historyTable,
		})
	}

	m := statsui.NewModel(st, statsui.Config{Filter: filter, Window: historyWindow})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func historyFilter() (model.HistoryFilter, error) {
	var filter model.HistoryFilter
	if historyMode != "" {
		mode, err := model.ParseMode(historyMode)
		if err != nil {
			return filter, fmt.Errorf("--mode: %w", err)
		}
		filter.Mode = mode
	}
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if historyLast < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return filter, fmt.Errorf("--window must be >= 1")
	}
	filter.Last = historyLast
	return filter, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationMsConfig(cmd *cobra.Command, name string, target *time.Duration, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = time.Duration(*value) * time.Millisecond
}

func defaultConfigTemplate() string {
	capCfg := model.DefaultCaptureConfig()
	pat := model.DefaultPatternConfig()
	return fmt.Sprintf(`# tracepad configuration
# Uncomment a value to enable it. CLI flags and TRACEPAD_* environment
# variables override config values.

[capture]
# mode = %q               # pattern, circular or drawing
# max-batch = %d             # Samples per batch
# move-threshold = %.0f         # Minimum movement distance in surface units
# tolerance-ms = %.0f           # Minimum time between recorded samples
# idle-timeout-ms = %d      # Abandon a released session after this idle time
# countdown-ms = %d          # Countdown refresh period
# settle-ms = %d            # Guard after a batch settles

[pattern]
# arrival-radius = %.0f        # Distance that counts as reaching the target
# max-size = %.0f             # Surface size bound
# stiffness = %.0f            # Spring stiffness
# damping = %.0f               # Spring damping
# seed = 1                  # Fixed target sequence

[gateway]
# url = "http://localhost:8000"   # http(s)://, ws(s)://, file:// or a path
# timeout-ms = %d

[log]
# level = %q
# format = %q
# file = ""
`,
		defaultMode,
		capCfg.MaxBatchSize,
		capCfg.MoveThreshold,
		float64(capCfg.Tolerance)/float64(time.Millisecond),
		capCfg.IdleTimeout.Milliseconds(),
		capCfg.CountdownInterval.Milliseconds(),
		capCfg.SettleWindow.Milliseconds(),
		pat.ArrivalRadius,
		pat.MaxSize,
		pat.Stiffness,
		pat.Damping,
		defaultTimeout.Milliseconds(),
		defaultLogLevel,
		defaultLogFormat,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
