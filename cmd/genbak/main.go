package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/genbak/genbak/internal/config"
	"github.com/genbak/genbak/internal/engine"
	"github.com/genbak/genbak/internal/event"
	"github.com/genbak/genbak/internal/history"
	"github.com/genbak/genbak/internal/stats"
	"github.com/genbak/genbak/internal/ui"
	"github.com/genbak/genbak/internal/walk"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// backupFlags are the options shared by the root command and the daemon.
type backupFlags struct {
	dirs       []string
	exclude    []string
	minDiff    int64
	statsFile  string
	verify     bool
	useIOURing bool
	bwLimitStr string
	dryRun     bool
}

func (f *backupFlags) register(cmd *cobra.Command) {
	cmd.Flags().
		StringArrayVarP(&f.dirs, "dir", "d", nil, "source directory to back up (repeatable)")
	cmd.Flags().
		StringArrayVarP(&f.exclude, "exclude", "x", nil, "exclude entries with this name at any depth (repeatable)")
	cmd.Flags().
		Int64VarP(&f.minDiff, "min-diff", "m", engine.DefaultMinDiff, "modification-time change threshold in seconds")
	cmd.Flags().
		StringVarP(&f.statsFile, "stats", "s", "", "append a per-run summary row to this CSV file")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "verify checksums before finalizing (BLAKE3)")
	cmd.Flags().
		BoolVar(&f.useIOURing, "iouring", false, "use io_uring for file copy (Linux only)")
	cmd.Flags().StringVar(&f.bwLimitStr, "bwlimit", "", "bandwidth limit (e.g. 100M, 1G)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "show what would be done without writing")
}

// applyConfigDefaults applies config file defaults for flags not explicitly
// set on the CLI. Config excludes always extend the CLI list.
func (f *backupFlags) applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig) {
	if !cmd.Flags().Changed("min-diff") && defaults.MinDiff != nil {
		f.minDiff = *defaults.MinDiff
	}
	if !cmd.Flags().Changed("verify") && defaults.Verify != nil {
		f.verify = *defaults.Verify
	}
	if !cmd.Flags().Changed("iouring") && defaults.IOURing != nil {
		f.useIOURing = *defaults.IOURing
	}
	if !cmd.Flags().Changed("bwlimit") && defaults.BWLimit != nil {
		f.bwLimitStr = *defaults.BWLimit
	}
	if !cmd.Flags().Changed("stats") && defaults.Stats != nil {
		f.statsFile = *defaults.Stats
	}
	f.exclude = append(f.exclude, defaults.Exclude...)
}

// engineConfig builds the engine configuration from flags; the events
// channel and stats collector are wired in by the caller.
func (f *backupFlags) engineConfig(backupRoot string) (engine.Config, error) {
	var bwLimit int64
	if f.bwLimitStr != "" {
		var err error
		bwLimit, err = config.ParseSize(f.bwLimitStr)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}
	return engine.Config{
		BackupRoot: backupRoot,
		Sources:    f.dirs,
		Exclude:    walk.NewExclusions(f.exclude...),
		MinDiff:    f.minDiff,
		DryRun:     f.dryRun,
		Verify:     f.verify,
		UseIOURing: f.useIOURing,
		BWLimit:    bwLimit,
	}, nil
}

//nolint:gocyclo,revive // cyclomatic: main CLI entry point orchestrates flag parsing and run composition
func run() int {
	var (
		flags       backupFlags
		verbose     bool
		quiet       bool
		logFile     string
		noColor     bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "genbak [flags] <backup-root>",
		Short: "Incremental generation backups with hardlinks to unchanged files",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "genbak %s\n", version)
				return nil
			}
			backupRoot := args[0]

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			flags.applyConfigDefaults(cmd, cfg.Defaults)
			ui.ApplyTheme(cfg.Theme)

			engineCfg, err := flags.engineConfig(backupRoot)
			if err != nil {
				return err
			}
			if len(engineCfg.Sources) == 0 {
				return fmt.Errorf("no source directories; pass at least one -d/--dir")
			}

			if err := setupLogging(verbose, quiet, logFile); err != nil {
				return err
			}
			if flags.dryRun {
				slog.Info("dry run mode")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := stats.NewCollector()
			events := make(chan event.Event, 256)
			engineCfg.Events = events
			engineCfg.Stats = collector

			presenterEvents := teeEventsToLog(events, logFile != "")

			isTTY := ui.IsTTY(os.Stdout.Fd()) && !noColor
			presenter := ui.NewPresenter(ui.Config{
				Writer:    os.Stdout,
				ErrWriter: os.Stderr,
				Stats:     collector,
				IsTTY:     isTTY,
				Quiet:     quiet,
				Verbose:   verbose,
			})

			var presenterErr error
			var presenterWg sync.WaitGroup
			presenterWg.Add(1)
			go func() {
				defer presenterWg.Done()
				presenterErr = presenter.Run(presenterEvents)
			}()

			started := time.Now()
			result := engine.Run(ctx, engineCfg)
			elapsed := time.Since(started)
			stop()
			close(events)
			presenterWg.Wait()
			if presenterErr != nil {
				fmt.Fprintf(os.Stderr, "presenter: %v\n", presenterErr)
			}

			if !quiet {
				if summary := presenter.Summary(); summary != "" {
					fmt.Fprintln(os.Stderr, summary)
				}
			}

			if result.Finalized || flags.dryRun {
				recordRun(backupRoot, flags.statsFile, result, started, elapsed, flags.dryRun)
			}

			if result.Err != nil {
				slog.Error("backup failed", "error", result.Err)
				if result.Stats.FilesCopied > 0 || result.Stats.FilesLinked > 0 {
					return &exitError{code: 1} // partial failure
				}
				return &exitError{code: 2} // total failure
			}
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	flags.register(rootCmd)
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.Flags().StringVar(&logFile, "log", "", "write structured JSON log to FILE")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(daemonCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// setupLogging installs the default slog logger: human-readable text on
// stderr, plus JSON to logFile when set.
func setupLogging(verbose, quiet bool, logFile string) error {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	} else if !quiet {
		logLevel = slog.LevelInfo
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	if logFile != "" {
		lf, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}
	slog.SetDefault(slog.New(logHandler))
	return nil
}

// teeEventsToLog forwards events unchanged; when logging is enabled it
// writes a structured record for each event first.
func teeEventsToLog(events chan event.Event, logEnabled bool) <-chan event.Event {
	if !logEnabled {
		return events
	}
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelInfo, "genbak.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

// recordRun appends the CSV stats row and the history entry; both are
// best-effort and only logged on failure.
func recordRun(backupRoot, statsFile string, result engine.Result, started time.Time, elapsed time.Duration, dryRun bool) {
	if statsFile != "" && !dryRun {
		if err := stats.AppendCSV(statsFile, result.Generation, result.Stats); err != nil {
			slog.Warn("failed to append stats CSV", "path", statsFile, "error", err)
		}
	}
	if dryRun {
		return
	}
	db, err := history.Open(backupRoot)
	if err != nil {
		slog.Warn("failed to open run history", "error", err)
		return
	}
	defer db.Close()
	if err := db.Record(result.Generation, started, elapsed, result.Stats, dryRun); err != nil {
		slog.Warn("failed to record run history", "error", err)
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
