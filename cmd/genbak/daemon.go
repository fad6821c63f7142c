package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/genbak/genbak/internal/config"
	"github.com/genbak/genbak/internal/engine"
	"github.com/genbak/genbak/internal/generation"
	"github.com/genbak/genbak/internal/stats"
)

func daemonCmd() *cobra.Command {
	var (
		flags    backupFlags
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "daemon [flags] <backup-root>",
		Short: "Run backups on a cron schedule",
		Long: `Run backups repeatedly on a cron schedule until interrupted.

The schedule uses standard five-field cron syntax ("0 3 * * *" runs daily
at 03:00). It can also be set under [daemon] in the config file; an explicit
--schedule wins. If a scheduled run fires while the previous one is still
in progress, it is skipped and the next slot runs normally.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backupRoot := args[0]

			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			flags.applyConfigDefaults(cmd, cfg.Defaults)
			if !cmd.Flags().Changed("schedule") && cfg.Daemon.Schedule != nil {
				schedule = *cfg.Daemon.Schedule
			}
			if schedule == "" {
				return errors.New("no schedule; pass --schedule or set [daemon] schedule in the config file")
			}

			engineCfg, err := flags.engineConfig(backupRoot)
			if err != nil {
				return err
			}
			if len(engineCfg.Sources) == 0 {
				return fmt.Errorf("no source directories; pass at least one -d/--dir")
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}))
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := cron.New()
			_, err = c.AddFunc(schedule, func() {
				runScheduled(ctx, engineCfg, flags.statsFile)
			})
			if err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			slog.Info("daemon started", "schedule", schedule, "backup_root", backupRoot)
			c.Start()
			<-ctx.Done()

			slog.Info("daemon stopping")
			cronCtx := c.Stop()
			// Let an in-flight run finish.
			<-cronCtx.Done()
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (e.g. \"0 3 * * *\")")
	return cmd
}

// runScheduled executes one backup run inside the daemon, logging the
// outcome instead of exiting.
func runScheduled(ctx context.Context, cfg engine.Config, statsFile string) {
	cfg.Stats = stats.NewCollector()

	started := time.Now()
	result := engine.Run(ctx, cfg)
	elapsed := time.Since(started)

	if result.Err != nil {
		if errors.Is(result.Err, generation.ErrLocked) {
			slog.Warn("previous run still in progress, skipping", "backup_root", cfg.BackupRoot)
			return
		}
		slog.Error("scheduled backup failed", "error", result.Err, "generation", result.Generation)
		return
	}

	slog.Info("scheduled backup complete",
		"generation", result.Generation,
		"copied", result.Stats.FilesCopied,
		"bytes", result.Stats.BytesCopied,
		"linked", result.Stats.FilesLinked,
		"elapsed", elapsed.Round(time.Second),
	)

	if result.Finalized {
		recordRun(cfg.BackupRoot, statsFile, result, started, elapsed, false)
	}
}
