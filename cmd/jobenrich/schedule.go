package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/scheduler"
	"github.com/amishk599/jobenrich/internal/trigger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run on the configured cron schedule",
	Long:  "Runs once immediately, then on every tick of the schedule; blocks until SIGINT/SIGTERM.",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()
	if err := cfg.RequireRunEnv(); err != nil {
		fail(logger, "missing configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, dryRun, logger)
	if err != nil {
		fail(logger, "failed to build pipeline", err)
	}
	defer a.Close()

	logger.Info("scheduler configured", "schedule", cfg.Schedule)
	sched := scheduler.NewScheduler(cfg.Schedule, trigger.NewHandler(a.runner.Run, logger), logger)
	if err := sched.Run(ctx); err != nil {
		a.Close()
		fail(logger, "scheduler error", err)
	}

	logger.Info("goodbye")
	return nil
}
