package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/scheduler"
	"github.com/amishk599/jobenrich/internal/trigger"
)

var withSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP trigger",
	Long: "Listens for POST /runs and answers run status queries; blocks until SIGINT/SIGTERM.\n" +
		"With --schedule the cron schedule fires runs through the same handler.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&withSchedule, "schedule", false, "also trigger runs on the configured schedule")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	handler := trigger.NewHandler(a.runner.Run, logger)
	srv := trigger.NewServer(ctx, handler, a.tracker, logger)

	if withSchedule {
		sched := scheduler.NewScheduler(cfg.Schedule, handler, logger)
		go func() {
			if err := sched.Run(ctx); err != nil {
				logger.Error("scheduler error", "error", err)
				stop()
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errc <- srv.Listen(cfg.Server.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errc:
		if err != nil {
			stop()
			waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			handler.Wait(waitCtx)
			cancel()
			a.Close()
			fail(logger, "server error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	// The deferred Close releases the store and tracker the run writes to.
	if err := handler.Wait(shutdownCtx); err != nil {
		logger.Warn("run still in flight at exit", "error", err)
	}
	logger.Info("goodbye")
	return nil
}
