package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/trigger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one enrichment pass and exit",
	Long: "Scrapes listings, submits the enrichment batch, waits for it and stores the\n" +
		"merged records. Prints the response body and exits non-zero on failure.",
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	resp := trigger.NewHandler(a.runner.Run, logger).Handle(ctx, nil)
	printBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		a.Close()
		os.Exit(1)
	}
	return nil
}
