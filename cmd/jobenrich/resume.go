package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/trigger"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <batch-id>",
	Short: "Finish a batch that an earlier run stopped waiting for",
	Long: "Polls an existing batch, then merges and stores its results using the listings\n" +
		"snapshot written when the batch was submitted.",
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
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

	batchID := args[0]
	resume := func(ctx context.Context) (model.RunSummary, error) {
		return a.runner.Resume(ctx, batchID)
	}
	resp := trigger.NewHandler(resume, logger).Handle(ctx, nil)
	printBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		a.Close()
		os.Exit(1)
	}
	return nil
}
