package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/model"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show tracked runs",
	Long: "Lists recent runs from the run tracker, or shows one run in detail.\n" +
		"Requires tracker.redis_url; runs are not tracked across processes otherwise.",
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 20, "number of recent runs to list")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()
	if cfg.Tracker.RedisURL == "" {
		fmt.Fprintln(os.Stderr, "status requires tracker.redis_url in config")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t, err := setupTracker(ctx, cfg, logger)
	if err != nil {
		fail(logger, "failed to connect to tracker", err)
	}
	if closer, ok := t.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	if len(args) == 1 {
		state, err := t.Get(ctx, args[0])
		if errors.Is(err, model.ErrRunNotFound) {
			fmt.Fprintf(os.Stderr, "run %s not found\n", args[0])
			os.Exit(1)
		}
		if err != nil {
			fail(logger, "failed to read run", err)
		}
		printRun(state)
		return nil
	}

	states, err := t.Recent(ctx, statusLimit)
	if err != nil {
		fail(logger, "failed to list runs", err)
	}
	printRuns(states)
	return nil
}

func printRun(s model.RunState) {
	fmt.Printf("%-12s %s\n", "Run", s.RunID)
	fmt.Printf("%-12s %s\n", "Status", s.Status)
	if s.BatchID != "" {
		fmt.Printf("%-12s %s\n", "Batch", s.BatchID)
	}
	fmt.Printf("%-12s %s\n", "Started", s.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("%-12s %s\n", "Updated", s.UpdatedAt.Local().Format(time.RFC3339))
	if s.Detail != "" {
		fmt.Printf("%-12s %s\n", "Detail", s.Detail)
	}
	if s.Status == model.RunStatusTimedOut && s.BatchID != "" {
		fmt.Printf("\nResume with: jobenrich resume %s\n", s.BatchID)
	}
}

func printRuns(states []model.RunState) {
	fmt.Printf("%-36s  %-10s  %-20s  %s\n", "Run", "Status", "Started", "Batch")
	fmt.Println(strings.Repeat("─", 100))
	for _, s := range states {
		fmt.Printf("%-36s  %-10s  %-20s  %s\n", s.RunID, s.Status, s.StartedAt.Local().Format("2006-01-02 15:04:05"), s.BatchID)
	}
	fmt.Printf("\nTotal: %d runs\n", len(states))
}
