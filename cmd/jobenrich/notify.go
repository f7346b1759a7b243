package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample run summary using the configured notifier.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n, closeNotifier, err := setupNotifier(cfg, httpClient, logger)
	if err != nil {
		fail(logger, "failed to set up notifier", err)
	}
	defer closeNotifier()

	if err := notifier.SendTestMessage(n); err != nil {
		closeNotifier()
		fail(logger, "test notification failed", err)
	}
	logger.Info("test notification sent successfully", "type", cfg.Notification.Type)
	return nil
}
