package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobenrich/internal/config"
)

var (
	cfgPath   string
	debug     bool
	logFormat string
	dryRun    bool
)

var rootCmd = &cobra.Command{
	Use:   "jobenrich",
	Short: "Scrape job listings and enrich them with the OpenAI Batch API",
	Long: "jobenrich scrapes job listings, submits one enrichment request per listing\n" +
		"as an OpenAI batch, waits for it, and stores the merged records.",
	// Running the binary with no subcommand performs a single run.
	RunE:          runRun,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBENRICH_CONFIG env var or ./jobenrich.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "run the pipeline without writing to the datastore")
}

// loadConfig resolves the config path and parses it.
// Priority: --config flag > JOBENRICH_CONFIG env var > ./jobenrich.yaml > built-in defaults.
func loadConfig() (*config.Config, error) {
	return config.Load(config.ResolvePath(cfgPath))
}

func setupLogger(dbg bool, format string) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// mustLoad sets up logging and loads config, exiting on failure.
func mustLoad() (*config.Config, *slog.Logger) {
	logger := setupLogger(debug, logFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

func fail(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func printBody(body string) {
	fmt.Fprintln(os.Stdout, body)
}
