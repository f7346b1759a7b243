package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amishk599/jobenrich/internal/ai"
	"github.com/amishk599/jobenrich/internal/artifact"
	"github.com/amishk599/jobenrich/internal/config"
	"github.com/amishk599/jobenrich/internal/filter"
	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/notifier"
	"github.com/amishk599/jobenrich/internal/pipeline"
	"github.com/amishk599/jobenrich/internal/poller"
	"github.com/amishk599/jobenrich/internal/ratelimit"
	"github.com/amishk599/jobenrich/internal/retry"
	"github.com/amishk599/jobenrich/internal/schema"
	"github.com/amishk599/jobenrich/internal/scraper"
	"github.com/amishk599/jobenrich/internal/store"
	"github.com/amishk599/jobenrich/internal/telemetry"
	"github.com/amishk599/jobenrich/internal/tracker"
)

// app holds everything a run needs plus the resources to release afterwards.
type app struct {
	runner  *pipeline.Runner
	tracker model.RunTracker
	closers []func() error
	logger  *slog.Logger
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// buildApp wires the pipeline from cfg. With dry set, records are discarded
// instead of written to the datastore.
func buildApp(ctx context.Context, cfg *config.Config, dry bool, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.closers = append(a.closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(sctx)
	})

	enrichment := schema.Enrichment()

	writer, err := setupStore(ctx, cfg, enrichment, dry, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, writer.Close)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	listingScraper, err := setupScraper(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	n, closeNotifier, err := setupNotifier(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeNotifier)

	a.tracker, err = setupTracker(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer, isCloser := a.tracker.(interface{ Close() error }); isCloser {
		a.closers = append(a.closers, closer.Close)
	}

	archiver, err := setupArchiver(cfg, logger)
	if err != nil {
		return nil, err
	}

	batches := ai.NewBatchClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.CompletionWindow,
		&http.Client{Timeout: cfg.OpenAI.Timeout})
	batchPoller := poller.NewBatchPoller(batches, poller.Options{
		Interval:    cfg.Polling.Interval,
		MaxWait:     cfg.Polling.MaxWait,
		MaxAttempts: cfg.Polling.MaxAttempts,
		Backoff:     cfg.Polling.Backoff,
		MaxInterval: cfg.Polling.MaxInterval,
	}, nil, logger)

	a.runner = pipeline.NewRunner(pipeline.Deps{
		Scraper: listingScraper,
		Searches: searchParams(cfg.Searches),
		Filter: filter.New(filter.Options{
			TitleKeywords:      cfg.Filters.TitleKeywords,
			ExcludeTitles:      cfg.Filters.ExcludeTitles,
			Locations:          cfg.Filters.Locations,
			RequireDescription: cfg.Filters.RequireDescription,
		}),
		Builder:       ai.NewRequestBuilder(cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, enrichment, ai.EnrichmentTemplate),
		Batches:       batches,
		Poller:        batchPoller,
		Writer:        writer,
		Schema:        enrichment,
		Table:         cfg.Datastore.Table,
		BatchFilePath: cfg.BatchFilePath,
		Notifier:      n,
		Tracker:       a.tracker,
		Archiver:      archiver,
		Logger:        logger,
	})

	logger.Info("pipeline ready",
		"scraper", cfg.Scraper.Type,
		"searches", len(cfg.Searches),
		"model", cfg.OpenAI.Model,
		"table", cfg.Datastore.Table,
		"poll_interval", cfg.Polling.Interval.String(),
		"max_wait", cfg.Polling.MaxWait.String(),
		"dry_run", dry,
	)
	ok = true
	return a, nil
}

func setupStore(ctx context.Context, cfg *config.Config, s schema.Schema, dry bool, logger *slog.Logger) (store.Store, error) {
	if dry {
		logger.Info("dry-run mode enabled, records will not be stored")
		return store.NewNopStore(), nil
	}
	st, err := store.Open(ctx, cfg.Datastore.URL, cfg.Datastore.Key)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	if err := st.EnsureListingsTable(ctx, cfg.Datastore.Table, s.ColumnSpecs()); err != nil {
		st.Close()
		return nil, fmt.Errorf("prepare table %s: %w", cfg.Datastore.Table, err)
	}
	return st, nil
}

// setupScraper builds the configured source wrapped with per-site rate
// limiting and retry with backoff.
func setupScraper(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.ListingScraper, error) {
	s, err := scraper.New(scraper.Options{
		Type:       cfg.Scraper.Type,
		BaseURL:    cfg.Scraper.BaseURL,
		AppID:      cfg.Scraper.AppID,
		AppKey:     cfg.Scraper.AppKey,
		BoardToken: cfg.Scraper.BoardToken,
		Company:    cfg.Scraper.Company,
		Path:       cfg.Scraper.Path,
	}, httpClient)
	if err != nil {
		return nil, err
	}
	logger.Info("scraper min_delay", "min_delay", cfg.Scraper.MinDelay.String())
	limited := ratelimit.NewRateLimitedScraper(s, ratelimit.NewSiteRateLimiter(cfg.Scraper.MinDelay))
	return retry.NewRetryScraper(limited, cfg.Scraper.MaxRetries, cfg.Scraper.RetryDelay, logger), nil
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), noop, nil
	case "nats":
		n, err := notifier.NewNATSNotifier(cfg.Notification.NATSURL, cfg.Notification.Subject, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("nats notifier: %w", err)
		}
		logger.Info("using nats notifier", "subject", cfg.Notification.Subject)
		return n, n.Close, nil
	default:
		return notifier.NewLogNotifier(logger), noop, nil
	}
}

// setupTracker uses Redis when configured so run state outlives the process.
func setupTracker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.RunTracker, error) {
	if cfg.Tracker.RedisURL == "" {
		return tracker.NewMemoryTracker(), nil
	}
	t, err := tracker.NewRedisTracker(ctx, cfg.Tracker.RedisURL, cfg.Tracker.TTL)
	if err != nil {
		return nil, fmt.Errorf("run tracker: %w", err)
	}
	logger.Info("tracking runs in redis", "ttl", cfg.Tracker.TTL.String())
	return t, nil
}

func searchParams(searches []config.SearchConfig) []model.SearchParams {
	params := make([]model.SearchParams, len(searches))
	for i, s := range searches {
		params[i] = model.SearchParams{
			Site:          s.Site,
			SearchTerm:    s.SearchTerm,
			Location:      s.Location,
			ResultsWanted: s.ResultsWanted,
			HoursOld:      s.HoursOld,
			Country:       s.Country,
		}
	}
	return params
}

// setupArchiver returns the MinIO archiver when artifacts.endpoint is set and
// a pass-through archiver otherwise.
func setupArchiver(cfg *config.Config, logger *slog.Logger) (model.Archiver, error) {
	if cfg.Artifacts.Endpoint == "" {
		logger.Debug("artifact archiving disabled, batch files stay local")
		return artifact.NopArchiver{}, nil
	}
	archiver, err := artifact.NewMinIOArchiver(artifact.Options{
		Endpoint:  cfg.Artifacts.Endpoint,
		AccessKey: cfg.Artifacts.AccessKey,
		SecretKey: cfg.Artifacts.SecretKey,
		Bucket:    cfg.Artifacts.Bucket,
		UseSSL:    cfg.Artifacts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	logger.Info("archiving batch files", "endpoint", cfg.Artifacts.Endpoint, "bucket", cfg.Artifacts.Bucket)
	return archiver, nil
}
