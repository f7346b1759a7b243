package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/amishk599/jobenrich/internal/artifact"
	"github.com/amishk599/jobenrich/internal/config"
	"github.com/amishk599/jobenrich/internal/notifier"
	"github.com/amishk599/jobenrich/internal/schema"
	"github.com/amishk599/jobenrich/internal/store"
	"github.com/amishk599/jobenrich/internal/tracker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearchParams(t *testing.T) {
	params := searchParams([]config.SearchConfig{
		{Site: "adzuna", SearchTerm: "golang", Location: "Sydney NSW", ResultsWanted: 50, HoursOld: 24, Country: "Australia"},
	})
	if len(params) != 1 {
		t.Fatalf("params = %+v", params)
	}
	p := params[0]
	if p.Site != "adzuna" || p.SearchTerm != "golang" || p.ResultsWanted != 50 || p.HoursOld != 24 || p.Country != "Australia" {
		t.Errorf("params = %+v", p)
	}
}

func TestSetupNotifier_DefaultsToLog(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	n, closeFn, err := setupNotifier(cfg, http.DefaultClient, discardLogger())
	if err != nil {
		t.Fatalf("setupNotifier: %v", err)
	}
	if _, ok := n.(*notifier.LogNotifier); !ok {
		t.Errorf("notifier = %T, want *notifier.LogNotifier", n)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestSetupTracker_MemoryWithoutRedis(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	tr, err := setupTracker(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("setupTracker: %v", err)
	}
	if _, ok := tr.(*tracker.MemoryTracker); !ok {
		t.Errorf("tracker = %T, want *tracker.MemoryTracker", tr)
	}
}

func TestSetupStore_DryRunDiscards(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	st, err := setupStore(context.Background(), cfg, schema.Enrichment(), true, discardLogger())
	if err != nil {
		t.Fatalf("setupStore: %v", err)
	}
	if _, ok := st.(*store.NopStore); !ok {
		t.Errorf("store = %T, want *store.NopStore", st)
	}
}

func TestSetupArchiver_DefaultsToNop(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	a, err := setupArchiver(cfg, discardLogger())
	if err != nil {
		t.Fatalf("setupArchiver: %v", err)
	}
	if _, ok := a.(artifact.NopArchiver); !ok {
		t.Fatalf("archiver = %T, want artifact.NopArchiver", a)
	}
	loc, err := a.Archive(context.Background(), "batches/b1/batch.jsonl", "/tmp/batch.jsonl")
	if err != nil || loc != "/tmp/batch.jsonl" {
		t.Errorf("Archive = %q, %v; want local path", loc, err)
	}
}

func TestSetupArchiver_MinIOWhenConfigured(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Artifacts.Endpoint = "localhost:9000"
	cfg.Artifacts.Bucket = "batches"
	a, err := setupArchiver(cfg, discardLogger())
	if err != nil {
		t.Fatalf("setupArchiver: %v", err)
	}
	if _, ok := a.(artifact.NopArchiver); ok {
		t.Error("expected a MinIO archiver when an endpoint is configured")
	}
}

func TestSetupScraper_RequiresCredentials(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Scraper.AppID = ""
	cfg.Scraper.AppKey = ""
	if _, err := setupScraper(cfg, http.DefaultClient, discardLogger()); err == nil {
		t.Fatal("expected error for adzuna without credentials")
	}
}

func TestBuildApp_DryRun(t *testing.T) {
	t.Setenv(config.EnvBatchFilePath, t.TempDir()+"/batch.jsonl")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Scraper.Type = "file"
	cfg.Scraper.Path = "listings.json"

	a, err := buildApp(context.Background(), cfg, true, discardLogger())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer a.Close()
	if a.runner == nil || a.tracker == nil {
		t.Errorf("app = %+v", a)
	}
}
