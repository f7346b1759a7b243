package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

func newTestAshby(t *testing.T, status int, payload string) *AshbyScraper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme" {
			t.Errorf("unexpected request: %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return NewAshbyScraper(srv.URL, "acme", "", srv.Client())
}

func TestAshbyScrape_SkipsUnlisted(t *testing.T) {
	payload := `{
		"jobs": [
			{
				"id": "a1",
				"title": "Data Engineer",
				"location": "Sydney",
				"jobUrl": "https://jobs.ashbyhq.com/acme/a1",
				"applyUrl": "https://jobs.ashbyhq.com/acme/a1/application",
				"descriptionHtml": "<p>Pipelines &amp; more</p>",
				"publishedAt": "2026-02-10T09:00:00Z",
				"isListed": true
			},
			{
				"id": "a2",
				"title": "Hidden Role",
				"jobUrl": "https://jobs.ashbyhq.com/acme/a2",
				"isListed": false
			}
		]
	}`
	s := newTestAshby(t, http.StatusOK, payload)

	listings, err := s.Scrape(context.Background(), model.SearchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}

	l := listings[0]
	if l.ID != "ashby-a1" || l.Site != "ashby" {
		t.Errorf("unexpected identity: %s / %s", l.ID, l.Site)
	}
	if *l.Company != "acme" {
		t.Errorf("expected board token as company fallback, got %q", *l.Company)
	}
	if *l.Description != "Pipelines & more" {
		t.Errorf("unexpected description: %q", *l.Description)
	}
	if l.JobURL != "https://jobs.ashbyhq.com/acme/a1" || *l.JobURLDirect != "https://jobs.ashbyhq.com/acme/a1/application" {
		t.Errorf("unexpected urls: %s / %v", l.JobURL, l.JobURLDirect)
	}
	want := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	if l.DatePosted == nil || !l.DatePosted.Equal(want) {
		t.Errorf("expected date %v, got %v", want, l.DatePosted)
	}
}

func TestAshbyScrape_HoursOld(t *testing.T) {
	now := time.Now().UTC()
	payload := fmt.Sprintf(`{"jobs": [
		{"id": "new", "title": "A", "publishedAt": %q, "isListed": true},
		{"id": "old", "title": "B", "publishedAt": %q, "isListed": true},
		{"id": "undated", "title": "C", "isListed": true}
	]}`, now.Add(-time.Hour).Format(time.RFC3339), now.Add(-48*time.Hour).Format(time.RFC3339))
	s := newTestAshby(t, http.StatusOK, payload)

	listings, err := s.Scrape(context.Background(), model.SearchParams{HoursOld: 24})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].ID != "ashby-new" || listings[1].ID != "ashby-undated" {
		t.Errorf("unexpected ids: %s, %s", listings[0].ID, listings[1].ID)
	}
}

func TestAshbyScrape_HTTPError(t *testing.T) {
	s := newTestAshby(t, http.StatusInternalServerError, `{}`)
	_, err := s.Scrape(context.Background(), model.SearchParams{})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 *model.HTTPError, got %v", err)
	}
}
