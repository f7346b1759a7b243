package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Listing is one scraped job posting, normalized across sources.
type Listing struct {
	ID           string     `json:"id"`             // stable per source, used as the batch correlation id
	Site         string     `json:"site"`           // source name, e.g. "adzuna"
	JobURL       string     `json:"job_url"`        // listing page on the source
	JobURLDirect *string    `json:"job_url_direct"` // employer apply link, not every source has one
	Title        string     `json:"title"`
	Company      *string    `json:"company"`
	Location     string     `json:"location"` // raw free-text location
	Description  *string    `json:"description"`
	DatePosted   *time.Time `json:"date_posted"`

	MinAmount *float64 `json:"min_amount"`
	MaxAmount *float64 `json:"max_amount"`
	Interval  *string  `json:"interval"`
	Currency  *string  `json:"currency"`

	// Derived from Location by the location parser.
	Suburb  string `json:"location_suburb"`
	State   string `json:"location_state"`
	Country string `json:"location_country"`
}

// SearchParams describes one scrape request.
type SearchParams struct {
	Site          string
	SearchTerm    string
	Location      string
	ResultsWanted int
	HoursOld      int
	Country       string
}

// NormalizeListing trims string fields and collapses empty optional fields to nil.
// A listing without an id cannot be correlated with a batch result and is rejected.
func NormalizeListing(l Listing) (Listing, error) {
	l.ID = strings.TrimSpace(l.ID)
	if l.ID == "" {
		return l, fmt.Errorf("listing %q from %s has no id", l.Title, l.Site)
	}
	l.Site = strings.TrimSpace(l.Site)
	l.JobURL = strings.TrimSpace(l.JobURL)
	l.Title = strings.TrimSpace(l.Title)
	l.Location = strings.TrimSpace(l.Location)
	l.JobURLDirect = trimOptional(l.JobURLDirect)
	l.Company = trimOptional(l.Company)
	l.Description = trimOptional(l.Description)
	l.Interval = trimOptional(l.Interval)
	l.Currency = trimOptional(l.Currency)
	if l.DatePosted != nil && l.DatePosted.IsZero() {
		l.DatePosted = nil
	}
	return l, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Record is one enriched listing projected to the persisted columns.
type Record map[string]any

// ListingScraper fetches listings from a job board.
type ListingScraper interface {
	Scrape(ctx context.Context, params SearchParams) ([]Listing, error)
}

// ListingFilter decides whether a listing is worth enriching.
type ListingFilter interface {
	Match(l Listing) bool
}

// RecordWriter performs one bulk insert of records into a table.
type RecordWriter interface {
	InsertRecords(ctx context.Context, table string, columns []string, records []Record) error
}

// Notifier announces the outcome of a run.
type Notifier interface {
	Notify(summary RunSummary) error
}

// Archiver copies a local artifact to durable storage and returns its location.
type Archiver interface {
	Archive(ctx context.Context, objectName, localPath string) (string, error)
}
