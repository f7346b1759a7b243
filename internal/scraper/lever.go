package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

type leverCategories struct {
	Team         string   `json:"team"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

type leverSalary struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"` // e.g. "per-year-salary", "per-hour-wage"
}

// leverJob is one posting in the Lever postings API (mode=json).
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	Description      string          `json:"description"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"` // unix millis
	HostedURL        string          `json:"hostedUrl"`
	ApplyURL         string          `json:"applyUrl"`
	SalaryRange      *leverSalary    `json:"salaryRange"`
}

// LeverScraper fetches one company's postings from the Lever public API.
type LeverScraper struct {
	baseURL     string
	companySlug string
	companyName string
	client      *http.Client
	now         func() time.Time
}

var _ model.ListingScraper = (*LeverScraper)(nil)

// NewLeverScraper creates a scraper for the Lever board at companySlug.
func NewLeverScraper(baseURL, companySlug, companyName string, client *http.Client) *LeverScraper {
	if baseURL == "" {
		baseURL = leverBaseURL
	}
	return &LeverScraper{
		baseURL:     baseURL,
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
		now:         time.Now,
	}
}

// Scrape retrieves every posting; HoursOld and ResultsWanted are applied locally.
func (s *LeverScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s?mode=json", s.baseURL, s.companySlug)

	var jobs []leverJob
	if err := getBoardJSON(ctx, s.client, "lever", s.companySlug, url, &jobs); err != nil {
		return nil, err
	}

	company := s.companyName
	if company == "" {
		company = s.companySlug
	}

	listings := make([]model.Listing, 0, len(jobs))
	for _, lj := range jobs {
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, " / ")
		}

		desc := lj.DescriptionPlain
		if desc == "" {
			desc = extractText(lj.Description)
		}

		l := model.Listing{
			ID:          "lever-" + lj.ID,
			Site:        "lever",
			JobURL:      lj.HostedURL,
			Title:       lj.Text,
			Company:     model.StringPtr(company),
			Location:    location,
			Description: model.StringPtr(desc),
		}
		if lj.ApplyURL != "" {
			l.JobURLDirect = model.StringPtr(lj.ApplyURL)
		}
		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt).UTC()
			l.DatePosted = &t
		}
		if lj.SalaryRange != nil {
			applyLeverSalary(&l, *lj.SalaryRange)
		}
		listings = append(listings, l)
	}

	return boardWindow(listings, params, s.now()), nil
}

func applyLeverSalary(l *model.Listing, sr leverSalary) {
	var interval string
	switch {
	case strings.HasPrefix(sr.Interval, "per-year"):
		interval = "yearly"
	case strings.HasPrefix(sr.Interval, "per-hour"):
		interval = "hourly"
	default:
		// Monthly, weekly and one-time ranges do not fit the enrichment enum.
		return
	}
	if sr.Min > 0 {
		lo := sr.Min
		l.MinAmount = &lo
	}
	if sr.Max > 0 {
		hi := sr.Max
		l.MaxAmount = &hi
	}
	if l.MinAmount != nil || l.MaxAmount != nil {
		l.Interval = model.StringPtr(interval)
		l.Currency = model.StringPtr(sr.Currency)
	}
}
