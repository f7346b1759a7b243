package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 20
)

// adzunaResponse mirrors the top-level Adzuna search response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Company           adzunaCompany  `json:"company"`
	Location          adzunaLocation `json:"location"`
	SalaryMin         float64        `json:"salary_min"`
	SalaryMax         float64        `json:"salary_max"`
	SalaryIsPredicted string         `json:"salary_is_predicted"`
	RedirectURL       string         `json:"redirect_url"`
	Created           string         `json:"created"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string   `json:"display_name"`
	Area        []string `json:"area"`
}

// AdzunaScraper searches the Adzuna public jobs API.
type AdzunaScraper struct {
	baseURL string
	appID   string
	appKey  string
	client  *http.Client
}

var _ model.ListingScraper = (*AdzunaScraper)(nil)

// NewAdzunaScraper creates a scraper. An empty baseURL targets the public API.
func NewAdzunaScraper(baseURL, appID, appKey string, client *http.Client) *AdzunaScraper {
	if baseURL == "" {
		baseURL = adzunaBaseURL
	}
	return &AdzunaScraper{
		baseURL: baseURL,
		appID:   appID,
		appKey:  appKey,
		client:  client,
	}
}

// Scrape pages through search results, newest first, until ResultsWanted
// listings are collected or the results run out.
func (s *AdzunaScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	if s.appID == "" || s.appKey == "" {
		return nil, fmt.Errorf("adzuna scrape: app id and app key are required")
	}
	country, ok := countryCode(params.Country)
	if !ok {
		return nil, fmt.Errorf("adzuna scrape: unsupported country %q", params.Country)
	}

	wanted := params.ResultsWanted
	var listings []model.Listing
	for page := 1; page <= adzunaMaxPages; page++ {
		results, err := s.fetchPage(ctx, country, params, page)
		if err != nil {
			return nil, fmt.Errorf("adzuna scrape page %d: %w", page, err)
		}
		for _, r := range results {
			listings = append(listings, toListing(r, country))
		}
		if len(results) < adzunaPageSize || (wanted > 0 && len(listings) >= wanted) {
			break
		}
	}
	if wanted > 0 && len(listings) > wanted {
		listings = listings[:wanted]
	}
	return listings, nil
}

func (s *AdzunaScraper) fetchPage(ctx context.Context, country string, params model.SearchParams, page int) ([]adzunaResult, error) {
	q := url.Values{}
	q.Set("app_id", s.appID)
	q.Set("app_key", s.appKey)
	q.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	q.Set("sort_by", "date")
	q.Set("content-type", "application/json")
	if params.SearchTerm != "" {
		q.Set("what", params.SearchTerm)
	}
	if params.Location != "" {
		q.Set("where", params.Location)
	}
	if params.HoursOld > 0 {
		q.Set("max_days_old", strconv.Itoa((params.HoursOld+23)/24))
	}

	reqURL := fmt.Sprintf("%s/%s/search/%d?%s", s.baseURL, country, page, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("adzuna returned status %d", resp.StatusCode),
		}
	}

	var apiResp adzunaResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return apiResp.Results, nil
}

func toListing(r adzunaResult, country string) model.Listing {
	l := model.Listing{
		ID:           "az-" + r.ID,
		Site:         "adzuna",
		JobURL:       r.RedirectURL,
		JobURLDirect: model.StringPtr(r.RedirectURL),
		Title:        extractText(r.Title),
		Company:      model.StringPtr(r.Company.DisplayName),
		Location:     adzunaLocationString(r.Location),
		Description:  model.StringPtr(extractText(r.Description)),
	}
	if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
		l.DatePosted = &t
	}
	if r.SalaryIsPredicted != "1" && (r.SalaryMin > 0 || r.SalaryMax > 0) {
		if r.SalaryMin > 0 {
			lo := r.SalaryMin
			l.MinAmount = &lo
		}
		if r.SalaryMax > 0 {
			hi := r.SalaryMax
			l.MaxAmount = &hi
		}
		l.Interval = model.StringPtr("yearly")
		l.Currency = model.StringPtr(currencies[country])
	}
	return l
}

// adzunaLocationString renders the area hierarchy (country first) as
// "Suburb, State, Country". Shallow hierarchies fall back to the display name.
func adzunaLocationString(loc adzunaLocation) string {
	if len(loc.Area) < 3 {
		return loc.DisplayName
	}
	return strings.Join([]string{loc.Area[len(loc.Area)-1], loc.Area[1], loc.Area[0]}, ", ")
}
