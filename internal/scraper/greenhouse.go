package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Location       greenhouseLocation `json:"location"`
	AbsoluteURL    string             `json:"absolute_url"`
	Content        string             `json:"content"`
	FirstPublished string             `json:"first_published"`
	UpdatedAt      string             `json:"updated_at"`
	CompanyName    string             `json:"company_name"`
	PayInputRanges []greenhousePay    `json:"pay_input_ranges"`
}

type greenhousePay struct {
	MinCents     int64  `json:"min_cents"`
	MaxCents     int64  `json:"max_cents"`
	CurrencyType string `json:"currency_type"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseScraper fetches one company's board from the Greenhouse public API.
type GreenhouseScraper struct {
	baseURL     string
	boardToken  string
	companyName string
	client      *http.Client
}

var _ model.ListingScraper = (*GreenhouseScraper)(nil)

// NewGreenhouseScraper creates a scraper for a Greenhouse board.
func NewGreenhouseScraper(baseURL, boardToken, companyName string, client *http.Client) *GreenhouseScraper {
	if baseURL == "" {
		baseURL = greenhouseBaseURL
	}
	return &GreenhouseScraper{
		baseURL:     baseURL,
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// Scrape retrieves the board with job content. The board API has no search,
// so HoursOld and ResultsWanted are applied locally.
func (s *GreenhouseScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true&pay_transparency=true", s.baseURL, s.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("greenhouse scrape for %s: %w", s.boardToken, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse scrape for %s: %w", s.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("greenhouse scrape for %s: unexpected status %d", s.boardToken, resp.StatusCode),
		}
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse scrape for %s: %w", s.boardToken, err)
	}

	var cutoff time.Time
	if params.HoursOld > 0 {
		cutoff = time.Now().Add(-time.Duration(params.HoursOld) * time.Hour)
	}

	listings := make([]model.Listing, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		company := s.companyName
		if company == "" {
			company = gj.CompanyName
		}
		l := model.Listing{
			ID:           "gh-" + strconv.FormatInt(gj.ID, 10),
			Site:         "greenhouse",
			JobURL:       gj.AbsoluteURL,
			JobURLDirect: model.StringPtr(gj.AbsoluteURL),
			Title:        gj.Title,
			Company:      model.StringPtr(company),
			Location:     gj.Location.Name,
			Description:  model.StringPtr(extractText(gj.Content)),
		}

		posted := gj.FirstPublished
		if posted == "" {
			posted = gj.UpdatedAt
		}
		if posted != "" {
			t, err := time.Parse(time.RFC3339, posted)
			if err == nil {
				l.DatePosted = &t
			}
		}

		if len(gj.PayInputRanges) > 0 {
			applyPay(&l, gj.PayInputRanges[0])
		}

		if !cutoff.IsZero() && l.DatePosted != nil && l.DatePosted.Before(cutoff) {
			continue
		}
		listings = append(listings, l)
		if params.ResultsWanted > 0 && len(listings) == params.ResultsWanted {
			break
		}
	}

	return listings, nil
}

// applyPay copies a posted pay range. Greenhouse ranges are annual amounts in cents.
func applyPay(l *model.Listing, p greenhousePay) {
	if p.MinCents > 0 {
		lo := float64(p.MinCents) / 100
		l.MinAmount = &lo
	}
	if p.MaxCents > 0 {
		hi := float64(p.MaxCents) / 100
		l.MaxAmount = &hi
	}
	if l.MinAmount != nil || l.MaxAmount != nil {
		l.Interval = model.StringPtr("yearly")
		l.Currency = model.StringPtr(p.CurrencyType)
	}
}
