package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob is one job in the Ashby job board API response.
type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobURL           string `json:"jobUrl"`
	ApplyURL         string `json:"applyUrl"`
	DescriptionPlain string `json:"descriptionPlain"`
	DescriptionHTML  string `json:"descriptionHtml"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
}

type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// AshbyScraper fetches one company's board from the Ashby public posting API.
type AshbyScraper struct {
	baseURL     string
	boardToken  string
	companyName string
	client      *http.Client
	now         func() time.Time
}

var _ model.ListingScraper = (*AshbyScraper)(nil)

// NewAshbyScraper creates a scraper for an Ashby job board.
func NewAshbyScraper(baseURL, boardToken, companyName string, client *http.Client) *AshbyScraper {
	if baseURL == "" {
		baseURL = ashbyBaseURL
	}
	return &AshbyScraper{
		baseURL:     baseURL,
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
		now:         time.Now,
	}
}

// Scrape retrieves the listed jobs on the board. Unlisted jobs are skipped;
// HoursOld and ResultsWanted are applied locally.
func (s *AshbyScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, s.boardToken)

	var resp ashbyResponse
	if err := getBoardJSON(ctx, s.client, "ashby", s.boardToken, url, &resp); err != nil {
		return nil, err
	}

	company := s.companyName
	if company == "" {
		company = s.boardToken
	}

	listings := make([]model.Listing, 0, len(resp.Jobs))
	for _, aj := range resp.Jobs {
		if !aj.IsListed {
			continue
		}

		id := aj.ID
		if id == "" {
			id = aj.JobURL
		}
		desc := aj.DescriptionPlain
		if desc == "" {
			desc = extractText(aj.DescriptionHTML)
		}

		l := model.Listing{
			ID:          "ashby-" + id,
			Site:        "ashby",
			JobURL:      aj.JobURL,
			Title:       aj.Title,
			Company:     model.StringPtr(company),
			Location:    aj.Location,
			Description: model.StringPtr(desc),
		}
		if aj.ApplyURL != "" {
			l.JobURLDirect = model.StringPtr(aj.ApplyURL)
		}
		if aj.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, aj.PublishedAt); err == nil {
				l.DatePosted = &t
			}
		}
		listings = append(listings, l)
	}

	return boardWindow(listings, params, s.now()), nil
}
