package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first so double-encoded bodies lose their tags too.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, " ")
	return strings.Join(strings.Fields(plain), " ")
}

// countryCodes maps the country names accepted in search params to the
// two-letter codes job boards use.
var countryCodes = map[string]string{
	"australia":      "au",
	"austria":        "at",
	"belgium":        "be",
	"brazil":         "br",
	"canada":         "ca",
	"france":         "fr",
	"germany":        "de",
	"india":          "in",
	"italy":          "it",
	"mexico":         "mx",
	"netherlands":    "nl",
	"new zealand":    "nz",
	"poland":         "pl",
	"singapore":      "sg",
	"south africa":   "za",
	"spain":          "es",
	"switzerland":    "ch",
	"united kingdom": "gb",
	"uk":             "gb",
	"united states":  "us",
	"usa":            "us",
}

var currencies = map[string]string{
	"au": "AUD", "at": "EUR", "be": "EUR", "br": "BRL", "ca": "CAD", "fr": "EUR",
	"de": "EUR", "in": "INR", "it": "EUR", "mx": "MXN", "nl": "EUR", "nz": "NZD",
	"pl": "PLN", "sg": "SGD", "za": "ZAR", "es": "EUR", "ch": "CHF", "gb": "GBP", "us": "USD",
}

// countryCode resolves a country name or code to a lower-case two-letter code.
func countryCode(country string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(country))
	if code, ok := countryCodes[c]; ok {
		return code, true
	}
	if _, ok := currencies[c]; ok {
		return c, true
	}
	return "", false
}

// getBoardJSON fetches a public job board endpoint and decodes the body into v.
// Non-200 responses become *model.HTTPError so the retry decorator can classify them.
func getBoardJSON(ctx context.Context, client *http.Client, board, token, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s scrape for %s: %w", board, token, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s scrape for %s: %w", board, token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: model.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("%s scrape for %s: unexpected status %d", board, token, resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s scrape for %s: %w", board, token, err)
	}
	return nil
}

// boardWindow applies HoursOld and ResultsWanted locally, for boards whose
// API returns the whole board at once. Listings without a date are kept.
func boardWindow(listings []model.Listing, params model.SearchParams, now time.Time) []model.Listing {
	var cutoff time.Time
	if params.HoursOld > 0 {
		cutoff = now.Add(-time.Duration(params.HoursOld) * time.Hour)
	}
	out := listings[:0]
	for _, l := range listings {
		if !cutoff.IsZero() && l.DatePosted != nil && l.DatePosted.Before(cutoff) {
			continue
		}
		out = append(out, l)
		if params.ResultsWanted > 0 && len(out) == params.ResultsWanted {
			break
		}
	}
	return out
}
