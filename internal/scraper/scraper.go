// Package scraper fetches job listings from job boards and normalizes them
// into model.Listing.
package scraper

import (
	"fmt"
	"net/http"

	"github.com/amishk599/jobenrich/internal/model"
)

// Scraper types accepted by New.
const (
	TypeAdzuna     = "adzuna"
	TypeGreenhouse = "greenhouse"
	TypeLever      = "lever"
	TypeAshby      = "ashby"
	TypeFile       = "file"
)

// Options select and configure a scraper.
type Options struct {
	Type       string
	BaseURL    string // overrides the public API root
	AppID      string // adzuna
	AppKey     string // adzuna
	BoardToken string // greenhouse, ashby; the company slug for lever
	Company    string // greenhouse, lever, ashby
	Path       string // file
}

// New builds the scraper named by opts.Type.
func New(opts Options, client *http.Client) (model.ListingScraper, error) {
	switch opts.Type {
	case TypeAdzuna:
		if opts.AppID == "" || opts.AppKey == "" {
			return nil, fmt.Errorf("adzuna scraper requires app_id and app_key")
		}
		return NewAdzunaScraper(opts.BaseURL, opts.AppID, opts.AppKey, client), nil
	case TypeGreenhouse:
		if opts.BoardToken == "" {
			return nil, fmt.Errorf("greenhouse scraper requires board_token")
		}
		return NewGreenhouseScraper(opts.BaseURL, opts.BoardToken, opts.Company, client), nil
	case TypeLever:
		if opts.BoardToken == "" {
			return nil, fmt.Errorf("lever scraper requires board_token (the company slug)")
		}
		return NewLeverScraper(opts.BaseURL, opts.BoardToken, opts.Company, client), nil
	case TypeAshby:
		if opts.BoardToken == "" {
			return nil, fmt.Errorf("ashby scraper requires board_token")
		}
		return NewAshbyScraper(opts.BaseURL, opts.BoardToken, opts.Company, client), nil
	case TypeFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file scraper requires path")
		}
		return NewFileScraper(opts.Path), nil
	}
	return nil, fmt.Errorf("unknown scraper type %q", opts.Type)
}
