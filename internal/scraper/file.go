package scraper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/amishk599/jobenrich/internal/model"
)

// FileScraper reads listings exported by another scraper, as a JSON array or
// newline-delimited JSON.
type FileScraper struct {
	path string
}

var _ model.ListingScraper = (*FileScraper)(nil)

func NewFileScraper(path string) *FileScraper {
	return &FileScraper{path: path}
}

// Scrape returns the file's listings. Site fills listings that carry none and
// ResultsWanted caps the count.
func (s *FileScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading listings file: %w", err)
	}

	listings, err := decodeListings(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	for i := range listings {
		if listings[i].Site == "" {
			listings[i].Site = params.Site
		}
	}
	if params.ResultsWanted > 0 && len(listings) > params.ResultsWanted {
		listings = listings[:params.ResultsWanted]
	}
	return listings, nil
}

func decodeListings(data []byte) ([]model.Listing, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var listings []model.Listing
		if err := json.Unmarshal(trimmed, &listings); err != nil {
			return nil, err
		}
		return listings, nil
	}

	var listings []model.Listing
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var l model.Listing
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		listings = append(listings, l)
	}
	return listings, sc.Err()
}
