// Package filter decides which scraped listings are worth an enrichment request.
package filter

import (
	"strings"

	"github.com/amishk599/jobenrich/internal/model"
)

// Options configure a ListingFilter. Empty keyword lists match everything.
type Options struct {
	TitleKeywords      []string // title must contain one of these
	ExcludeTitles      []string // title must contain none of these
	Locations          []string // raw location must contain one of these
	RequireDescription bool     // skip listings the model would have nothing to read from
}

// ListingFilter matches listings by case-insensitive substring on title and location.
type ListingFilter struct {
	titleKeywords      []string
	excludeTitles      []string
	locations          []string
	requireDescription bool
}

var _ model.ListingFilter = (*ListingFilter)(nil)

// New returns a filter for opts. Keywords are lower-cased once here.
func New(opts Options) *ListingFilter {
	return &ListingFilter{
		titleKeywords:      lowerAll(opts.TitleKeywords),
		excludeTitles:      lowerAll(opts.ExcludeTitles),
		locations:          lowerAll(opts.Locations),
		requireDescription: opts.RequireDescription,
	}
}

// Match reports whether l passes every configured rule.
func (f *ListingFilter) Match(l model.Listing) bool {
	if f.requireDescription && (l.Description == nil || strings.TrimSpace(*l.Description) == "") {
		return false
	}

	titleLower := strings.ToLower(l.Title)
	if len(f.titleKeywords) > 0 && !containsAny(titleLower, f.titleKeywords) {
		return false
	}
	if containsAny(titleLower, f.excludeTitles) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(strings.ToLower(l.Location), f.locations) {
		return false
	}
	return true
}

// Apply returns the listings that match, preserving order.
func Apply(f model.ListingFilter, listings []model.Listing) []model.Listing {
	if f == nil {
		return listings
	}
	kept := listings[:0:0]
	for _, l := range listings {
		if f.Match(l) {
			kept = append(kept, l)
		}
	}
	return kept
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
