package merge

import (
	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

// Stats counts what the join kept and discarded.
type Stats struct {
	Listings   int // listings offered to the join
	Results    int // valid results offered to the join
	Joined     int // listings with a matching result
	Incomplete int // joined rows dropped for a missing column value
	Orphaned   int // results whose custom_id matched no listing
}

// Unmatched is the number of listings that had no result. Incomplete rows
// did match, so they are not subtracted again.
func (s Stats) Unmatched() int {
	return s.Listings - s.Joined
}

// Join inner-joins listings with results on listing id, projects each pair
// onto s.Columns() and drops rows with any missing value. Output keeps
// listing order.
func Join(listings []model.Listing, results map[string]Result, s schema.Schema) ([]model.Record, Stats) {
	stats := Stats{Listings: len(listings), Results: len(results)}
	columns := s.Columns()

	matched := make(map[string]struct{}, len(results))
	records := make([]model.Record, 0, len(listings))
	for _, l := range listings {
		r, ok := results[l.ID]
		if !ok {
			continue
		}
		matched[l.ID] = struct{}{}
		stats.Joined++

		row := baseValues(l)
		for k, v := range r.Fields {
			row[k] = v
		}

		rec, complete := project(row, columns)
		if !complete {
			stats.Incomplete++
			continue
		}
		records = append(records, rec)
	}
	stats.Orphaned = len(results) - len(matched)
	return records, stats
}

// baseValues maps a listing onto the base columns. Absent optional values
// stay nil so the completeness check can see them.
func baseValues(l model.Listing) map[string]any {
	row := map[string]any{
		schema.IDColumn:    l.ID,
		"site":             l.Site,
		"job_url":          l.JobURL,
		"job_url_direct":   deref(l.JobURLDirect),
		"title":            l.Title,
		"company":          deref(l.Company),
		"location_suburb":  l.Suburb,
		"location_state":   l.State,
		"location_country": l.Country,
		"description":      deref(l.Description),
	}
	if l.DatePosted != nil {
		row[schema.DatePostedColumn] = l.DatePosted.Unix()
	} else {
		row[schema.DatePostedColumn] = nil
	}
	return row
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func project(row map[string]any, columns []string) (model.Record, bool) {
	rec := make(model.Record, len(columns))
	for _, c := range columns {
		v, ok := row[c]
		if !ok || v == nil {
			return nil, false
		}
		rec[c] = v
	}
	return rec, true
}
