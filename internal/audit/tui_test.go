package audit

import (
	"strings"
	"testing"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

func record(id, title string, posted int64) model.Record {
	return model.Record{
		schema.IDColumn:         id,
		"title":                 title,
		"company":               "Acme",
		"location_suburb":       "Sydney",
		"location_state":        "NSW",
		"location_country":      "",
		schema.DatePostedColumn: posted,
		"office_type":           "hybrid",
	}
}

func TestFieldString(t *testing.T) {
	rec := model.Record{
		"s":   "text",
		"f":   95000.5,
		"i":   int64(42),
		"b":   []byte("raw"),
		"nil": nil,
	}
	tests := map[string]string{"s": "text", "f": "95000.5", "i": "42", "b": "raw", "nil": "", "missing": ""}
	for col, want := range tests {
		if got := fieldString(rec, col); got != want {
			t.Errorf("fieldString(%q) = %q, want %q", col, got, want)
		}
	}
}

func TestFormatLocation_SkipsEmptyParts(t *testing.T) {
	if got := formatLocation(record("1", "Dev", 0)); got != "Sydney, NSW" {
		t.Errorf("formatLocation = %q", got)
	}
}

func TestFormatSalary(t *testing.T) {
	tests := []struct {
		name string
		rec  model.Record
		want string
	}{
		{"range", model.Record{"advertised_minimum_salary": 90000.0, "advertised_maximum_salary": 120000.0, "advertised_salary_interval": "yearly"}, "$90,000 - $120,000 yearly"},
		{"single", model.Record{"advertised_minimum_salary": 55.0, "advertised_maximum_salary": 55.0, "advertised_salary_interval": "hourly"}, "$55 hourly"},
		{"only max", model.Record{"advertised_minimum_salary": 0.0, "advertised_maximum_salary": 1500000.0}, "$1,500,000"},
		{"none", model.Record{"advertised_minimum_salary": 0.0, "advertised_maximum_salary": 0.0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSalary(tt.rec); got != tt.want {
				t.Errorf("formatSalary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSortRecordsByDate_NewestFirstMissingLast(t *testing.T) {
	records := []model.Record{
		record("old", "Old", 1000),
		record("none", "None", 0),
		record("new", "New", 5000),
	}
	sortRecordsByDate(records)

	var got []string
	for _, r := range records {
		got = append(got, fieldString(r, schema.IDColumn))
	}
	if strings.Join(got, ",") != "new,old,none" {
		t.Errorf("order = %v", got)
	}
}

func TestFacets_FromEnum(t *testing.T) {
	facets := Facets(schema.Enrichment(), "office_type")
	if len(facets) != 4 {
		t.Fatalf("facets = %+v", facets)
	}
	if facets[0].Label != "All" || facets[2].Value != "hybrid" || facets[2].Label != "Hybrid" {
		t.Errorf("facets = %+v", facets)
	}

	if got := Facets(schema.Enrichment(), "key_responsibilities"); len(got) != 1 {
		t.Errorf("free-text property facets = %+v", got)
	}
}

func TestFilterRecords(t *testing.T) {
	remote := record("2", "Remote Dev", 0)
	remote["office_type"] = "remote"
	records := []model.Record{record("1", "Dev", 0), remote}

	got := FilterRecords(records, Facet{Label: "Remote", Column: "office_type", Value: "remote"})
	if len(got) != 1 || fieldString(got[0], schema.IDColumn) != "2" {
		t.Errorf("filtered = %+v", got)
	}
	if all := FilterRecords(records, Facet{Label: "All"}); len(all) != 2 {
		t.Errorf("All facet kept %d records", len(all))
	}
	if counts := countFacets(Facets(schema.Enrichment(), "office_type"), records); counts[0] != 2 || counts[1] != 1 || counts[2] != 1 || counts[3] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestApplyURL_PrefersDirect(t *testing.T) {
	rec := model.Record{"job_url": "https://a", "job_url_direct": "https://b"}
	if got := applyURL(rec); got != "https://b" {
		t.Errorf("applyURL = %q", got)
	}
	delete(rec, "job_url_direct")
	if got := applyURL(rec); got != "https://a" {
		t.Errorf("applyURL = %q", got)
	}
}

func TestLabelFor(t *testing.T) {
	if got := labelFor("minimum_required_education"); got != "Minimum required education" {
		t.Errorf("labelFor = %q", got)
	}
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("wordWrap = %q", got)
	}
	if wordWrap("   ", 10) != "" {
		t.Error("wordWrap of blank text should be empty")
	}
}

func TestClamp(t *testing.T) {
	if clamp(-1, 0, 5) != 0 || clamp(9, 0, 5) != 5 || clamp(3, 0, 5) != 3 {
		t.Error("clamp out of range")
	}
}
