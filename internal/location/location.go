// Package location splits free-text job locations into suburb, state and country.
package location

import (
	"strings"

	"github.com/amishk599/jobenrich/internal/model"
)

const separator = ", "

// Parse splits "Suburb, State, Country" into its three parts. Anything that does
// not split into exactly three non-empty parts yields three empty strings.
func Parse(s string) (suburb, state, country string) {
	parts := strings.Split(s, separator)
	if len(parts) != 3 {
		return "", "", ""
	}
	for _, p := range parts {
		if p == "" {
			return "", "", ""
		}
	}
	return parts[0], parts[1], parts[2]
}

// Apply fills the derived location fields of l from its raw location.
func Apply(l *model.Listing) {
	l.Suburb, l.State, l.Country = Parse(l.Location)
}
