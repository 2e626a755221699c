// Package fetch holds the news source adapters. Every adapter turns a
// query into raw candidates; failures are returned to the caller, which
// logs them and moves on to the next query.
package fetch

import (
	"context"
	"strings"

	"github.com/deusflow/trafficwatch/internal/news"
)

// Query is one search against a source.
type Query struct {
	Keyword string
	// Country is attached to every result of the query.
	Country string
	// CategoryHint is attached to every result; see classify.WithHint.
	CategoryHint string
}

// Source is a news adapter.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]news.Candidate, error)
}

// inferCountry picks the first known country mentioned in the keyword or
// the title.
func inferCountry(countries []string, keyword, title string) string {
	k := strings.ToLower(keyword)
	t := strings.ToLower(title)
	for _, c := range countries {
		lc := strings.ToLower(c)
		if lc == "" {
			continue
		}
		if strings.Contains(k, lc) || strings.Contains(t, lc) {
			return c
		}
	}
	return ""
}
