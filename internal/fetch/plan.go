package fetch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/trafficwatch/internal/logger"
)

const maxTrafficQueries = 15

// Plan is the query configuration (configs/queries.yaml).
type Plan struct {
	BaseKeywords      []string         `yaml:"base_keywords"`
	GamingKeywords    []KeywordGroup   `yaml:"gaming_keywords"`
	PriorityCountries []CountryQueries `yaml:"priority_countries"`
	TrafficKeywords   []KeywordGroup   `yaml:"traffic_impact_keywords"`
	NaverKeywords     []string         `yaml:"naver_keywords"`
	DeepSearch        DeepSearchPlan   `yaml:"deepsearch"`
}

// KeywordGroup is a named, ordered keyword list.
type KeywordGroup struct {
	Group    string   `yaml:"group"`
	Keywords []string `yaml:"keywords"`
	// Category is the hint attached to results of this group.
	Category string `yaml:"category"`
}

// CountryQueries are the searches run for one watched country.
type CountryQueries struct {
	Country  string   `yaml:"country"`
	Keywords []string `yaml:"keywords"`
	Topics   []string `yaml:"topics"`
}

type DeepSearchPlan struct {
	Keywords         []string `yaml:"keywords"`
	TrendingSections []string `yaml:"trending_sections"`
}

// DefaultPlan is used when no query file exists.
func DefaultPlan() Plan {
	return Plan{BaseKeywords: []string{"PUBG Mobile"}}
}

// LoadPlan reads the query plan. A missing file falls back to DefaultPlan.
func LoadPlan(path string) (Plan, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("query plan not found, using defaults", "path", path)
		return DefaultPlan(), nil
	}
	if err != nil {
		return Plan{}, fmt.Errorf("open query plan: %w", err)
	}
	defer f.Close()

	var p Plan
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&p); err != nil {
		return Plan{}, fmt.Errorf("decode query plan %s: %w", path, err)
	}
	return p, nil
}

// RSSQueries expands the plan into feed searches: base keywords, the first
// two keywords of each gaming group, the first keyword and first two topics
// of each priority country, and the first keyword of each traffic group up
// to a total of 15.
func (p Plan) RSSQueries() []Query {
	var out []Query
	for _, k := range p.BaseKeywords {
		out = appendQuery(out, Query{Keyword: k})
	}
	for _, g := range p.GamingKeywords {
		for _, k := range firstN(g.Keywords, 2) {
			out = appendQuery(out, Query{Keyword: k, CategoryHint: g.Category})
		}
	}
	for _, c := range p.PriorityCountries {
		for _, k := range firstN(c.Keywords, 1) {
			out = appendQuery(out, Query{Keyword: k, Country: c.Country})
		}
		for _, topic := range firstN(c.Topics, 2) {
			out = appendQuery(out, Query{Keyword: c.Country + " " + topic, Country: c.Country})
		}
	}
	traffic := 0
	for _, g := range p.TrafficKeywords {
		if traffic >= maxTrafficQueries {
			break
		}
		for _, k := range firstN(g.Keywords, 1) {
			out = appendQuery(out, Query{Keyword: k, CategoryHint: g.Category})
			traffic++
		}
	}
	return out
}

// NaverQueries lists the domestic search keywords.
func (p Plan) NaverQueries() []Query {
	var out []Query
	for _, k := range p.NaverKeywords {
		out = appendQuery(out, Query{Keyword: k, Country: "Korea"})
	}
	return out
}

// DeepSearchQueries lists article searches, at most ten.
func (p Plan) DeepSearchQueries() []Query {
	var out []Query
	for _, k := range firstN(p.DeepSearch.Keywords, 10) {
		out = appendQuery(out, Query{Keyword: k})
	}
	return out
}

// TrendingQueries lists trending sections; results get the major_event hint.
func (p Plan) TrendingQueries() []Query {
	var out []Query
	for _, s := range p.DeepSearch.TrendingSections {
		out = appendQuery(out, Query{Keyword: s, CategoryHint: "major_event"})
	}
	return out
}

// Countries returns the priority country names, used to infer the country
// of search results.
func (p Plan) Countries() []string {
	out := make([]string, 0, len(p.PriorityCountries))
	for _, c := range p.PriorityCountries {
		out = append(out, c.Country)
	}
	return out
}

func appendQuery(out []Query, q Query) []Query {
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.Keyword == "" {
		return out
	}
	return append(out, q)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
