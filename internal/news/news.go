// Package news holds the NewsItem model and the pure operations around it:
// identity keys, category groups, merge/dedup and cross-source corroboration.
package news

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Priority is the coarse urgency tier assigned by a classifier.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for comparison; unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Type partitions persisted items. The zero value means "unset".
type Type string

const (
	TypeGaming        Type = "gaming"
	TypeTrafficImpact Type = "traffic_impact"
)

// CategoryUnresolvedHigh is assigned to high-priority items whose category
// was not filled in by refinement, so the field is never blank on disk.
const CategoryUnresolvedHigh = "uncategorized_high_impact"

// MaxSummaryRunes bounds Item.Summary.
const MaxSummaryRunes = 500

const dateLayout = "2006-01-02"

var ErrEmptyTitle = errors.New("news: candidate has no title")

// Classification is the outcome of one classifier pass. Type and Category
// are always assigned together by a single rule match.
type Classification struct {
	Priority Priority
	Type     Type
	Category string
	// Rule is the keyword that decided the outcome, for logging.
	Rule string
}

// Relevant reports whether the item survives classification.
func (c Classification) Relevant() bool {
	return c.Priority == PriorityHigh || c.Priority == PriorityMedium
}

// Candidate is a raw item as produced by a fetch adapter.
type Candidate struct {
	Title       string
	Summary     string
	URL         string
	Source      string
	PublishedAt time.Time
	Country     string
	// CategoryHint comes from the query that produced the candidate,
	// e.g. competitor_game for competitor searches.
	CategoryHint string
	// Classification is set by adapters that run their own rules
	// (the domestic search path); nil means "use the primary classifier".
	Classification *Classification
	// Origin names the adapter ("rss", "naver", "deepsearch").
	Origin string
}

// Item is a classified news record, one row of the persisted store.
type Item struct {
	Date          time.Time
	Country       string
	Continent     string
	Title         string
	Summary       string
	URL           string
	Source        string
	Category      string
	CategoryGroup CategoryGroup
	Type          Type
	Priority      Priority
	TrafficImpact string
	Confidence    string
	Validation    string
	// Provenance is the adapter or refinement provider the current
	// category came from.
	Provenance string
}

// NewDraft validates a candidate at the system boundary and turns it into an
// unclassified Item. HTML is stripped and the summary is bounded.
func NewDraft(c Candidate, now time.Time) (Item, error) {
	title := StripHTML(c.Title)
	if title == "" {
		return Item{}, ErrEmptyTitle
	}

	published := c.PublishedAt
	if published.IsZero() {
		published = now
	}

	country := strings.TrimSpace(c.Country)
	return Item{
		Date:       Day(published),
		Country:    country,
		Continent:  ContinentFor(country),
		Title:      title,
		Summary:    Truncate(StripHTML(c.Summary), MaxSummaryRunes),
		URL:        strings.TrimSpace(c.URL),
		Source:     strings.TrimSpace(c.Source),
		Provenance: c.Origin,
	}, nil
}

// Apply copies a classification onto the item.
func (it *Item) Apply(c Classification) {
	it.Priority = c.Priority
	it.Type = c.Type
	it.Category = c.Category
}

// SetCountry updates the country and its derived continent together.
func (it *Item) SetCountry(country string) {
	it.Country = strings.TrimSpace(country)
	it.Continent = ContinentFor(it.Country)
}

// Key is the stable identity of the item: its URL, or a content hash of
// title and summary when the URL is missing.
func (it Item) Key() string {
	if u := strings.TrimSpace(it.URL); u != "" {
		return u
	}
	h := sha256.Sum256([]byte(it.Title + "\n" + it.Summary))
	return "sha256:" + hex.EncodeToString(h[:])
}

// DateString renders Date the way the store writes it.
func (it Item) DateString() string {
	if it.Date.IsZero() {
		return ""
	}
	return it.Date.Format(dateLayout)
}

// ParseDate accepts the store's date layout and RFC 3339 timestamps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// Day truncates t to its calendar date, keeping the date as reported.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
