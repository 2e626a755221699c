// Package cache stores refinement verdicts keyed by article content, so the
// same article is never sent to a paid provider twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Entry is one cached refinement verdict. Not-relevant verdicts are cached
// too, with NotRelevant set and the other fields empty.
type Entry struct {
	Category      string    `json:"category,omitempty"`
	CategoryGroup string    `json:"category_group,omitempty"`
	TrafficImpact string    `json:"traffic_impact,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Country       string    `json:"country,omitempty"`
	NotRelevant   bool      `json:"not_relevant,omitempty"`
	Provider      string    `json:"provider"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store is the cache contract. Implementations are best-effort: callers log
// errors and continue as if the entry were missing.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	// Flush persists buffered writes. Stores that write through return nil.
	Flush(ctx context.Context) error
}

// Key hashes title and URL, falling back to title and summary when the URL
// is missing.
func Key(title, url, summary string) string {
	second := strings.TrimSpace(url)
	if second == "" {
		second = summary
	}
	h := sha256.New()
	h.Write([]byte(title + second))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
