package ratelimit

import (
	"fmt"
	"sync"

	"github.com/deusflow/trafficwatch/internal/logger"
)

// Budget caps refinement requests per provider, per run. Paid providers
// additionally share one paid cap.
type Budget struct {
	mu        sync.Mutex
	limits    map[string]int
	used      map[string]int
	totalUsed int
	maxTotal  int
	paidUsed  int
	maxPaid   int

	cacheHits   int
	cacheMisses int
}

// NewBudget creates a budget. A limit of 0 means unlimited, for maxTotal,
// maxPaid and any per-provider limit set with SetLimit.
func NewBudget(maxTotal, maxPaid int) *Budget {
	return &Budget{
		limits:   make(map[string]int),
		used:     make(map[string]int),
		maxTotal: maxTotal,
		maxPaid:  maxPaid,
	}
}

// SetLimit caps one provider.
func (b *Budget) SetLimit(provider string, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limits[provider] = max
}

// Allow reports whether provider may make another request.
func (b *Budget) Allow(provider string, paid bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.check(provider, paid) == nil
}

// Use records one request, or returns an error when a cap is reached.
func (b *Budget) Use(provider string, paid bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.check(provider, paid); err != nil {
		return err
	}

	b.used[provider]++
	b.totalUsed++
	if paid {
		b.paidUsed++
	}

	logger.Debug("refinement budget used",
		"provider", provider, "used", b.used[provider], "limit", b.limits[provider],
		"total", b.totalUsed, "max_total", b.maxTotal)
	return nil
}

func (b *Budget) check(provider string, paid bool) error {
	if max := b.limits[provider]; max > 0 && b.used[provider] >= max {
		return fmt.Errorf("%s limit reached (%d/%d)", provider, b.used[provider], max)
	}
	if b.maxTotal > 0 && b.totalUsed >= b.maxTotal {
		return fmt.Errorf("total refinement limit reached (%d/%d)", b.totalUsed, b.maxTotal)
	}
	if paid && b.maxPaid > 0 && b.paidUsed >= b.maxPaid {
		return fmt.Errorf("paid refinement limit reached (%d/%d)", b.paidUsed, b.maxPaid)
	}
	return nil
}

// RecordCacheHit counts a verdict served from the cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// RecordCacheMiss counts an item that had to go to the providers. It is
// recorded once per item, however many providers are then tried.
func (b *Budget) RecordCacheMiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheMisses++
}

func (b *Budget) hitRate() float64 {
	total := b.cacheHits + b.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(b.cacheHits) / float64(total) * 100
}

// Stats returns a snapshot for logs and the monitoring endpoint.
func (b *Budget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":     b.totalUsed,
		"total_limit":    b.maxTotal,
		"paid_used":      b.paidUsed,
		"paid_limit":     b.maxPaid,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": fmt.Sprintf("%.1f%%", b.hitRate()),
	}
	for name, n := range b.used {
		stats[name+"_used"] = n
		stats[name+"_limit"] = b.limits[name]
	}
	return stats
}

// LogStats writes the usage summary at the end of a run.
func (b *Budget) LogStats() {
	stats := b.Stats()
	args := make([]any, 0, len(stats)*2)
	for k, v := range stats {
		args = append(args, k, v)
	}
	logger.Info("refinement usage", args...)
}
