package app

import (
	"context"
	"time"

	"github.com/deusflow/trafficwatch/internal/cache"
	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/metrics"
	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/refine"
)

// verdictCache adapts a cache.Store to refinement verdicts. Store errors are
// logged and treated as misses.
type verdictCache struct {
	store cache.Store
	now   func() time.Time
}

func (c verdictCache) key(it news.Item) string {
	return cache.Key(it.Title, it.URL, it.Summary)
}

// lookup returns the cached verdict. notRelevant is true when a provider
// previously rejected the item.
func (c verdictCache) lookup(ctx context.Context, key string) (res refine.Result, notRelevant, ok bool) {
	if c.store == nil {
		return refine.Result{}, false, false
	}
	e, found, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Warn("Refinement cache read failed", "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return refine.Result{}, false, false
	}
	if !found {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return refine.Result{}, false, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return refine.Result{
		Category:      e.Category,
		Country:       e.Country,
		TrafficImpact: e.TrafficImpact,
		Summary:       e.Summary,
		Provider:      e.Provider,
	}, e.NotRelevant, true
}

func (c verdictCache) remember(ctx context.Context, key string, r refine.Result, notRelevant bool) {
	if c.store == nil {
		return
	}
	e := cache.Entry{
		Provider:    r.Provider,
		NotRelevant: notRelevant,
		UpdatedAt:   c.now().UTC(),
	}
	if !notRelevant {
		e.Category = r.Category
		e.CategoryGroup = string(news.GroupFor(r.Category))
		e.Country = r.Country
		e.TrafficImpact = r.TrafficImpact
		e.Summary = r.Summary
	}
	if err := c.store.Put(ctx, key, e); err != nil {
		logger.Warn("Refinement cache write failed", "key", key, "error", err)
	}
}

func (c verdictCache) flush(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.Flush(ctx); err != nil {
		logger.Warn("Refinement cache flush failed", "error", err)
	}
}

// SetCache installs the refinement cache. A nil store disables caching.
func (a *App) SetCache(store cache.Store) {
	a.cache = verdictCache{store: store, now: a.now}
}
