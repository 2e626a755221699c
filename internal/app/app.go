// Package app runs the collection pipeline, the daily digest and the
// category-group repair over the persisted store.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/deusflow/trafficwatch/internal/classify"
	"github.com/deusflow/trafficwatch/internal/digest"
	"github.com/deusflow/trafficwatch/internal/fetch"
	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/metrics"
	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/notify"
	"github.com/deusflow/trafficwatch/internal/ratelimit"
	"github.com/deusflow/trafficwatch/internal/refine"
	"github.com/deusflow/trafficwatch/internal/storage"
)

// shortSummaryRunes is the summary length below which a high-priority
// item's article page is scraped for a lead paragraph.
const shortSummaryRunes = 50

// Feed pairs a source with the queries it runs each collection.
type Feed struct {
	Source  fetch.Source
	Queries []fetch.Query
}

// Pacer spaces outbound calls.
type Pacer interface {
	Wait(ctx context.Context) error
}

// LeadScraper extracts a lead paragraph from an article page.
type LeadScraper interface {
	ExtractLead(ctx context.Context, url string) (string, error)
}

// Store is the persisted news set.
type Store interface {
	Load() ([]news.Item, error)
	Save(items []news.Item) error
}

// Classifier is the primary rule classifier.
type Classifier interface {
	Classify(title, summary string) news.Classification
}

// App holds the wired components. Nil optional fields disable their step.
type App struct {
	Feeds      []Feed
	Classifier Classifier
	Chain      *refine.Chain
	Budget     *ratelimit.Budget
	Pacer      Pacer
	Scraper    LeadScraper
	Store      Store
	Digester   *digest.Builder
	Notifiers  []notify.Notifier
	// Preview receives the digest on dry runs and when no notifier is set.
	Preview notify.Notifier
	Now     func() time.Time

	cache   verdictCache
	closers []func()
}

// RunReport summarizes one collection.
type RunReport struct {
	Fetched     int
	Classified  int
	Refined     int
	Dropped     int
	Added       int
	StoreSize   int
	Duration    time.Duration
	FailedFeeds int
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Close releases provider clients and database handles.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Collect runs one fetch, classify, refine, merge cycle and rewrites the
// store. Only a store write failure is returned as an error; it wraps
// storage.ErrWrite.
func (a *App) Collect(ctx context.Context) (RunReport, error) {
	start := a.now()
	var report RunReport

	persisted, err := a.Store.Load()
	if err != nil {
		logger.Warn("Stored news unreadable, starting from empty history", "error", err)
		persisted = nil
	}
	logger.Info("Loaded stored news", "count", len(persisted))

	candidates, failed := a.fetchAll(ctx)
	report.Fetched = len(candidates)
	report.FailedFeeds = failed

	items, dropped := a.classifyAll(candidates, start)
	report.Classified = len(items)
	report.Dropped = dropped
	logger.Info("Classified candidates", "fetched", len(candidates), "kept", len(items), "dropped", dropped)

	items = news.Corroborate(items)

	items, refined, rejected := a.refineAll(ctx, items)
	report.Refined = refined
	report.Dropped += rejected

	finalize(items)

	merged, added := news.Merge(persisted, items)
	report.Added = added
	report.StoreSize = len(merged)

	if err := a.Store.Save(merged); err != nil {
		metrics.Global.SetError(err.Error())
		return report, fmt.Errorf("save news: %w", err)
	}
	a.cache.flush(ctx)
	if a.Budget != nil {
		a.Budget.LogStats()
	}

	report.Duration = a.now().Sub(start)
	metrics.ItemsMerged.Add(float64(added))
	metrics.StoreSize.Set(float64(len(merged)))
	metrics.RunDuration.Observe(report.Duration.Seconds())
	metrics.Global.SetLastRun(report.Duration, added)

	logger.Info("Collection finished",
		"added", added,
		"stored", len(merged),
		"refined", refined,
		"duration", report.Duration.Round(time.Millisecond))
	return report, nil
}

func (a *App) fetchAll(ctx context.Context) ([]news.Candidate, int) {
	var out []news.Candidate
	failed := 0
	for _, f := range a.Feeds {
		name := f.Source.Name()
		for _, q := range f.Queries {
			if a.Pacer != nil {
				if err := a.Pacer.Wait(ctx); err != nil {
					logger.Warn("Fetch interrupted", "error", err)
					return out, failed
				}
			}

			got, err := f.Source.Fetch(ctx, q)
			if err != nil {
				logger.Warn("Fetch failed", "source", name, "keyword", q.Keyword, "error", err)
				metrics.FetchErrors.WithLabelValues(name).Inc()
				failed++
				continue
			}
			logger.Debug("Fetched", "source", name, "keyword", q.Keyword, "count", len(got))
			metrics.ItemsFetched.WithLabelValues(name).Add(float64(len(got)))
			out = append(out, got...)
		}
	}
	return out, failed
}

// classifyAll validates candidates and keeps the relevant ones. Candidates
// that arrive with a classification keep it.
func (a *App) classifyAll(candidates []news.Candidate, now time.Time) ([]news.Item, int) {
	var out []news.Item
	dropped := 0
	for _, c := range candidates {
		it, err := news.NewDraft(c, now)
		if err != nil {
			metrics.ItemsDropped.WithLabelValues("invalid").Inc()
			dropped++
			continue
		}

		var cl news.Classification
		if c.Classification != nil {
			cl = *c.Classification
		} else {
			cl = a.Classifier.Classify(it.Title, it.Summary)
		}
		cl = classify.WithHint(cl, c.CategoryHint)
		metrics.ItemsClassified.WithLabelValues(string(cl.Priority)).Inc()

		if !cl.Relevant() {
			logger.Debug("Dropped", "title", it.Title, "rule", cl.Rule)
			metrics.ItemsDropped.WithLabelValues("low_priority").Inc()
			dropped++
			continue
		}
		it.Apply(cl)
		out = append(out, it)
	}
	return out, dropped
}

// refineAll sends high-priority items through the cache and the provider
// chain. Items a provider rejects are removed.
func (a *App) refineAll(ctx context.Context, items []news.Item) ([]news.Item, int, int) {
	out := items[:0]
	refined, rejected := 0, 0
	for _, it := range items {
		if it.Priority != news.PriorityHigh {
			out = append(out, it)
			continue
		}
		keep, ok := a.refineOne(ctx, &it)
		if !keep {
			metrics.ItemsDropped.WithLabelValues("not_relevant").Inc()
			rejected++
			continue
		}
		if ok {
			refined++
		}
		out = append(out, it)
	}
	return out, refined, rejected
}

func (a *App) refineOne(ctx context.Context, it *news.Item) (keep, refined bool) {
	key := a.cache.key(*it)

	if res, notRelevant, hit := a.cache.lookup(ctx, key); hit {
		if a.Budget != nil {
			a.Budget.RecordCacheHit()
		}
		if notRelevant {
			logger.Debug("Cached not-relevant verdict", "title", it.Title)
			return false, false
		}
		refine.Apply(it, res)
		return true, true
	}

	if a.Budget != nil {
		a.Budget.RecordCacheMiss()
	}

	if a.Chain == nil || a.Chain.Len() == 0 {
		return true, false
	}
	if !a.Chain.Available() {
		logger.Debug("Refinement budget exhausted, keeping rule result", "title", it.Title)
		return true, false
	}

	if a.Scraper != nil && it.URL != "" && utf8.RuneCountInString(it.Summary) < shortSummaryRunes {
		lead, err := a.Scraper.ExtractLead(ctx, it.URL)
		if err != nil {
			logger.Debug("Lead extraction failed", "url", it.URL, "error", err)
		} else if utf8.RuneCountInString(lead) > utf8.RuneCountInString(it.Summary) {
			it.Summary = news.Truncate(lead, news.MaxSummaryRunes)
		}
	}

	res, err := a.Chain.Refine(ctx, *it)
	switch {
	case err == nil:
		refine.Apply(it, res)
		a.cache.remember(ctx, key, res, false)
		return true, true
	case errors.Is(err, refine.ErrNotRelevant):
		logger.Info("Provider marked item not relevant", "title", it.Title, "provider", res.Provider)
		a.cache.remember(ctx, key, res, true)
		return false, false
	case errors.Is(err, refine.ErrBudgetExhausted):
		logger.Debug("Refinement budget exhausted, keeping rule result", "title", it.Title)
		return true, false
	default:
		logger.Warn("Refinement failed, keeping rule result", "title", it.Title, "error", err)
		return true, false
	}
}

// finalize fills the sentinel category on unresolved high items and derives
// every group from the final category.
func finalize(items []news.Item) {
	for i := range items {
		if items[i].Priority == news.PriorityHigh && items[i].Category == "" {
			items[i].Category = news.CategoryUnresolvedHigh
		}
		items[i].CategoryGroup = news.GroupFor(items[i].Category)
	}
}

// DigestOptions controls one digest run.
type DigestOptions struct {
	Hours int
	// DryRun writes the preview instead of sending.
	DryRun bool
}

// Digest builds the report from the store and delivers it. It fails only
// when every configured channel failed.
func (a *App) Digest(ctx context.Context, opts DigestOptions) (digest.Report, error) {
	items, err := a.Store.Load()
	if err != nil {
		logger.Warn("Stored news unreadable, digest will be empty", "error", err)
		items = nil
	}

	r := a.Digester.Build(ctx, items, digest.Options{Hours: opts.Hours, Now: a.now()})
	logger.Info("Digest built",
		"traffic", r.TrafficTotal,
		"gaming", r.GamingTotal,
		"issues", len(r.Entries),
		"summary_by", r.SummaryBy)

	targets := a.Notifiers
	if opts.DryRun || len(targets) == 0 {
		if a.Preview == nil {
			return r, nil
		}
		targets = []notify.Notifier{a.Preview}
	}

	if sent := notify.SendAll(ctx, targets, r); sent == 0 {
		return r, fmt.Errorf("digest: all %d channels failed", len(targets))
	}
	return r, nil
}

// BackfillGroups fills category_group on stored rows where it is blank and
// rewrites the store when anything changed. Unlike Collect, an unreadable
// store is an error here, so a bad read never truncates history.
func (a *App) BackfillGroups(ctx context.Context) (int, error) {
	items, err := a.Store.Load()
	if err != nil {
		return 0, fmt.Errorf("load news: %w", err)
	}

	items, filled := news.Backfill(items)
	if filled == 0 {
		logger.Info("No rows need a category group", "rows", len(items))
		return 0, nil
	}
	if err := a.Store.Save(items); err != nil {
		return 0, fmt.Errorf("save news: %w", err)
	}
	logger.Info("Backfilled category groups", "filled", filled, "rows", len(items))
	return filled, nil
}

var _ Store = (*storage.CSVStore)(nil)
