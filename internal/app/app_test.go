package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/trafficwatch/internal/cache"
	"github.com/deusflow/trafficwatch/internal/classify"
	"github.com/deusflow/trafficwatch/internal/digest"
	"github.com/deusflow/trafficwatch/internal/fetch"
	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/notify"
	"github.com/deusflow/trafficwatch/internal/ratelimit"
	"github.com/deusflow/trafficwatch/internal/refine"
	"github.com/deusflow/trafficwatch/internal/rules"
	"github.com/deusflow/trafficwatch/internal/storage"
)

var runTime = time.Date(2026, 5, 12, 6, 0, 0, 0, time.UTC)

type fakeSource struct {
	name    string
	results map[string][]news.Candidate
	errs    map[string]error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, q fetch.Query) ([]news.Candidate, error) {
	if err := f.errs[q.Keyword]; err != nil {
		return nil, err
	}
	return f.results[q.Keyword], nil
}

type fakeProvider struct {
	res      refine.Result
	rejected map[string]bool
	calls    int
}

func (f *fakeProvider) Name() string { return "groq" }
func (f *fakeProvider) Paid() bool   { return false }
func (f *fakeProvider) Refine(_ context.Context, it news.Item) (refine.Result, error) {
	f.calls++
	if f.rejected[it.Title] {
		return refine.Result{}, refine.ErrNotRelevant
	}
	r := f.res
	r.Provider = "groq"
	return r, nil
}

func candidate(title, url string) news.Candidate {
	return news.Candidate{Title: title, URL: url, Source: "Reuters", Origin: "rss"}
}

func newTestApp(t *testing.T, src *fakeSource, queries ...string) *App {
	t.Helper()
	set, err := rules.Default()
	require.NoError(t, err)

	var qs []fetch.Query
	for _, k := range queries {
		qs = append(qs, fetch.Query{Keyword: k})
	}

	dir := t.TempDir()
	return &App{
		Feeds:      []Feed{{Source: src, Queries: qs}},
		Classifier: classify.New(set),
		Store:      storage.NewCSVStore(filepath.Join(dir, "news.csv")),
		Digester:   digest.NewBuilder(set.Digest),
		Preview:    notify.NewPreview(filepath.Join(dir, "preview.json"), ""),
		Now:        func() time.Time { return runTime },
	}
}

func TestCollectFromEmptyStore(t *testing.T) {
	src := &fakeSource{
		name: "rss",
		results: map[string][]news.Candidate{
			"q1": {
				candidate("Internet shutdown hits Jakarta", "https://n/1"),
				candidate("PUBG Mobile update 3.5 adds new map", "https://n/2"),
				candidate("Idol group announces comeback concert", "https://n/3"),
			},
			"q2": {
				// Same URL as the first item.
				candidate("Jakarta internet shutdown continues", "https://n/1"),
				{Title: "   ", URL: "https://n/blank"},
			},
		},
		errs: map[string]error{"q3": errors.New("timeout")},
	}
	a := newTestApp(t, src, "q1", "q2", "q3")

	report, err := a.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, report.Fetched)
	assert.Equal(t, 1, report.FailedFeeds)
	assert.Equal(t, 2, report.Added)

	stored, err := a.Store.Load()
	require.NoError(t, err)
	require.Len(t, stored, 2)

	byURL := map[string]news.Item{}
	for _, it := range stored {
		byURL[it.URL] = it
	}

	shutdown := byURL["https://n/1"]
	assert.Equal(t, "Internet shutdown hits Jakarta", shutdown.Title)
	assert.Equal(t, news.PriorityHigh, shutdown.Priority)
	assert.Equal(t, news.TypeTrafficImpact, shutdown.Type)
	assert.Equal(t, news.CategoryUnresolvedHigh, shutdown.Category)
	assert.Equal(t, news.GroupOther, shutdown.CategoryGroup)
	assert.Equal(t, "2026-05-12", shutdown.DateString())

	game := byURL["https://n/2"]
	assert.Equal(t, news.PriorityMedium, game.Priority)
	assert.Equal(t, news.TypeGaming, game.Type)
	assert.Equal(t, "gaming", game.Category)
	assert.Equal(t, news.GroupGamingCompetitor, game.CategoryGroup)

	_, concert := byURL["https://n/3"]
	assert.False(t, concert)
}

func TestCollectKeepsPersistedRows(t *testing.T) {
	src := &fakeSource{name: "rss", results: map[string][]news.Candidate{
		"q": {candidate("Earthquake hits Istanbul", "https://n/eq")},
	}}
	a := newTestApp(t, src, "q")

	old := news.Item{
		Date: news.Day(runTime.AddDate(0, 0, -3)), Title: "Earthquake hits Istanbul",
		URL: "https://n/eq", Category: "natural_disaster", CategoryGroup: news.GroupSocialCrisis,
		Type: news.TypeTrafficImpact, Priority: news.PriorityHigh, Provenance: "claude",
	}
	require.NoError(t, a.Store.Save([]news.Item{old}))

	report, err := a.Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Added)

	stored, err := a.Store.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, old, stored[0])
}

func TestCollectFromUnreadableStore(t *testing.T) {
	src := &fakeSource{name: "rss", results: map[string][]news.Candidate{
		"q": {candidate("Power outage hits Karachi", "https://n/karachi")},
	}}
	a := newTestApp(t, src, "q")

	path := a.Store.(*storage.CSVStore).Path()
	require.NoError(t, os.WriteFile(path, []byte("foo,bar\n1,2\n"), 0o644))

	report, err := a.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.StoreSize)

	stored, err := a.Store.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "https://n/karachi", stored[0].URL)
}

func TestCollectRefinesAndCaches(t *testing.T) {
	src := &fakeSource{name: "rss", results: map[string][]news.Candidate{
		"q": {
			candidate("Internet shutdown hits Jakarta", "https://n/1"),
			candidate("Explosion at fireworks show, no injuries", "https://n/2"),
		},
	}}
	a := newTestApp(t, src, "q")
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	fs := cache.NewFileStore(cachePath)
	fs.Load()
	a.SetCache(fs)

	provider := &fakeProvider{
		res:      refine.Result{Category: "internet_shutdown", Country: "Indonesia", Summary: "자카르타 인터넷 차단"},
		rejected: map[string]bool{"Explosion at fireworks show, no injuries": true},
	}
	a.Chain = refine.NewChain(nil, nil, provider)

	report, err := a.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
	assert.Equal(t, 1, report.Refined)
	assert.Equal(t, 1, report.Added)

	stored, err := a.Store.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	it := stored[0]
	assert.Equal(t, "internet_shutdown", it.Category)
	assert.Equal(t, news.GroupOutageBlock, it.CategoryGroup)
	assert.Equal(t, "Indonesia", it.Country)
	assert.Equal(t, "ASIA", it.Continent)
	assert.Equal(t, "groq", it.Provenance)

	// A second run with a fresh store reuses both cached verdicts.
	require.NoError(t, os.Remove(a.Store.(*storage.CSVStore).Path()))
	reloaded := cache.NewFileStore(cachePath)
	reloaded.Load()
	assert.Equal(t, 2, reloaded.Len())
	a.SetCache(reloaded)

	_, err = a.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "cached verdicts must not reach the provider")

	stored, err = a.Store.Load()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "internet_shutdown", stored[0].Category)
}

type failingProvider struct{ calls int }

func (f *failingProvider) Name() string { return "gemini" }
func (f *failingProvider) Paid() bool   { return false }
func (f *failingProvider) Refine(context.Context, news.Item) (refine.Result, error) {
	f.calls++
	return refine.Result{}, errors.New("quota exceeded")
}

func TestCollectCountsCacheMissOncePerItem(t *testing.T) {
	src := &fakeSource{name: "rss", results: map[string][]news.Candidate{
		"q": {candidate("Internet shutdown hits Jakarta", "https://n/1")},
	}}
	a := newTestApp(t, src, "q")
	a.SetCache(cache.NewFileStore(filepath.Join(t.TempDir(), "cache.json")))

	failing := &failingProvider{}
	a.Budget = ratelimit.NewBudget(0, 0)
	a.Chain = refine.NewChain(a.Budget, nil, failing, &fakeProvider{res: refine.Result{Category: "internet_shutdown"}})

	_, err := a.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, failing.calls)

	require.NoError(t, os.Remove(a.Store.(*storage.CSVStore).Path()))
	_, err = a.Collect(context.Background())
	require.NoError(t, err)

	stats := a.Budget.Stats()
	assert.Equal(t, 2, stats["total_used"])
	assert.Equal(t, 1, stats["cache_misses"])
	assert.Equal(t, 1, stats["cache_hits"])
	assert.Equal(t, "50.0%", stats["cache_hit_rate"])
}

func TestCollectStoreWriteFailure(t *testing.T) {
	a := newTestApp(t, &fakeSource{name: "rss"})
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	a.Store = storage.NewCSVStore(filepath.Join(blocker, "news.csv"))

	_, err := a.Collect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrWrite))
}

type recordingNotifier struct {
	err  error
	sent []digest.Report
}

func (r *recordingNotifier) Name() string { return "slack" }

func (r *recordingNotifier) Send(_ context.Context, rep digest.Report) error {
	r.sent = append(r.sent, rep)
	return r.err
}

func TestDigest(t *testing.T) {
	a := newTestApp(t, &fakeSource{name: "rss"})
	require.NoError(t, a.Store.Save([]news.Item{
		{Date: news.Day(runTime), Title: "Power outage hits Karachi", Country: "Pakistan", Type: news.TypeTrafficImpact, Priority: news.PriorityHigh},
		{Date: news.Day(runTime), Title: "PUBG Mobile patch notes", Type: news.TypeGaming, Priority: news.PriorityMedium},
	}))

	n := &recordingNotifier{}
	a.Notifiers = []notify.Notifier{n}

	r, err := a.Digest(context.Background(), DigestOptions{Hours: 24})
	require.NoError(t, err)
	require.Len(t, n.sent, 1)
	assert.Equal(t, 1, r.TrafficTotal)
	assert.Equal(t, 1, r.GamingTotal)
	assert.Equal(t, []string{"Pakistan"}, r.Countries)

	// Dry run goes to the preview only.
	_, err = a.Digest(context.Background(), DigestOptions{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, n.sent, 1)
	_, err = os.Stat(a.Preview.(*notify.Preview).Path())
	assert.NoError(t, err)

	n.err = errors.New("webhook down")
	_, err = a.Digest(context.Background(), DigestOptions{})
	assert.Error(t, err)
}

func TestBackfillGroups(t *testing.T) {
	a := newTestApp(t, &fakeSource{name: "rss"})
	require.NoError(t, a.Store.Save([]news.Item{
		{Date: news.Day(runTime), Title: "a", URL: "https://n/a", Category: "holiday"},
		{Date: news.Day(runTime), Title: "b", URL: "https://n/b", Category: "curfew", CategoryGroup: news.GroupOther},
		{Date: news.Day(runTime), Title: "c", URL: "https://n/c", Category: "mystery"},
	}))

	n, err := a.BackfillGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := a.Store.Load()
	require.NoError(t, err)
	groups := map[string]news.CategoryGroup{}
	for _, it := range stored {
		groups[it.Title] = it.CategoryGroup
	}
	assert.Equal(t, news.GroupSeasonalCalendar, groups["a"])
	assert.Equal(t, news.GroupOther, groups["b"], "existing groups are not rewritten")
	assert.Equal(t, news.GroupOther, groups["c"])

	n, err = a.BackfillGroups(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
