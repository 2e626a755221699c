package refine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/ratelimit"
)

type fakeProvider struct {
	name  string
	paid  bool
	res   Result
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Paid() bool   { return f.paid }
func (f *fakeProvider) Refine(context.Context, news.Item) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	r := f.res
	r.Provider = f.name
	return r, nil
}

func TestChainFallsThroughOnError(t *testing.T) {
	failing := &fakeProvider{name: "groq", err: errors.New("503")}
	working := &fakeProvider{name: "gemini", res: Result{Category: "natural_disaster"}}

	chain := NewChain(nil, nil, failing, working)
	res, err := chain.Refine(context.Background(), news.Item{Title: "Flood"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, []string{"groq", "gemini"}, chain.Names())
}

func TestChainStopsOnNotRelevant(t *testing.T) {
	first := &fakeProvider{name: "groq", err: ErrNotRelevant}
	second := &fakeProvider{name: "gemini"}

	res, err := NewChain(nil, nil, first, second).Refine(context.Background(), news.Item{Title: "x"})
	require.ErrorIs(t, err, ErrNotRelevant)
	assert.Equal(t, "groq", res.Provider)
	assert.Zero(t, second.calls)
}

func TestChainAllFail(t *testing.T) {
	a := &fakeProvider{name: "groq", err: errors.New("timeout")}
	b := &fakeProvider{name: "gemini", err: ErrMalformed}

	_, err := NewChain(nil, nil, a, b).Refine(context.Background(), news.Item{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.NotErrorIs(t, err, ErrNotRelevant)
}

func TestChainEmpty(t *testing.T) {
	_, err := NewChain(nil, nil).Refine(context.Background(), news.Item{})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestChainRespectsPaidBudget(t *testing.T) {
	budget := ratelimit.NewBudget(0, 1)
	paid := &fakeProvider{name: "openai", paid: true, res: Result{Category: "curfew"}}
	chain := NewChain(budget, nil, paid)

	_, err := chain.Refine(context.Background(), news.Item{Title: "a"})
	require.NoError(t, err)

	_, err = chain.Refine(context.Background(), news.Item{Title: "b"})
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 1, paid.calls)
}

func TestChainAvailable(t *testing.T) {
	budget := ratelimit.NewBudget(0, 0)
	budget.SetLimit("groq", 1)
	chain := NewChain(budget, nil, &fakeProvider{name: "groq", res: Result{Category: "protest"}})
	assert.True(t, chain.Available())

	_, err := chain.Refine(context.Background(), news.Item{Title: "a"})
	require.NoError(t, err)
	assert.False(t, chain.Available())
}

func TestApply(t *testing.T) {
	t.Run("traffic item takes crisis category", func(t *testing.T) {
		it := news.Item{Title: "t", Type: news.TypeTrafficImpact, Priority: news.PriorityHigh, Provenance: "rss"}
		Apply(&it, Result{
			Category:      "Internet_Shutdown",
			Country:       "Iran",
			Summary:       "<b>이란 전역</b> 인터넷 차단",
			TrafficImpact: "접속 불가",
			Provider:      "groq",
		})
		assert.Equal(t, "internet_shutdown", it.Category)
		assert.Equal(t, "Iran", it.Country)
		assert.Equal(t, "MIDDLE EAST", it.Continent)
		assert.Equal(t, "이란 전역 인터넷 차단", it.Summary)
		assert.Equal(t, "접속 불가", it.TrafficImpact)
		assert.Equal(t, "groq", it.Provenance)
	})

	t.Run("gaming category rejected for traffic item", func(t *testing.T) {
		it := news.Item{Type: news.TypeTrafficImpact, Summary: "keep"}
		Apply(&it, Result{Category: "gaming"})
		assert.Empty(t, it.Category)
		assert.Equal(t, "keep", it.Summary)
	})

	t.Run("outage category rejected for gaming item", func(t *testing.T) {
		it := news.Item{Type: news.TypeGaming, Category: "gaming"}
		Apply(&it, Result{Category: "tech_outage"})
		assert.Equal(t, "gaming", it.Category)
	})

	t.Run("unknown category ignored", func(t *testing.T) {
		it := news.Item{Type: news.TypeTrafficImpact}
		Apply(&it, Result{Category: "other"})
		assert.Empty(t, it.Category)
	})
}
