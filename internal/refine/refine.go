// Package refine sends high-priority items to LLM providers for a second
// opinion: relevance, fine category, country, traffic impact and a short
// Korean summary.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/metrics"
	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/ratelimit"
)

var (
	// ErrNotRelevant is returned when a provider judges the item irrelevant
	// to game traffic. The item is dropped.
	ErrNotRelevant = errors.New("refine: item not relevant")
	// ErrBudgetExhausted is returned when every provider is over budget.
	ErrBudgetExhausted = errors.New("refine: request budget exhausted")
	// ErrNoProvider is returned by an empty chain.
	ErrNoProvider = errors.New("refine: no provider configured")
	// ErrMalformed marks a provider response without a usable verdict.
	ErrMalformed = errors.New("refine: malformed provider response")
)

// Result is a provider's verdict on a relevant item.
type Result struct {
	Category      string
	Country       string
	TrafficImpact string
	Summary       string
	Provider      string
}

// Provider refines one item.
type Provider interface {
	Name() string
	// Paid providers count against the shared paid budget.
	Paid() bool
	Refine(ctx context.Context, item news.Item) (Result, error)
}

// Completer is a raw text completion backend. Providers and the digest
// summarizer are both built on it.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

const refineMaxTokens = 500

const systemPrompt = "You are a news analyst for a mobile game operations team. Return only valid JSON."

type llmProvider struct {
	completer Completer
	paid      bool
}

// NewProvider turns a completion backend into a refinement provider.
func NewProvider(c Completer, paid bool) Provider {
	return &llmProvider{completer: c, paid: paid}
}

func (p *llmProvider) Name() string { return p.completer.Name() }
func (p *llmProvider) Paid() bool   { return p.paid }

func (p *llmProvider) Refine(ctx context.Context, item news.Item) (Result, error) {
	text, err := p.completer.Complete(ctx, systemPrompt, buildPrompt(item), refineMaxTokens)
	if err != nil {
		return Result{}, err
	}
	res, err := parseVerdict(text)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	res.Provider = p.Name()
	return res, nil
}

// Pacer spaces provider calls.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Chain tries providers in order until one returns a verdict.
type Chain struct {
	providers []Provider
	budget    *ratelimit.Budget
	pacer     Pacer
}

// NewChain builds a chain. Order is priority: free providers should come
// first. budget and pacer may be nil.
func NewChain(budget *ratelimit.Budget, pacer Pacer, providers ...Provider) *Chain {
	return &Chain{providers: providers, budget: budget, pacer: pacer}
}

// Len is the number of configured providers.
func (c *Chain) Len() int { return len(c.providers) }

// Names lists providers in priority order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Available reports whether at least one provider still has budget left.
func (c *Chain) Available() bool {
	for _, p := range c.providers {
		if c.budget == nil || c.budget.Allow(p.Name(), p.Paid()) {
			return true
		}
	}
	return false
}

// Refine returns the first provider verdict. ErrNotRelevant from a
// provider is final. Other provider errors are logged and the next
// provider is tried. When every provider was skipped for budget reasons
// the error wraps ErrBudgetExhausted.
func (c *Chain) Refine(ctx context.Context, item news.Item) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, ErrNoProvider
	}

	var errs []error
	attempted := false
	for _, p := range c.providers {
		if c.budget != nil {
			if err := c.budget.Use(p.Name(), p.Paid()); err != nil {
				logger.Debug("refinement provider skipped", "provider", p.Name(), "reason", err)
				continue
			}
		}
		if c.pacer != nil {
			if err := c.pacer.Wait(ctx); err != nil {
				return Result{}, err
			}
		}
		attempted = true

		res, err := p.Refine(ctx, item)
		switch {
		case err == nil:
			metrics.Refinements.WithLabelValues(p.Name(), "refined").Inc()
			return res, nil
		case errors.Is(err, ErrNotRelevant):
			metrics.Refinements.WithLabelValues(p.Name(), "not_relevant").Inc()
			return Result{Provider: p.Name()}, err
		default:
			metrics.Refinements.WithLabelValues(p.Name(), "error").Inc()
			logger.Warn("refinement failed, trying next provider", "provider", p.Name(), "title", item.Title, "error", err)
			errs = append(errs, err)
		}
	}

	if !attempted {
		return Result{}, ErrBudgetExhausted
	}
	return Result{}, fmt.Errorf("all refinement providers failed: %w", errors.Join(errs...))
}

// Apply merges a verdict into the item. The category is only taken when it
// is a known category consistent with the item's type; country, summary and
// impact are taken when non-empty.
func Apply(item *news.Item, r Result) {
	if cat := strings.ToLower(strings.TrimSpace(r.Category)); cat != "" &&
		news.KnownCategory(cat) && news.ConsistentCategory(item.Type, cat) {
		item.Category = cat
	}
	if country := strings.TrimSpace(r.Country); country != "" {
		item.SetCountry(country)
	}
	if s := Sanitize(r.Summary); s != "" {
		item.Summary = news.Truncate(s, news.MaxSummaryRunes)
	}
	if impact := Sanitize(r.TrafficImpact); impact != "" {
		item.TrafficImpact = impact
	}
	if r.Provider != "" {
		item.Provenance = r.Provider
	}
}
