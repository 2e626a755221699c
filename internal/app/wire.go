package app

import (
	"context"
	"fmt"

	"github.com/deusflow/trafficwatch/internal/cache"
	"github.com/deusflow/trafficwatch/internal/classify"
	"github.com/deusflow/trafficwatch/internal/config"
	"github.com/deusflow/trafficwatch/internal/digest"
	"github.com/deusflow/trafficwatch/internal/fetch"
	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/notify"
	"github.com/deusflow/trafficwatch/internal/ratelimit"
	"github.com/deusflow/trafficwatch/internal/refine"
	"github.com/deusflow/trafficwatch/internal/retry"
	"github.com/deusflow/trafficwatch/internal/rules"
	"github.com/deusflow/trafficwatch/internal/scraper"
	"github.com/deusflow/trafficwatch/internal/storage"
)

// New wires every component the configuration enables. Missing
// credentials leave the matching source, provider or channel out.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	set, err := rules.Load(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	plan, err := fetch.LoadPlan(cfg.QueriesFile)
	if err != nil {
		return nil, fmt.Errorf("load query plan: %w", err)
	}

	a := &App{
		Classifier: classify.New(set),
		Pacer:      ratelimit.NewPacer(cfg.FetchDelay),
		Budget:     ratelimit.NewBudget(cfg.MaxRefineRequests, cfg.MaxPaidRefinements),
		Store:      storage.NewCSVStore(cfg.NewsCSV),
		Preview:    notify.NewPreview(cfg.PreviewFile, cfg.DashboardURL),
	}

	for name, n := range cfg.ProviderLimits {
		a.Budget.SetLimit(name, n)
	}

	a.Feeds = buildFeeds(cfg, set, plan)

	completers := a.buildCompleters(ctx, cfg)
	providers := make([]refine.Provider, 0, len(completers))
	for _, c := range completers {
		providers = append(providers, refine.NewProvider(c.Completer, c.paid))
	}
	a.Chain = refine.NewChain(a.Budget, a.Pacer, providers...)

	summarizers := make([]refine.Completer, 0, len(completers))
	for _, c := range completers {
		summarizers = append(summarizers, c.Completer)
	}
	a.Digester = digest.NewBuilder(set.Digest, summarizers...)

	a.SetCache(a.openCache(ctx, cfg))

	if cfg.ScrapeShort {
		a.Scraper = scraper.New(cfg.RequestTimeout)
	}

	if cfg.SlackWebhookURL != "" {
		a.Notifiers = append(a.Notifiers, notify.NewSlack(cfg.SlackWebhookURL, cfg.DashboardURL, cfg.RequestTimeout))
	}
	if cfg.HasTelegram() {
		a.Notifiers = append(a.Notifiers, notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.DashboardURL))
	}

	logger.Info("Components wired",
		"feeds", len(a.Feeds),
		"providers", a.Chain.Names(),
		"notifiers", len(a.Notifiers),
		"scrape", a.Scraper != nil)
	return a, nil
}

func buildFeeds(cfg *config.Config, set rules.Set, plan fetch.Plan) []Feed {
	feeds := []Feed{{
		Source: fetch.NewRSSSource(fetch.RSSOptions{
			Timeout: cfg.RequestTimeout,
			Retry: retry.RetryConfig{
				MaxAttempts: cfg.RetryAttempts,
				Delay:       cfg.RetryDelay,
			},
			MaxAge: cfg.NewsMaxAge,
		}),
		Queries: plan.RSSQueries(),
	}}

	if cfg.HasNaver() {
		feeds = append(feeds, Feed{
			Source:  fetch.NewNaverSource(cfg.NaverClientID, cfg.NaverClientSecret, "", cfg.RequestTimeout, classify.NewDomestic(set)),
			Queries: plan.NaverQueries(),
		})
	} else {
		logger.Info("Naver credentials missing, domestic search disabled")
	}

	if cfg.DeepSearchAPIKey != "" {
		feeds = append(feeds,
			Feed{
				Source:  fetch.NewDeepSearchSource(cfg.DeepSearchAPIKey, "", cfg.RequestTimeout, plan.Countries()),
				Queries: plan.DeepSearchQueries(),
			},
			Feed{
				Source:  fetch.NewDeepSearchTrending(cfg.DeepSearchAPIKey, "", cfg.RequestTimeout),
				Queries: plan.TrendingQueries(),
			})
	}
	return feeds
}

type completer struct {
	refine.Completer
	paid bool
}

// buildCompleters returns providers in priority order: free first, paid
// only when enabled.
func (a *App) buildCompleters(ctx context.Context, cfg *config.Config) []completer {
	var out []completer

	if cfg.GroqAPIKey != "" {
		out = append(out, completer{Completer: refine.NewGroq(cfg.GroqAPIKey, "")})
	}
	if cfg.GeminiAPIKey != "" {
		g, err := refine.NewGemini(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			logger.Warn("Gemini client unavailable", "error", err)
		} else {
			out = append(out, completer{Completer: g})
			a.closers = append(a.closers, g.Close)
		}
	}

	if !cfg.UsePaidAPI {
		return out
	}
	if cfg.OpenAIAPIKey != "" {
		out = append(out, completer{Completer: refine.NewOpenAI(cfg.OpenAIAPIKey, ""), paid: true})
	}
	if cfg.ClaudeAPIKey != "" {
		out = append(out, completer{Completer: refine.NewClaude(cfg.ClaudeAPIKey, "", "", cfg.RequestTimeout), paid: true})
	}
	return out
}

// openCache prefers Postgres and falls back to the JSON file.
func (a *App) openCache(ctx context.Context, cfg *config.Config) cache.Store {
	if cfg.DatabaseURL != "" {
		pg, err := cache.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err == nil {
			a.closers = append(a.closers, func() {
				if err := pg.Close(); err != nil {
					logger.Warn("Closing Postgres cache", "error", err)
				}
			})
			if stats, err := pg.Stats(ctx); err == nil {
				logger.Info("Using Postgres refinement cache", "entries", stats["total_entries"], "not_relevant", stats["not_relevant_entries"])
			}
			return pg
		}
		logger.Warn("Postgres cache unavailable, using file cache", "error", err)
	}

	fs := cache.NewFileStore(cfg.CacheFile)
	fs.Load()
	logger.Info("Using file refinement cache", "path", cfg.CacheFile, "entries", fs.Len())
	return fs
}
