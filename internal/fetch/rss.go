package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/retry"
)

const (
	GoogleNewsSearchURL = "https://news.google.com/rss/search"
	defaultRSSItems     = 10
)

// RSSSource searches Google News RSS. Each query is retried with a fixed
// delay; entries older than MaxAge are skipped.
type RSSSource struct {
	parser   *gofeed.Parser
	baseURL  string
	retry    retry.RetryConfig
	maxAge   time.Duration
	maxItems int
	now      func() time.Time
}

type RSSOptions struct {
	BaseURL  string
	Timeout  time.Duration
	Retry    retry.RetryConfig
	MaxAge   time.Duration
	MaxItems int
	Now      func() time.Time
}

func NewRSSSource(opts RSSOptions) *RSSSource {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: opts.Timeout}
	parser.UserAgent = "trafficwatch/1.0"

	s := &RSSSource{
		parser:   parser,
		baseURL:  opts.BaseURL,
		retry:    opts.Retry,
		maxAge:   opts.MaxAge,
		maxItems: opts.MaxItems,
		now:      opts.Now,
	}
	if s.baseURL == "" {
		s.baseURL = GoogleNewsSearchURL
	}
	if s.maxItems <= 0 {
		s.maxItems = defaultRSSItems
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *RSSSource) Name() string { return "rss" }

// SearchURL builds the Korean-locale search feed URL for a keyword.
func (s *RSSSource) SearchURL(keyword string) string {
	return fmt.Sprintf("%s?q=%s&hl=ko&gl=KR&ceid=KR:ko", s.baseURL, url.QueryEscape(keyword))
}

func (s *RSSSource) Fetch(ctx context.Context, q Query) ([]news.Candidate, error) {
	feedURL := s.SearchURL(q.Keyword)

	var feed *gofeed.Feed
	err := retry.WithRetry(ctx, s.retry, "rss "+q.Keyword, func(ctx context.Context) error {
		f, err := s.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			return err
		}
		feed = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	cutoff := time.Time{}
	if s.maxAge > 0 {
		cutoff = s.now().Add(-s.maxAge)
	}

	var out []news.Candidate
	stale := 0
	for i, item := range feed.Items {
		if i >= s.maxItems {
			break
		}
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}
		if !cutoff.IsZero() && !published.IsZero() && published.Before(cutoff) {
			stale++
			continue
		}

		out = append(out, news.Candidate{
			Title:        item.Title,
			Summary:      item.Description,
			URL:          item.Link,
			Source:       publisher(item),
			PublishedAt:  published,
			Country:      q.Country,
			CategoryHint: q.CategoryHint,
			Origin:       s.Name(),
		})
	}

	logger.Debug("rss query done", "keyword", q.Keyword, "items", len(out), "stale", stale)
	return out, nil
}

// publisher returns the outlet name. Google News appends it to the title as
// "Headline - Outlet".
func publisher(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	if i := strings.LastIndex(item.Title, " - "); i > 0 && i+3 < len(item.Title) {
		return strings.TrimSpace(item.Title[i+3:])
	}
	return "Google News"
}
