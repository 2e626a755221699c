package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/deusflow/trafficwatch/internal/news"
)

const DeepSearchBaseURL = "https://api-v2.deepsearch.com"

const deepSearchDateLayout = "2006-01-02"

type deepSearchClient struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

func newDeepSearchClient(apiKey, baseURL string, timeout time.Duration) deepSearchClient {
	if baseURL == "" {
		baseURL = DeepSearchBaseURL
	}
	return deepSearchClient{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		apiKey: apiKey,
		now:    time.Now,
	}
}

func (c deepSearchClient) get(ctx context.Context, path string, params map[string]string, out any) error {
	params["api_key"] = c.apiKey
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}

// DeepSearchSource searches global articles from the last day.
type DeepSearchSource struct {
	deepSearchClient
	countries []string
}

func NewDeepSearchSource(apiKey, baseURL string, timeout time.Duration, countries []string) *DeepSearchSource {
	return &DeepSearchSource{
		deepSearchClient: newDeepSearchClient(apiKey, baseURL, timeout),
		countries:        countries,
	}
}

func (s *DeepSearchSource) Name() string { return "deepsearch" }

type deepSearchArticles struct {
	Data []struct {
		Title       string `json:"title"`
		Summary     string `json:"summary"`
		URL         string `json:"url"`
		Publisher   string `json:"publisher"`
		PublishedAt string `json:"published_at"`
	} `json:"data"`
}

func (s *DeepSearchSource) Fetch(ctx context.Context, q Query) ([]news.Candidate, error) {
	now := s.now()
	var out deepSearchArticles
	err := s.get(ctx, "/v1/global-articles", map[string]string{
		"keyword":   q.Keyword,
		"date_from": now.AddDate(0, 0, -1).Format(deepSearchDateLayout),
		"date_to":   now.Format(deepSearchDateLayout),
		"page_size": "10",
		"page":      "1",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("deepsearch %q: %w", q.Keyword, err)
	}

	candidates := make([]news.Candidate, 0, len(out.Data))
	for _, a := range out.Data {
		country := q.Country
		if country == "" {
			country = inferCountry(s.countries, q.Keyword, a.Title)
		}
		source := a.Publisher
		if source == "" {
			source = "DeepSearch"
		}
		candidates = append(candidates, news.Candidate{
			Title:        a.Title,
			Summary:      a.Summary,
			URL:          a.URL,
			Source:       source,
			PublishedAt:  parseLooseTime(a.PublishedAt),
			Country:      country,
			CategoryHint: q.CategoryHint,
			Origin:       s.Name(),
		})
	}
	return candidates, nil
}

// DeepSearchTrending returns trending topics of a section (Query.Keyword).
type DeepSearchTrending struct {
	deepSearchClient
	topicURL string
}

func NewDeepSearchTrending(apiKey, baseURL string, timeout time.Duration) *DeepSearchTrending {
	return &DeepSearchTrending{
		deepSearchClient: newDeepSearchClient(apiKey, baseURL, timeout),
		topicURL:         "https://deepsearch.com/topic/",
	}
}

func (s *DeepSearchTrending) Name() string { return "deepsearch_trending" }

type deepSearchTopics struct {
	Data []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		TitleKR  string `json:"title_kr"`
		Briefing string `json:"briefing"`
		Date     string `json:"date"`
	} `json:"data"`
}

func (s *DeepSearchTrending) Fetch(ctx context.Context, q Query) ([]news.Candidate, error) {
	var out deepSearchTopics
	path := "/v1/global-articles/topics/" + url.PathEscape(q.Keyword) + "/trending"
	if err := s.get(ctx, path, map[string]string{"page_size": strconv.Itoa(5)}, &out); err != nil {
		return nil, fmt.Errorf("deepsearch trending %q: %w", q.Keyword, err)
	}

	candidates := make([]news.Candidate, 0, len(out.Data))
	for _, t := range out.Data {
		title := t.Title
		if title == "" {
			title = t.TitleKR
		}
		link := ""
		if t.ID != "" {
			link = s.topicURL + t.ID
		}
		candidates = append(candidates, news.Candidate{
			Title:        title,
			Summary:      t.Briefing,
			URL:          link,
			Source:       "DeepSearch Trending",
			PublishedAt:  parseLooseTime(t.Date),
			Country:      q.Country,
			CategoryHint: q.CategoryHint,
			Origin:       s.Name(),
		})
	}
	return candidates, nil
}

// parseLooseTime accepts RFC 3339 timestamps or bare dates; anything else
// yields the zero time and the draft falls back to the run date.
func parseLooseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if len(s) >= 10 {
		if t, err := time.Parse(deepSearchDateLayout, s[:10]); err == nil {
			return t
		}
	}
	return time.Time{}
}
