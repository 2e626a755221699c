package fetch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/metrics"
	"github.com/deusflow/trafficwatch/internal/news"
)

const NaverBaseURL = "https://openapi.naver.com"

// Classifier is the rule path applied to domestic results.
type Classifier interface {
	Classify(title, description string) news.Classification
}

// NaverSource queries the Naver news search API. Results are classified
// here with the domestic rules and irrelevant ones are dropped.
type NaverSource struct {
	client     *resty.Client
	classifier Classifier
	display    int
}

func NewNaverSource(clientID, clientSecret, baseURL string, timeout time.Duration, classifier Classifier) *NaverSource {
	if baseURL == "" {
		baseURL = NaverBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("X-Naver-Client-Id", clientID).
		SetHeader("X-Naver-Client-Secret", clientSecret)
	return &NaverSource{client: client, classifier: classifier, display: 10}
}

func (s *NaverSource) Name() string { return "naver" }

type naverResponse struct {
	Items []struct {
		Title        string `json:"title"`
		OriginalLink string `json:"originallink"`
		Link         string `json:"link"`
		Description  string `json:"description"`
		PubDate      string `json:"pubDate"`
	} `json:"items"`
}

func (s *NaverSource) Fetch(ctx context.Context, q Query) ([]news.Candidate, error) {
	var out naverResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":   q.Keyword,
			"display": strconv.Itoa(s.display),
			"sort":    "date",
		}).
		SetResult(&out).
		Get("/v1/search/news.json")
	if err != nil {
		return nil, fmt.Errorf("naver search %q: %w", q.Keyword, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("naver search %q: status %d", q.Keyword, resp.StatusCode())
	}

	var candidates []news.Candidate
	for _, it := range out.Items {
		title := news.StripHTML(it.Title)
		desc := news.StripHTML(it.Description)

		cls := s.classifier.Classify(title, desc)
		if !cls.Relevant() {
			metrics.ItemsDropped.WithLabelValues("domestic_rules").Inc()
			logger.Debug("naver item filtered", "title", title, "rule", cls.Rule)
			continue
		}

		link := it.OriginalLink
		if link == "" {
			link = it.Link
		}
		// Unparseable dates fall back to the run date in news.NewDraft.
		published, _ := time.Parse(time.RFC1123Z, it.PubDate)

		c := cls
		candidates = append(candidates, news.Candidate{
			Title:          title,
			Summary:        desc,
			URL:            link,
			Source:         "Naver News",
			PublishedAt:    published,
			Country:        q.Country,
			CategoryHint:   q.CategoryHint,
			Classification: &c,
			Origin:         s.Name(),
		})
	}

	logger.Debug("naver query done", "keyword", q.Keyword, "returned", len(out.Items), "relevant", len(candidates))
	return candidates, nil
}
