// Package scraper pulls the lead paragraphs of an article page. It is used
// to enrich high-priority items whose feed summary is too short to refine.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	minParagraphRunes = 20
	maxLeadRunes      = 500
)

// Scraper fetches article pages.
type Scraper struct {
	client *http.Client
}

func New(timeout time.Duration) *Scraper {
	return &Scraper{client: &http.Client{Timeout: timeout}}
}

// ExtractLead returns up to the first few paragraphs of the article body,
// bounded to 500 runes.
func (s *Scraper) ExtractLead(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; trafficwatch/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	lead := extractLead(doc)
	if lead == "" {
		return "", fmt.Errorf("no article text found")
	}
	return lead, nil
}

// Selectors from most to least specific; the first one yielding text wins.
var bodySelectors = []string{
	"article p",
	".article-body p",
	".article p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

func extractLead(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, aside, figure").Remove()

	for _, selector := range bodySelectors {
		var paragraphs []string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if utf8.RuneCountInString(text) >= minParagraphRunes && !isJunk(text) {
				paragraphs = append(paragraphs, text)
			}
			return len(paragraphs) < 3
		})
		if len(paragraphs) > 0 {
			return truncate(strings.Join(paragraphs, " "), maxLeadRunes)
		}
	}
	return ""
}

var junkIndicators = []string{
	"cookie", "subscribe", "sign up", "newsletter", "all rights reserved",
	"무단 전재", "재배포 금지", "구독",
}

func isJunk(text string) bool {
	lower := strings.ToLower(text)
	for _, j := range junkIndicators {
		if strings.Contains(lower, j) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
