package refine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/deusflow/trafficwatch/internal/news"
)

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

func buildPrompt(item news.Item) string {
	var b strings.Builder
	b.WriteString("Decide whether this news item can affect mobile game traffic (players unable or unlikely to play, or more likely to play).\n\n")
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Content: %s\n", item.Summary)
	fmt.Fprintf(&b, "URL: %s\n\n", item.URL)
	b.WriteString(`Reply with one JSON object:
{
  "relevant": true or false,
  "category": "exactly one category from the list below",
  "country": "country name, or null",
  "traffic_impact": "one short sentence on the expected traffic effect",
  "summary_kr": "2-3 line summary in Korean"
}

Categories:
`)
	for _, g := range []news.CategoryGroup{
		news.GroupOutageBlock, news.GroupSocialCrisis, news.GroupSeasonalCalendar, news.GroupGamingCompetitor,
	} {
		fmt.Fprintf(&b, "- %s: %s\n", g, strings.Join(news.Categories(g), ", "))
	}
	b.WriteString("\nIf the item cannot affect game traffic, set relevant to false.")
	return b.String()
}

type verdict struct {
	Relevant      *bool   `json:"relevant"`
	Category      string  `json:"category"`
	Country       *string `json:"country"`
	TrafficImpact string  `json:"traffic_impact"`
	SummaryKR     string  `json:"summary_kr"`
}

// parseVerdict extracts the JSON object from a model reply. A reply without
// an explicit "relevant": true is treated as not relevant.
func parseVerdict(text string) (Result, error) {
	raw := jsonObject.FindString(text)
	if raw == "" {
		return Result{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformed)
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if v.Relevant == nil || !*v.Relevant {
		return Result{}, ErrNotRelevant
	}

	res := Result{
		Category:      strings.TrimSpace(v.Category),
		TrafficImpact: strings.TrimSpace(v.TrafficImpact),
		Summary:       strings.TrimSpace(v.SummaryKR),
	}
	if v.Country != nil && !strings.EqualFold(strings.TrimSpace(*v.Country), "null") {
		res.Country = strings.TrimSpace(*v.Country)
	}
	return res, nil
}
