// Package classify assigns priority, type and category to news text using
// ordered keyword rules. Classification is pure: the same text and rule set
// always produce the same result.
package classify

import (
	"strings"

	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/rules"
)

// Classifier is the primary, rule-based classifier.
type Classifier struct {
	rules rules.Primary
}

// New builds a classifier over a private copy of the rule set.
func New(set rules.Set) *Classifier {
	return &Classifier{rules: set.Clone().Primary}
}

// Classify evaluates exclusion patterns, then critical keywords, then the
// medium rule groups. The first hit wins; nothing matching yields low.
func (c *Classifier) Classify(title, summary string) news.Classification {
	text := normalize(title, summary)

	if k, ok := rules.MatchFirst(text, c.rules.Exclude); ok {
		return low(k)
	}

	if k, ok := rules.MatchFirst(text, c.rules.Critical); ok {
		rule := k
		// Watched countries never escalate on their own; they only annotate
		// a critical hit.
		if country, ok := rules.MatchFirst(text, c.rules.WatchedCountries); ok {
			rule = country + "+" + k
		}
		return news.Classification{Priority: news.PriorityHigh, Type: news.TypeTrafficImpact, Rule: rule}
	}

	for _, r := range c.rules.Medium {
		if k, ok := rules.MatchFirst(text, r.Keywords); ok {
			return news.Classification{
				Priority: news.PriorityMedium,
				Type:     r.Type,
				Category: r.Category,
				Rule:     k,
			}
		}
	}

	return low("")
}

// DomesticClassifier is the stricter rule path used for the domestic news
// search, where results are noisier.
type DomesticClassifier struct {
	rules rules.Domestic
}

func NewDomestic(set rules.Set) *DomesticClassifier {
	return &DomesticClassifier{rules: set.Clone().Domestic}
}

// Classify checks negative keywords, then the gaming keywords, then the
// impact groups in order. Anything else is not relevant (low).
func (c *DomesticClassifier) Classify(title, description string) news.Classification {
	text := normalize(title, description)

	if k, ok := rules.MatchFirst(text, c.rules.Negative); ok {
		return low(k)
	}

	if k, ok := rules.MatchFirst(text, c.rules.GamingRequired); ok {
		return news.Classification{Priority: news.PriorityMedium, Type: news.TypeGaming, Category: "gaming", Rule: k}
	}

	for _, r := range c.rules.Impact {
		if k, ok := rules.MatchFirst(text, r.Keywords); ok {
			return news.Classification{
				Priority: r.Priority,
				Type:     news.TypeTrafficImpact,
				Category: r.Category,
				Rule:     k,
			}
		}
	}

	return low("")
}

// WithHint applies a query-level category hint. The hint only fills an
// empty category or specializes the generic gaming category, and never
// produces a type/category mismatch.
func WithHint(c news.Classification, hint string) news.Classification {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" || !c.Relevant() || !news.ConsistentCategory(c.Type, hint) {
		return c
	}
	if c.Category == "" || (c.Type == news.TypeGaming && c.Category == "gaming") {
		c.Category = hint
	}
	return c
}

func normalize(title, summary string) string {
	return strings.ToLower(title + " " + summary)
}

func low(rule string) news.Classification {
	return news.Classification{Priority: news.PriorityLow, Rule: rule}
}
