// Package rules loads the keyword rule sets that drive classification and
// digest filtering. A Set is read once at startup and handed to the
// classifiers; nothing mutates it afterwards.
package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/trafficwatch/internal/news"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Set is the complete rule configuration.
type Set struct {
	Primary  Primary  `yaml:"primary"`
	Domestic Domestic `yaml:"domestic"`
	Digest   Digest   `yaml:"digest"`
}

// Primary drives the main classifier.
type Primary struct {
	Exclude          []string     `yaml:"exclude"`
	Critical         []string     `yaml:"critical"`
	WatchedCountries []string     `yaml:"watched_countries"`
	Medium           []MediumRule `yaml:"medium"`
}

// MediumRule is one ordered medium-priority keyword group.
type MediumRule struct {
	Name     string    `yaml:"name"`
	Type     news.Type `yaml:"news_type"`
	Category string    `yaml:"category"`
	Keywords []string  `yaml:"keywords"`
}

// Domestic drives the classifier used for the domestic search adapter.
type Domestic struct {
	Negative       []string     `yaml:"negative"`
	GamingRequired []string     `yaml:"gaming_required"`
	Impact         []ImpactRule `yaml:"impact"`
}

// ImpactRule maps a domestic impact keyword group to a fine category.
type ImpactRule struct {
	Name     string        `yaml:"name"`
	Category string        `yaml:"category"`
	Priority news.Priority `yaml:"priority"`
	Keywords []string      `yaml:"keywords"`
}

// Digest holds the digest-only filters and impact levels.
type Digest struct {
	Exclude      []string `yaml:"exclude"`
	HighImpact   []string `yaml:"high_impact"`
	MediumImpact []string `yaml:"medium_impact"`
}

// Default returns the embedded rule set.
func Default() (Set, error) {
	return Parse(defaultRules)
}

// Load reads a rule file. An empty path selects the embedded defaults.
func Load(path string) (Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read rules file %s: %w", path, err)
	}
	set, err := Parse(data)
	if err != nil {
		return Set{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return set, nil
}

// Parse decodes, normalizes and validates a YAML rule set.
func Parse(data []byte) (Set, error) {
	var set Set
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return Set{}, fmt.Errorf("decode rules: %w", err)
	}
	set.normalize()
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate checks that every rule assigns a consistent type and category.
func (s Set) Validate() error {
	if len(s.Primary.Critical) == 0 {
		return fmt.Errorf("primary.critical must not be empty")
	}
	for _, r := range s.Primary.Medium {
		if r.Type != news.TypeGaming && r.Type != news.TypeTrafficImpact {
			return fmt.Errorf("medium rule %q: unknown news_type %q", r.Name, r.Type)
		}
		if r.Category == "" {
			return fmt.Errorf("medium rule %q: category is required", r.Name)
		}
		if !news.ConsistentCategory(r.Type, r.Category) {
			return fmt.Errorf("medium rule %q: category %q is not valid for %s", r.Name, r.Category, r.Type)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("medium rule %q has no keywords", r.Name)
		}
	}
	for _, r := range s.Domestic.Impact {
		if r.Priority != news.PriorityHigh && r.Priority != news.PriorityMedium {
			return fmt.Errorf("impact rule %q: priority must be high or medium", r.Name)
		}
		if !news.ConsistentCategory(news.TypeTrafficImpact, r.Category) {
			return fmt.Errorf("impact rule %q: category %q is not a traffic category", r.Name, r.Category)
		}
	}
	return nil
}

// Clone returns a deep copy so holders cannot observe each other's edits.
func (s Set) Clone() Set {
	out := Set{
		Primary: Primary{
			Exclude:          slices.Clone(s.Primary.Exclude),
			Critical:         slices.Clone(s.Primary.Critical),
			WatchedCountries: slices.Clone(s.Primary.WatchedCountries),
		},
		Domestic: Domestic{
			Negative:       slices.Clone(s.Domestic.Negative),
			GamingRequired: slices.Clone(s.Domestic.GamingRequired),
		},
		Digest: Digest{
			Exclude:      slices.Clone(s.Digest.Exclude),
			HighImpact:   slices.Clone(s.Digest.HighImpact),
			MediumImpact: slices.Clone(s.Digest.MediumImpact),
		},
	}
	for _, r := range s.Primary.Medium {
		r.Keywords = slices.Clone(r.Keywords)
		out.Primary.Medium = append(out.Primary.Medium, r)
	}
	for _, r := range s.Domestic.Impact {
		r.Keywords = slices.Clone(r.Keywords)
		out.Domestic.Impact = append(out.Domestic.Impact, r)
	}
	return out
}

func (s *Set) normalize() {
	s.Primary.Exclude = normalizeKeywords(s.Primary.Exclude)
	s.Primary.Critical = normalizeKeywords(s.Primary.Critical)
	s.Primary.WatchedCountries = normalizeKeywords(s.Primary.WatchedCountries)
	for i := range s.Primary.Medium {
		r := &s.Primary.Medium[i]
		r.Category = strings.ToLower(strings.TrimSpace(r.Category))
		r.Keywords = normalizeKeywords(r.Keywords)
	}

	s.Domestic.Negative = normalizeKeywords(s.Domestic.Negative)
	s.Domestic.GamingRequired = normalizeKeywords(s.Domestic.GamingRequired)
	for i := range s.Domestic.Impact {
		r := &s.Domestic.Impact[i]
		r.Category = strings.ToLower(strings.TrimSpace(r.Category))
		r.Keywords = normalizeKeywords(r.Keywords)
	}

	s.Digest.Exclude = normalizeKeywords(s.Digest.Exclude)
	s.Digest.HighImpact = normalizeKeywords(s.Digest.HighImpact)
	s.Digest.MediumImpact = normalizeKeywords(s.Digest.MediumImpact)
}

// normalizeKeywords lower-cases and trims keywords, dropping blanks while
// keeping file order.
func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// MatchFirst returns the first keyword contained in text. text must already
// be lower-cased.
func MatchFirst(text string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k, true
		}
	}
	return "", false
}
