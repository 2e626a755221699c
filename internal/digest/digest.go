// Package digest builds the daily traffic report from the persisted store
// and renders it for Slack and Telegram.
package digest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/deusflow/trafficwatch/internal/logger"
	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/refine"
	"github.com/deusflow/trafficwatch/internal/rules"
)

// Level is the digest impact level of a selected item.
type Level string

const (
	LevelHigh   Level = "high_impact"
	LevelMedium Level = "medium_impact"
)

const (
	DefaultHours = 24
	// dedupeRunes is the title prefix length used to collapse near-identical
	// headlines from different outlets.
	dedupeRunes = 30
	// summaryItems caps the items shown to the summarizer.
	summaryItems  = 10
	maxCountries  = 5
	summaryTokens = 300
)

const NoIssues = "✅ *특이사항 없음*\n지난 24시간 동안 모바일 게임 트래픽에 영향을 줄 만한 주요 이슈가 감지되지 않았습니다."

const minorIssues = "🟢 *경미한 이슈*\n일부 뉴스가 감지되었으나 트래픽에 큰 영향은 없을 것으로 예상됩니다."

// Entry is a selected traffic item with its impact level.
type Entry struct {
	Item  news.Item
	Level Level
}

// Report is everything a renderer needs.
type Report struct {
	Date         time.Time
	TrafficTotal int
	GamingTotal  int
	Entries      []Entry
	Summary      string
	// SummaryBy names the completer that wrote Summary; empty for the
	// rule-based text.
	SummaryBy string
	Countries []string
}

// HasIssues reports whether any item qualified.
func (r Report) HasIssues() bool { return len(r.Entries) > 0 }

type Options struct {
	Hours int
	Now   time.Time
}

// Builder selects items and writes the summary.
type Builder struct {
	rules       rules.Digest
	summarizers []refine.Completer
}

// NewBuilder takes summarizers in preference order. None is valid; the
// summary then falls back to rule-based text.
func NewBuilder(r rules.Digest, summarizers ...refine.Completer) *Builder {
	return &Builder{rules: r, summarizers: summarizers}
}

// Build never fails: with no qualifying items it returns a report whose
// summary is the no-issues message.
func (b *Builder) Build(ctx context.Context, items []news.Item, opts Options) Report {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Hours <= 0 {
		opts.Hours = DefaultHours
	}

	traffic, gaming := Recent(items, opts.Now, opts.Hours)
	entries := Select(traffic, b.rules)

	r := Report{
		Date:         opts.Now,
		TrafficTotal: len(traffic),
		GamingTotal:  len(gaming),
		Entries:      entries,
		Countries:    affectedCountries(entries),
	}
	r.Summary, r.SummaryBy = b.summarize(ctx, entries)
	return r
}

// Recent splits items dated on or after the cutoff day into traffic and
// gaming partitions. Items with an unset type are ignored.
func Recent(items []news.Item, now time.Time, hours int) (traffic, gaming []news.Item) {
	cutoff := news.Day(now.Add(-time.Duration(hours) * time.Hour))
	for _, it := range items {
		if it.Date.Before(cutoff) {
			continue
		}
		switch it.Type {
		case news.TypeTrafficImpact:
			traffic = append(traffic, it)
		case news.TypeGaming:
			gaming = append(gaming, it)
		}
	}
	return traffic, gaming
}

// Select keeps items that match an impact keyword and no exclusion keyword,
// deduplicated by title prefix, high impact first.
func Select(items []news.Item, r rules.Digest) []Entry {
	seen := make(map[string]struct{}, len(items))
	var out []Entry
	for _, it := range items {
		titleKey := news.Truncate(strings.ToLower(it.Title), dedupeRunes)
		if _, dup := seen[titleKey]; dup {
			continue
		}
		seen[titleKey] = struct{}{}

		text := strings.ToLower(it.Title + " " + it.Summary)
		if _, hit := rules.MatchFirst(text, r.Exclude); hit {
			continue
		}

		var level Level
		if _, hit := rules.MatchFirst(text, r.HighImpact); hit {
			level = LevelHigh
		} else if _, hit := rules.MatchFirst(text, r.MediumImpact); hit {
			level = LevelMedium
		} else {
			continue
		}
		out = append(out, Entry{Item: it, Level: level})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Level == LevelHigh && out[j].Level != LevelHigh
	})
	return out
}

func affectedCountries(entries []Entry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		c := strings.TrimSpace(e.Item.Country)
		if c == "" || strings.EqualFold(c, "unknown") {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
		if len(out) == maxCountries {
			break
		}
	}
	return out
}

const summarySystem = "You write short Korean briefings for a mobile game operations team."

func (b *Builder) summarize(ctx context.Context, entries []Entry) (string, string) {
	if len(entries) == 0 {
		return NoIssues, ""
	}

	prompt := summaryPrompt(entries)
	for _, s := range b.summarizers {
		text, err := s.Complete(ctx, summarySystem, prompt, summaryTokens)
		if err != nil {
			logger.Warn("Digest summarizer failed", "provider", s.Name(), "error", err)
			continue
		}
		if text = cleanSummary(text); text != "" {
			return text, s.Name()
		}
	}
	return ruleSummary(entries), ""
}

func summaryPrompt(entries []Entry) string {
	var sb strings.Builder
	sb.WriteString("뉴스를 보고 모바일 게임 트래픽 영향을 간단히 정리해줘.\n\n")
	for i, e := range entries {
		if i == summaryItems {
			break
		}
		country := e.Item.Country
		if country == "" {
			country = "Unknown"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s (영향도: %s)\n", i+1, country, news.Truncate(e.Item.Title, 100), e.Level)
	}
	sb.WriteString(`
작성 규칙:
- 국가별로 한 줄씩, 총 2-3줄 이내
- 자연스러운 한국어로 (번역체 금지)
- 이모지: 🔴 심각, 🟠 주의, 🟢 긍정
- 트래픽 영향 없으면: "✅ 특이사항 없음"

예시:
🔴 인도네시아 - 홍수 피해로 통신망 불안정, 당분간 접속자 감소 예상
🟠 파키스탄 - 일부 지역 정전, 소폭 하락 가능성`)
	return sb.String()
}

var markdownBold = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// cleanSummary sanitizes model output line by line and converts markdown
// bold to Slack bold.
func cleanSummary(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = refine.Sanitize(line); line != "" {
			lines = append(lines, line)
		}
	}
	return markdownBold.ReplaceAllString(strings.Join(lines, "\n"), "*$1*")
}

func ruleSummary(entries []Entry) string {
	var high []Entry
	for _, e := range entries {
		if e.Level == LevelHigh {
			high = append(high, e)
		}
	}
	if len(high) == 0 {
		return minorIssues
	}
	if len(high) > 3 {
		high = high[:3]
	}
	countries := affectedCountries(high)
	if len(countries) == 0 {
		countries = []string{"Unknown"}
	}
	return fmt.Sprintf("🔴 *주의 필요*\n%s 지역에서 트래픽에 영향을 줄 수 있는 이슈가 감지되었습니다. 해당 지역 트래픽 모니터링을 권장합니다.",
		strings.Join(countries, ", "))
}
