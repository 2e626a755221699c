package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/trafficwatch/internal/news"
	"github.com/deusflow/trafficwatch/internal/rules"
)

func defaultRules(t *testing.T) rules.Set {
	t.Helper()
	set, err := rules.Default()
	require.NoError(t, err)
	return set
}

func TestClassifyScenarios(t *testing.T) {
	c := New(defaultRules(t))

	tests := []struct {
		name     string
		title    string
		summary  string
		priority news.Priority
		typ      news.Type
		category string
	}{
		{
			name:     "critical outage in watched city",
			title:    "Internet shutdown hits Jakarta",
			priority: news.PriorityHigh,
			typ:      news.TypeTrafficImpact,
		},
		{
			name:     "gaming only",
			title:    "PUBG Mobile update 3.5 adds new map",
			priority: news.PriorityMedium,
			typ:      news.TypeGaming,
			category: "gaming",
		},
		{
			name:     "entertainment excluded",
			title:    "Idol group announces comeback concert",
			priority: news.PriorityLow,
		},
		{
			name:     "holiday",
			title:    "Government declares national holiday next Monday",
			priority: news.PriorityMedium,
			typ:      news.TypeTrafficImpact,
			category: "holiday",
		},
		{
			name:     "school calendar",
			title:    "Schools close as summer vacation starts",
			priority: news.PriorityMedium,
			typ:      news.TypeTrafficImpact,
			category: "school_calendar",
		},
		{
			name:     "no keyword",
			title:    "Local library extends opening hours",
			priority: news.PriorityLow,
		},
		{
			name:     "korean critical keyword",
			title:    "대규모 정전으로 도시 마비",
			priority: news.PriorityHigh,
			typ:      news.TypeTrafficImpact,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.title, tt.summary)
			assert.Equal(t, tt.priority, got.Priority)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.category, got.Category)
		})
	}
}

// Exclusion wins even when critical and gaming keywords are present.
func TestExclusionPrecedence(t *testing.T) {
	c := New(defaultRules(t))

	got := c.Classify("PUBG sponsored stream during power outage", "")
	assert.Equal(t, news.PriorityLow, got.Priority)
	assert.Empty(t, got.Type)
	assert.Equal(t, "sponsored", got.Rule)
}

func TestCriticalBeatsMedium(t *testing.T) {
	c := New(defaultRules(t))

	got := c.Classify("PUBG Mobile servers down after earthquake", "")
	assert.Equal(t, news.PriorityHigh, got.Priority)
	assert.Equal(t, news.TypeTrafficImpact, got.Type)
	assert.Empty(t, got.Category)
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New(defaultRules(t))

	a := c.Classify("KRAFTON reports new season", "")
	b := c.Classify("krafton reports new season", "")
	assert.Equal(t, a, b)
	assert.Equal(t, news.TypeGaming, a.Type)
}

func TestWatchedCountryNeedsCriticalKeyword(t *testing.T) {
	set := rules.Set{
		Primary: rules.Primary{
			Critical:         []string{"riot"},
			WatchedCountries: []string{"cairo"},
		},
	}
	c := New(set)

	assert.Equal(t, news.PriorityLow, c.Classify("Cairo hosts trade fair", "").Priority)
	assert.Equal(t, news.PriorityHigh, c.Classify("Riot police deployed in Cairo", "").Priority)
}

// The classifier keeps its own copy of the rules.
func TestClassifierIgnoresLaterRuleEdits(t *testing.T) {
	set := defaultRules(t)
	c := New(set)
	for i := range set.Primary.Exclude {
		set.Primary.Exclude[i] = "pubg"
	}

	got := c.Classify("PUBG Mobile update 3.5 adds new map", "")
	assert.Equal(t, news.PriorityMedium, got.Priority)
}

func TestDomesticClassify(t *testing.T) {
	c := NewDomestic(defaultRules(t))

	tests := []struct {
		name     string
		title    string
		priority news.Priority
		typ      news.Type
		category string
	}{
		{"negative wins", "배틀그라운드 할인 이벤트", news.PriorityLow, "", ""},
		{"gaming", "배틀그라운드 신규 맵 공개", news.PriorityMedium, news.TypeGaming, "gaming"},
		{"disaster", "일본 지진 피해 확산", news.PriorityHigh, news.TypeTrafficImpact, "natural_disaster"},
		{"conflict", "국경 무력 충돌 격화", news.PriorityHigh, news.TypeTrafficImpact, "war_conflict"},
		{"outage", "통신 장애로 모바일 접속 불가", news.PriorityHigh, news.TypeTrafficImpact, "internet_shutdown"},
		{"holiday", "임시 공휴일 지정 검토", news.PriorityMedium, news.TypeTrafficImpact, "holiday"},
		{"irrelevant", "지역 도서관 리모델링", news.PriorityLow, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.title, "")
			assert.Equal(t, tt.priority, got.Priority)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.category, got.Category)
		})
	}
}

func TestWithHint(t *testing.T) {
	gaming := news.Classification{Priority: news.PriorityMedium, Type: news.TypeGaming, Category: "gaming"}
	traffic := news.Classification{Priority: news.PriorityHigh, Type: news.TypeTrafficImpact}
	dropped := news.Classification{Priority: news.PriorityLow}

	assert.Equal(t, "competitor_game", WithHint(gaming, "competitor_game").Category)
	assert.Equal(t, "major_event", WithHint(traffic, "major_event").Category)
	assert.Empty(t, WithHint(traffic, "competitor_game").Category, "gaming hint must not land on a traffic item")
	assert.Empty(t, WithHint(dropped, "major_event").Category)
	assert.Equal(t, "gaming", WithHint(gaming, "").Category)
}

func TestWatchedCountryAnnotatesRule(t *testing.T) {
	c := New(defaultRules(t))
	got := c.Classify("Earthquake shakes Istanbul", "")
	assert.Equal(t, news.PriorityHigh, got.Priority)
	assert.Equal(t, "istanbul+earthquake", got.Rule)
}
