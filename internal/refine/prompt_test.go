package refine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/trafficwatch/internal/news"
)

func TestParseVerdict(t *testing.T) {
	reply := "Here you go:\n```json\n" + `{"relevant": true, "category": "power_outage", "country": "Pakistan", "traffic_impact": "Players offline", "summary_kr": "파키스탄 전역 정전"}` + "\n```"

	res, err := parseVerdict(reply)
	require.NoError(t, err)
	assert.Equal(t, "power_outage", res.Category)
	assert.Equal(t, "Pakistan", res.Country)
	assert.Equal(t, "Players offline", res.TrafficImpact)
	assert.Equal(t, "파키스탄 전역 정전", res.Summary)
}

func TestParseVerdictNotRelevant(t *testing.T) {
	_, err := parseVerdict(`{"relevant": false}`)
	assert.ErrorIs(t, err, ErrNotRelevant)

	// Missing relevance flag counts as not relevant.
	_, err = parseVerdict(`{"category": "holiday"}`)
	assert.ErrorIs(t, err, ErrNotRelevant)
}

func TestParseVerdictNullCountry(t *testing.T) {
	res, err := parseVerdict(`{"relevant": true, "category": "holiday", "country": null}`)
	require.NoError(t, err)
	assert.Empty(t, res.Country)

	res, err = parseVerdict(`{"relevant": true, "category": "holiday", "country": "null"}`)
	require.NoError(t, err)
	assert.Empty(t, res.Country)
}

func TestParseVerdictMalformed(t *testing.T) {
	_, err := parseVerdict("I cannot help with that.")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = parseVerdict(`{"relevant": tru}`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(news.Item{Title: "Typhoon nears Manila", Summary: "Ports closed", URL: "https://example.com/t"})
	assert.Contains(t, p, "Typhoon nears Manila")
	assert.Contains(t, p, "https://example.com/t")
	assert.Contains(t, p, "summary_kr")
	for _, c := range []string{"internet_shutdown", "natural_disaster", "school_calendar", "competitor_game"} {
		assert.True(t, strings.Contains(p, c), "prompt should list %s", c)
	}
}
