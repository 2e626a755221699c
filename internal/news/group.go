package news

import "strings"

// CategoryGroup is the coarse bucket used by dashboards.
type CategoryGroup string

const (
	GroupOutageBlock      CategoryGroup = "outage_block"
	GroupSocialCrisis     CategoryGroup = "social_crisis"
	GroupSeasonalCalendar CategoryGroup = "seasonal_calendar"
	GroupGamingCompetitor CategoryGroup = "gaming_competitor"
	GroupOther            CategoryGroup = "other"
)

var categoryGroups = map[string]CategoryGroup{
	"internet_shutdown":     GroupOutageBlock,
	"tech_outage":           GroupOutageBlock,
	"power_outage":          GroupOutageBlock,
	"censorship":            GroupOutageBlock,
	"cyber_attack":          GroupOutageBlock,
	"infrastructure_damage": GroupOutageBlock,

	"war_conflict":        GroupSocialCrisis,
	"terrorism_explosion": GroupSocialCrisis,
	"natural_disaster":    GroupSocialCrisis,
	"protest_strike":      GroupSocialCrisis,
	"curfew":              GroupSocialCrisis,
	"pandemic":            GroupSocialCrisis,
	"economic":            GroupSocialCrisis,

	"holiday":         GroupSeasonalCalendar,
	"school_calendar": GroupSeasonalCalendar,
	"election":        GroupSeasonalCalendar,

	"gaming":          GroupGamingCompetitor,
	"competitor_game": GroupGamingCompetitor,
	"social_trend":    GroupGamingCompetitor,
	"sports_event":    GroupGamingCompetitor,
	"major_event":     GroupGamingCompetitor,
}

// GroupFor maps a fine category to its group. Unknown and blank
// categories map to GroupOther.
func GroupFor(category string) CategoryGroup {
	if g, ok := categoryGroups[strings.ToLower(strings.TrimSpace(category))]; ok {
		return g
	}
	return GroupOther
}

// KnownCategory reports whether category appears in the group table.
func KnownCategory(category string) bool {
	_, ok := categoryGroups[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Categories lists the known categories of a group in a stable order.
func Categories(g CategoryGroup) []string {
	var out []string
	for _, c := range categoryOrder {
		if categoryGroups[c] == g {
			out = append(out, c)
		}
	}
	return out
}

var categoryOrder = []string{
	"internet_shutdown", "tech_outage", "power_outage", "censorship", "cyber_attack", "infrastructure_damage",
	"war_conflict", "terrorism_explosion", "natural_disaster", "protest_strike", "curfew", "pandemic", "economic",
	"holiday", "school_calendar", "election",
	"gaming", "competitor_game", "social_trend", "sports_event", "major_event",
}

// ConsistentCategory reports whether category may be attached to an item of
// type t. Gaming items never carry crisis or outage categories and traffic
// items never carry the gaming categories.
func ConsistentCategory(t Type, category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	switch t {
	case TypeGaming:
		g := GroupFor(c)
		return g != GroupOutageBlock && g != GroupSocialCrisis
	case TypeTrafficImpact:
		return c != "gaming" && c != "competitor_game"
	default:
		return true
	}
}

// Backfill fills CategoryGroup on items where it is blank. Items with a
// group already set are left alone. It returns the number of rows filled.
func Backfill(items []Item) ([]Item, int) {
	filled := 0
	for i := range items {
		if strings.TrimSpace(string(items[i].CategoryGroup)) != "" {
			continue
		}
		items[i].CategoryGroup = GroupFor(items[i].Category)
		filled++
	}
	return items, filled
}
