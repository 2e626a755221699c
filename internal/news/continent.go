package news

import "strings"

const continentOther = "OTHER"

var continents = map[string]string{
	"usa":    "NORTH AMERICA",
	"us":     "NORTH AMERICA",
	"canada": "NORTH AMERICA",
	"mexico": "NORTH AMERICA",

	"brazil":    "SOUTH AMERICA",
	"argentina": "SOUTH AMERICA",

	"germany": "EUROPE",
	"uk":      "EUROPE",
	"france":  "EUROPE",
	"italy":   "EUROPE",
	"spain":   "EUROPE",
	"turkey":  "EUROPE",

	"china":       "ASIA",
	"india":       "ASIA",
	"japan":       "ASIA",
	"korea":       "ASIA",
	"south korea": "ASIA",
	"indonesia":   "ASIA",
	"pakistan":    "ASIA",
	"hong kong":   "ASIA",
	"vietnam":     "ASIA",
	"thailand":    "ASIA",

	"iraq":         "MIDDLE EAST",
	"iran":         "MIDDLE EAST",
	"syria":        "MIDDLE EAST",
	"saudi arabia": "MIDDLE EAST",

	"south africa": "AFRICA",
	"egypt":        "AFRICA",
	"nigeria":      "AFRICA",

	"australia":   "OCEANIA",
	"new zealand": "OCEANIA",

	"russia": "RUSSIA & CIS",
}

// ContinentFor derives the continent label for a country. It returns an
// empty string for an empty country and OTHER for countries not in the table.
func ContinentFor(country string) string {
	c := strings.ToLower(strings.TrimSpace(country))
	if c == "" {
		return ""
	}
	if v, ok := continents[c]; ok {
		return v
	}
	return continentOther
}
