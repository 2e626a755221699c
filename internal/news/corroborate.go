package news

import "fmt"

// SimilarityThreshold is the title similarity above which two items from
// different sources corroborate each other.
const SimilarityThreshold = 0.7

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// Corroborate annotates items reported by different sources. An item whose
// title is similar enough to one from another source gets confidence high
// and a validation note naming both sources; any other item gets confidence
// medium. Items are never removed: similar headlines can describe distinct
// events, and duplicates are left to Merge.
func Corroborate(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	for i := range out {
		best, bestScore := -1, 0.0
		for j := range items {
			if j == i || items[j].Provenance == items[i].Provenance {
				continue
			}
			if s := TitleSimilarity(items[i].Title, items[j].Title); s > SimilarityThreshold && s > bestScore {
				best, bestScore = j, s
			}
		}

		if best < 0 {
			out[i].Confidence = ConfidenceMedium
			out[i].Validation = fmt.Sprintf("%s only", sourceLabel(items[i]))
			continue
		}
		out[i].Confidence = ConfidenceHigh
		out[i].Validation = fmt.Sprintf("%s + %s (%.0f%%)", sourceLabel(items[i]), sourceLabel(items[best]), bestScore*100)
	}
	return out
}

func sourceLabel(it Item) string {
	if it.Provenance != "" {
		return it.Provenance
	}
	if it.Source != "" {
		return it.Source
	}
	return "unknown"
}
