// Package suggest finds the closest known name for a misspelled one. It backs
// the "did you mean" hints in config and template errors.
package suggest

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxDistance bounds how different a candidate may be before it stops being
// a useful hint.
const maxDistance = 3

// Closest returns the candidate that best matches name, or "" when nothing
// is close enough. Subsequence matches (abbreviations such as "util" for
// "utilization") win over edit-distance matches.
func Closest(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best := ""
	bestDist := maxDistance + 1
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(name, c)
		if d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	if bestDist > maxDistance {
		return ""
	}
	return best
}
