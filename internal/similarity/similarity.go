// Package similarity quantifies lexical overlap between two texts to flag
// likely duplicate articles. The measure is intentionally non-semantic:
// lowercase whitespace tokens compared by exact match, no stemming.
package similarity

import "strings"

// DefaultThreshold is the score above which two texts are treated as
// duplicates. Heuristic; short strings can over- or under-trigger.
const DefaultThreshold = 0.7

// Score returns |A ∩ B| / max(|A|, |B|) over the unique lowercase token sets
// of a and b, in [0, 1]. Two empty texts score 0. Pure and symmetric.
func Score(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	if larger == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(larger)
}

// IsDuplicate reports whether either the titles or the descriptions score
// strictly above the threshold. Either field alone triggers a match.
func IsDuplicate(candidateTitle, candidateDescription, existingTitle, existingDescription string, threshold float64) bool {
	return Score(candidateTitle, existingTitle) > threshold ||
		Score(candidateDescription, existingDescription) > threshold
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}
