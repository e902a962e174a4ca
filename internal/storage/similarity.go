package storage

import "strings"

// SimilarityThreshold is the minimum combined score for a preference match.
// A score of exactly 0.60 matches; anything below does not.
const SimilarityThreshold = 0.60

// Similarity weights. Merchant identity dominates; description token overlap
// refines.
const (
	merchantWeight    = 0.7
	descriptionWeight = 0.3
)

// Similarity computes the combined similarity score between two
// (merchant, description) pairs per the documented scoring contract:
// 0.7 x merchant score + 0.3 x Jaccard index of the description token sets.
func Similarity(merchantA, descA, merchantB, descB string) float64 {
	return merchantWeight*merchantScore(merchantA, merchantB) +
		descriptionWeight*descriptionScore(descA, descB)
}

// merchantScore is 1.0 for exact canonical-name equality, 0.8 for substring
// containment in either direction, and 0.0 otherwise.
func merchantScore(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	switch {
	case a == "" || b == "":
		return 0
	case a == b:
		return 1.0
	case strings.Contains(a, b) || strings.Contains(b, a):
		return 0.8
	default:
		return 0
	}
}

// descriptionScore is the Jaccard index of the two texts' token sets.
func descriptionScore(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToUpper(text)) {
		set[t] = true
	}
	return set
}
