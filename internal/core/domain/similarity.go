package domain

import (
	"math"
	"sort"
)

// CosineSimilarity returns ok=false for mismatched dimensions or zero vectors.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

// RankMatches orders matches by descending similarity, ties by ascending ID,
// and truncates to count when count is positive.
func RankMatches(matches []ChunkMatch, count int) []ChunkMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity == matches[j].Similarity {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Similarity > matches[j].Similarity
	})
	if count > 0 && len(matches) > count {
		matches = matches[:count]
	}
	return matches
}
