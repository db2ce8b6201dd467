// Package references orders and deduplicates retrieved-document metadata
// before display.
package references

import (
	"math"
	"sort"

	"lexchat-be/internal/entity"
)

// Process returns the references sorted by descending score with at most one
// entry per score rounded to three decimals. The sort is stable, so among
// equal-rounded scores the first survivor is deterministic: highest raw score
// first, original order among exact ties. Pure; the input slice is not
// modified.
func Process(refs []entity.Reference) []entity.Reference {
	if len(refs) == 0 {
		return []entity.Reference{}
	}

	sorted := make([]entity.Reference, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	seen := make(map[int64]struct{}, len(sorted))
	out := sorted[:0]
	for _, ref := range sorted {
		key := roundKey(ref.Score)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func roundKey(score float64) int64 {
	return int64(math.Round(score * 1000))
}
