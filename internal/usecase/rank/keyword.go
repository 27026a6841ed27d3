package rank

import (
	"strings"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
)

// keywordScore counts non-overlapping occurrences of every term in blob.
// blob must already be lower-cased.
func keywordScore(blob string, terms []string) float64 {
	var score int
	for _, term := range terms {
		term = strings.ToLower(term)
		if term == "" {
			continue
		}
		score += strings.Count(blob, term)
	}
	return float64(score)
}

// rerankByKeywords scores every candidate's search text and re-sorts by
// vecScore + weight*kwRaw/maxKW. When no candidate matches, order is unchanged.
func rerankByKeywords(items []item.Item, cands []candidate, terms []string, weight float64) {
	var maxKW float64
	for i := range cands {
		cands[i].kwRaw = keywordScore(items[cands[i].index].SearchText(), terms)
		maxKW = max(maxKW, cands[i].kwRaw)
	}
	if maxKW == 0 {
		return
	}
	for i := range cands {
		cands[i].sortKey = cands[i].vecScore + weight*(cands[i].kwRaw/maxKW)
	}
	sortCandidates(cands)
}
