package rank

import (
	"sort"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/query"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/result"
	"github.com/kailas-cloud/mixdex/internal/domain/vector"
)

// headroomFactor sizes the candidate window kept after vector scoring.
const headroomFactor = 3

// candidate is the per-item working state of one ranking call.
type candidate struct {
	index     int // position in the catalog, used as the tie-break
	flavorSim float64
	styleSim  float64
	baseSim   float64
	vecScore  float64
	kwRaw     float64
	sortKey   float64
}

// Rank scores items against q and returns at most q.TopK results sorted by
// descending score. Equal scores keep catalog order. Rank never fails: absent
// or misaligned vectors contribute 0, and an empty catalog yields an empty list.
func Rank(items []item.Item, q *query.Query) []result.Result {
	if len(items) == 0 || q.TopK <= 0 {
		return []result.Result{}
	}

	qvecs := queryVectors(items, q)

	cands := make([]candidate, 0, len(items))
	for i := range items {
		it := &items[i]
		if !q.Filter.Matches(it) {
			continue
		}
		c := candidate{
			index:     i,
			flavorSim: similarity(qvecs[vector.Flavor], it.FlavorVector),
			styleSim:  similarity(qvecs[vector.Style], it.StyleVector),
			baseSim:   similarity(qvecs[vector.Base], it.BaseVector),
		}
		c.vecScore = q.Weights.Flavor*c.flavorSim + q.Weights.Style*c.styleSim + q.Weights.Base*c.baseSim
		c.sortKey = c.vecScore
		cands = append(cands, c)
	}

	sortCandidates(cands)
	if limit := max(headroomFactor*q.TopK, q.TopK); len(cands) > limit {
		cands = cands[:limit]
	}

	if terms := q.Terms(); len(terms) > 0 {
		rerankByKeywords(items, cands, terms, q.Weights.Keyword)
	}

	if len(cands) > q.TopK {
		cands = cands[:q.TopK]
	}

	out := make([]result.Result, 0, len(cands))
	for _, c := range cands {
		score, boost := c.vecScore, 0.0
		if c.kwRaw > 0 {
			score += q.Weights.Keyword
			boost = 1
		}
		it := &items[c.index]
		out = append(out, result.New(it.ID, it.Name, score, result.Explain{
			FlavorSim:    c.flavorSim,
			StyleSim:     c.styleSim,
			BaseSim:      c.baseSim,
			KeywordBoost: boost,
		}))
	}
	return out
}

// queryVectors resolves the query vector of every dimension.
// An explicit vector wins; otherwise non-empty highlights are projected onto the
// dimension's order. A dimension with neither stays absent (nil).
func queryVectors(items []item.Item, q *query.Query) map[vector.Dimension][]float64 {
	out := make(map[vector.Dimension][]float64, len(vector.Dimensions))
	for _, d := range vector.Dimensions {
		if v := q.Vector(d); v != nil {
			out[d] = v
			continue
		}
		if hl := q.Highlights(d); len(hl) > 0 {
			out[d] = vector.FromHighlights(orderFor(items, d), hl)
		}
	}
	return out
}

// orderFor returns the labels of the first catalog block for d, falling back
// to the built-in canonical order.
func orderFor(items []item.Item, d vector.Dimension) []string {
	for i := range items {
		if b := items[i].Block(d); b.Valid() && len(b.Order) > 0 {
			return b.Order
		}
	}
	return vector.CanonicalOrder(d)
}

func similarity(qv []float64, b *vector.Block) float64 {
	if qv == nil || !b.Valid() {
		return 0
	}
	return vector.Cosine(qv, b.Vector)
}

// sortCandidates orders by descending sortKey, then ascending catalog index.
func sortCandidates(cands []candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].sortKey != cands[j].sortKey {
			return cands[i].sortKey > cands[j].sortKey
		}
		return cands[i].index < cands[j].index
	})
}
