package mixdex

import (
	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/filter"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/query"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/result"
	"github.com/kailas-cloud/mixdex/internal/domain/vector"
)

type (
	// Item is a catalog entry.
	Item = item.Item
	// Ingredient is a single recipe component.
	Ingredient = item.Ingredient
	// VectorBlock is an ordered numeric fingerprint with its labels.
	VectorBlock = vector.Block

	// Query describes one ranking call.
	Query = query.Query
	// Weights are the per-signal score multipliers.
	Weights = query.Weights
	// Filter holds hard constraints applied before scoring.
	Filter = filter.Filter
	// Range is a closed abv interval.
	Range = filter.Range

	// Result is a single ranked item.
	Result = result.Result
	// Explain breaks a score down into its signals.
	Explain = result.Explain
)

// NewQuery returns a query with default weights and topK.
func NewQuery() Query { return query.New() }

// DefaultWeights returns flavor 0.60, style 0.25, base 0.15, keyword 0.10.
func DefaultWeights() Weights { return query.DefaultWeights() }

// NewFilter builds hard constraints. Empty strings and a nil range are inactive.
func NewFilter(base, style string, abv *Range) Filter { return filter.New(base, style, abv) }

// NewRange validates an abv range.
func NewRange(lo, hi float64) (Range, error) {
	return filter.NewRange(lo, hi) //nolint:wrapcheck // validation message is the error
}

// CanonicalOrder returns the built-in label order for "base", "style" or "flavor".
func CanonicalOrder(dimension string) []string {
	return vector.CanonicalOrder(vector.Dimension(dimension))
}
