package query

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/mixdex/internal/domain/rank/filter"
	"github.com/kailas-cloud/mixdex/internal/domain/vector"
)

// Query parameter limits.
const (
	DefaultTopK = 12
	MaxTopK     = 500
	// MaxKeywordsLength caps the keyword string accepted at service boundaries.
	MaxKeywordsLength = 1024
)

// Weights are the per-signal multipliers of the combined score.
type Weights struct {
	Flavor  float64 `json:"flavor" yaml:"flavor"`
	Style   float64 `json:"style" yaml:"style"`
	Base    float64 `json:"base" yaml:"base"`
	Keyword float64 `json:"keyword" yaml:"keyword"`
}

// DefaultWeights returns flavor 0.60, style 0.25, base 0.15, keyword 0.10.
func DefaultWeights() Weights {
	return Weights{Flavor: 0.60, Style: 0.25, Base: 0.15, Keyword: 0.10}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	named := []struct {
		name string
		v    float64
	}{
		{"flavor", w.Flavor}, {"style", w.Style}, {"base", w.Base}, {"keyword", w.Keyword},
	}
	for _, n := range named {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
			return fmt.Errorf("weight %s must be finite", n.name)
		}
		if n.v < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %g", n.name, n.v)
		}
	}
	return nil
}

// Query describes one ranking call.
//
// Explicit vectors take precedence over names/highlights for the same dimension;
// a nil vector means "absent", not "all zeros".
type Query struct {
	FlavorVector []float64
	StyleVector  []float64
	BaseVector   []float64

	BaseNames        []string
	StyleNames       []string
	FlavorHighlights []string

	Filter   filter.Filter
	Keywords string
	Weights  Weights
	TopK     int
}

// New returns a Query with default weights and topK.
func New() Query {
	return Query{Weights: DefaultWeights(), TopK: DefaultTopK}
}

// Vector returns the explicit query vector for d (nil when absent).
func (q *Query) Vector(d vector.Dimension) []float64 {
	switch d {
	case vector.Base:
		return q.BaseVector
	case vector.Style:
		return q.StyleVector
	case vector.Flavor:
		return q.FlavorVector
	}
	return nil
}

// Highlights returns the names/highlights used to derive the vector for d.
func (q *Query) Highlights(d vector.Dimension) []string {
	switch d {
	case vector.Base:
		return q.BaseNames
	case vector.Style:
		return q.StyleNames
	case vector.Flavor:
		return q.FlavorHighlights
	}
	return nil
}

// Terms splits the keyword string on whitespace. Blank input yields nil.
func (q *Query) Terms() []string {
	return strings.Fields(q.Keywords)
}

// Validate checks a query built from caller input. The ranking pipeline itself
// accepts any Query; validation belongs to service boundaries.
func (q *Query) Validate() error {
	if q.TopK < 1 || q.TopK > MaxTopK {
		return fmt.Errorf("top_k must be between 1 and %d, got %d", MaxTopK, q.TopK)
	}
	if len(q.Keywords) > MaxKeywordsLength {
		return fmt.Errorf("keywords too long (max %d chars)", MaxKeywordsLength)
	}
	if err := q.Weights.Validate(); err != nil {
		return err
	}
	for _, d := range vector.Dimensions {
		for _, v := range q.Vector(d) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%s_vector must contain finite values", d)
			}
		}
	}
	return nil
}
