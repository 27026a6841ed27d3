package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
)

// Range is a closed numeric interval [Lo, Hi].
type Range struct {
	Lo float64
	Hi float64
}

// NewRange validates and creates a Range. Both bounds must be finite and Lo <= Hi.
func NewRange(lo, hi float64) (Range, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return Range{}, fmt.Errorf("abv range bounds must be finite")
	}
	if lo > hi {
		return Range{}, fmt.Errorf("abv range lower bound %g exceeds upper bound %g", lo, hi)
	}
	return Range{Lo: lo, Hi: hi}, nil
}

// Contains reports whether v lies in [Lo, Hi].
func (r Range) Contains(v float64) bool { return v >= r.Lo && v <= r.Hi }

// Filter holds the hard constraints applied before scoring.
// Each constraint is either active or absent; the zero Filter passes everything.
type Filter struct {
	base  string
	style string
	abv   *Range
}

// New creates a Filter. Empty base/style and a nil abv range are absent constraints.
func New(base, style string, abv *Range) Filter {
	f := Filter{base: base, style: style}
	if abv != nil {
		r := *abv
		f.abv = &r
	}
	return f
}

// Matches reports whether it passes every active constraint.
// An item with unknown abv is not range-checked.
func (f Filter) Matches(it *item.Item) bool {
	if f.base != "" && !strings.EqualFold(it.Base, f.base) {
		return false
	}
	if f.style != "" && !strings.EqualFold(it.Style, f.style) {
		return false
	}
	if f.abv != nil && it.ABV != nil && !f.abv.Contains(*it.ABV) {
		return false
	}
	return true
}
