package chi

import (
	"fmt"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/filter"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/query"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/result"
	"github.com/kailas-cloud/mixdex/internal/repository/catalog"
)

// ErrorResponseCode is the machine-readable error code of an error body.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest         ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed   ErrorResponseCode = "validation_failed"
	ErrorResponseCodeUnauthorized       ErrorResponseCode = "unauthorized"
	ErrorResponseCodeItemNotFound       ErrorResponseCode = "item_not_found"
	ErrorResponseCodeNotFound           ErrorResponseCode = "not_found"
	ErrorResponseCodeEmptyCatalog       ErrorResponseCode = "empty_catalog"
	ErrorResponseCodeCatalogUnavailable ErrorResponseCode = "catalog_unavailable"
	ErrorResponseCodeInternalError      ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// WeightsRequest overrides individual default weights.
type WeightsRequest struct {
	Flavor  *float64 `json:"flavor,omitempty"`
	Style   *float64 `json:"style,omitempty"`
	Base    *float64 `json:"base,omitempty"`
	Keyword *float64 `json:"keyword,omitempty"`
}

// RankRequest is the body of POST /rank. Omitted or null vectors are absent.
type RankRequest struct {
	FlavorVector     []float64       `json:"flavor_vector,omitempty"`
	StyleVector      []float64       `json:"style_vector,omitempty"`
	BaseVector       []float64       `json:"base_vector,omitempty"`
	BaseNames        []string        `json:"base_names,omitempty"`
	StyleNames       []string        `json:"style_names,omitempty"`
	FlavorHighlights []string        `json:"flavor_highlights,omitempty"`
	HardBase         string          `json:"hard_base,omitempty"`
	HardStyle        string          `json:"hard_style,omitempty"`
	ABVRange         *[2]float64     `json:"abv_range,omitempty"`
	Keywords         string          `json:"keywords,omitempty"`
	Weights          *WeightsRequest `json:"weights,omitempty"`
	TopK             *int            `json:"top_k,omitempty"`
}

// RankResponse wraps ranked results.
type RankResponse struct {
	Results []result.Result `json:"results"`
}

// ItemListResponse is one page of catalog items.
type ItemListResponse struct {
	Items      []item.Item `json:"items"`
	HasMore    bool        `json:"has_more"`
	NextCursor *string     `json:"next_cursor,omitempty"`
}

// FacetsResponse lists distinct catalog labels.
type FacetsResponse = catalog.Facets

// ReloadResponse reports the catalog size after a reload.
type ReloadResponse struct {
	Count int `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// rankQueryFromRequest merges req over the server defaults.
func rankQueryFromRequest(req *RankRequest, defaults query.Weights, defaultTopK, maxTopK int) (query.Query, error) {
	q := query.New()
	q.Weights = defaults
	q.TopK = defaultTopK

	q.FlavorVector = req.FlavorVector
	q.StyleVector = req.StyleVector
	q.BaseVector = req.BaseVector
	q.BaseNames = req.BaseNames
	q.StyleNames = req.StyleNames
	q.FlavorHighlights = req.FlavorHighlights
	q.Keywords = req.Keywords

	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > maxTopK {
			return query.Query{}, fmt.Errorf("top_k must be between 1 and %d", maxTopK)
		}
		q.TopK = *req.TopK
	}

	if w := req.Weights; w != nil {
		override(&q.Weights.Flavor, w.Flavor)
		override(&q.Weights.Style, w.Style)
		override(&q.Weights.Base, w.Base)
		override(&q.Weights.Keyword, w.Keyword)
	}

	var abv *filter.Range
	if req.ABVRange != nil {
		r, err := filter.NewRange(req.ABVRange[0], req.ABVRange[1])
		if err != nil {
			return query.Query{}, fmt.Errorf("abv_range: %w", err)
		}
		abv = &r
	}
	q.Filter = filter.New(req.HardBase, req.HardStyle, abv)

	return q, nil
}

func override(dst, src *float64) {
	if src != nil {
		*dst = *src
	}
}
