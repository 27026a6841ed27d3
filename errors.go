package mixdex

import "github.com/kailas-cloud/mixdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery = domain.ErrInvalidQuery
	ErrNotFound     = domain.ErrNotFound
	ErrItemNotFound = domain.ErrItemNotFound
)
