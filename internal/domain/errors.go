package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrItemNotFound signals a missing catalog item.
	ErrItemNotFound = fmt.Errorf("item %w", ErrNotFound)
	// ErrInvalidQuery signals a rank query rejected at the service boundary.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidCursor signals a malformed pagination cursor.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrCatalogUnavailable signals that no catalog snapshot could be loaded.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrEmptyCatalog signals that there is nothing to pick from.
	ErrEmptyCatalog = errors.New("catalog is empty")
)

// InvalidQueryError wraps ErrInvalidQuery with the offending reason.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidQuery.Error(), e.Reason)
}

func (e *InvalidQueryError) Unwrap() error { return ErrInvalidQuery }

// NewInvalidQuery creates an invalid query error from a validation failure.
func NewInvalidQuery(err error) error {
	return &InvalidQueryError{Reason: err.Error()}
}
