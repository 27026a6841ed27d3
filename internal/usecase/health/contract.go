package health

import "context"

// DBPinger checks picker state store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CatalogCounter reports how many items the catalog holds.
type CatalogCounter interface {
	Count(ctx context.Context) (int, error)
}
