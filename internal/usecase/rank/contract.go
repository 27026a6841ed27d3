package rank

import (
	"context"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
)

// CatalogReader provides the catalog snapshot scored by the service.
type CatalogReader interface {
	All(ctx context.Context) ([]item.Item, error)
	Get(ctx context.Context, id string) (item.Item, error)
}
