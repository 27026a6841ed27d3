package daily

import (
	"context"

	"github.com/kailas-cloud/mixdex/internal/domain/pick"
)

// StateStore persists the daily pick.
// Load reports found=false when nothing has been stored yet.
type StateStore interface {
	Load(ctx context.Context) (state pick.State, found bool, err error)
	Save(ctx context.Context, state pick.State) error
}
