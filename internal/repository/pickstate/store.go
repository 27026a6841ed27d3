package pickstate

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mixdex/internal/db"
	"github.com/kailas-cloud/mixdex/internal/domain/pick"
)

// Fixed key names of the persisted daily pick.
const (
	KeyItemID = "rotd.random.recipeID"
	KeyDate   = "rotd.random.date"
)

// store is the consumer interface for pick state operations (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMulti(ctx context.Context, items []db.KVItem) error
}

// Store persists the daily pick as two keys: the item id and the RFC 3339 day.
type Store struct {
	store  store
	idKey  string
	dayKey string
}

// New creates a pick state store. prefix namespaces both keys, e.g. "mixdex:".
func New(s store, prefix string) *Store {
	return &Store{
		store:  s,
		idKey:  prefix + KeyItemID,
		dayKey: prefix + KeyDate,
	}
}

// Load returns the stored pick. found is false when either key is missing.
func (s *Store) Load(ctx context.Context) (pick.State, bool, error) {
	vals, err := s.store.GetMulti(ctx, []string{s.idKey, s.dayKey})
	if err != nil {
		return pick.State{}, false, fmt.Errorf("pickstate load: %w", err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return pick.State{}, false, nil
	}

	day, err := time.Parse(time.RFC3339, string(vals[1]))
	if err != nil {
		return pick.State{}, false, fmt.Errorf("pickstate load %s parse: %w", s.dayKey, err)
	}
	return pick.State{ItemID: string(vals[0]), Day: day}, true, nil
}

// Save writes both keys in one call.
func (s *Store) Save(ctx context.Context, st pick.State) error {
	err := s.store.SetMulti(ctx, []db.KVItem{
		{Key: s.idKey, Value: []byte(st.ItemID)},
		{Key: s.dayKey, Value: []byte(st.Day.Format(time.RFC3339))},
	})
	if err != nil {
		return fmt.Errorf("pickstate save: %w", err)
	}
	return nil
}
