package mixdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/mixdex/internal/db"
	"github.com/kailas-cloud/mixdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/mixdex/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/mixdex/internal/db/sqlite"
	"github.com/kailas-cloud/mixdex/internal/domain"
	"github.com/kailas-cloud/mixdex/internal/repository/pickstate"
	"github.com/kailas-cloud/mixdex/internal/usecase/daily"
	rankuc "github.com/kailas-cloud/mixdex/internal/usecase/rank"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "mixdex:"
)

// Client is the mixdex SDK entry point. It is safe for concurrent use.
type Client struct {
	store  db.Store
	picker *daily.Picker
	obs    *observer
}

// New creates a Client and connects to the configured state store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:    driverMemory,
		keyPrefix: defaultKeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, defaultReadinessTimeout)
	defer cancel()
	if err := store.WaitForReady(readyCtx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("mixdex: state store not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverMemory:
		return memory.NewStore(), nil
	case driverValkey, driverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("mixdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case driverSQLite:
		s, err := dbSQLite.Open(cfg.path)
		if err != nil {
			return nil, fmt.Errorf("mixdex: create sqlite store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("mixdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	opts := []daily.Option{daily.WithLocation(cfg.location)}
	if cfg.now != nil {
		opts = append(opts, daily.WithClock(cfg.now))
	}
	if cfg.intn != nil {
		opts = append(opts, daily.WithRand(cfg.intn))
	}

	picker := daily.New(pickstate.New(store, cfg.keyPrefix), newZapLogger(cfg.logger), opts...)
	return &Client{store: store, picker: picker, obs: obs}
}

// Rank scores items against q and returns at most q.TopK results, best first.
// The query is validated first; a rejected query wraps ErrInvalidQuery.
func (c *Client) Rank(_ context.Context, items []Item, q Query) ([]Result, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		err = domain.NewInvalidQuery(err)
		c.obs.observe("rank", start, "", err)
		return nil, err
	}

	results := rankuc.Rank(items, &q)
	c.obs.observe("rank", start, "", nil, "items", len(items), "results", len(results))
	return results, nil
}

// Similar ranks items against the vectors of the item with the given id and
// returns up to topK other items.
func (c *Client) Similar(_ context.Context, items []Item, id string, topK int) ([]Result, error) {
	start := time.Now()
	results, err := similar(items, id, topK)
	c.obs.observe("similar", start, "", err)
	return results, err
}

func similar(items []Item, id string, topK int) ([]Result, error) {
	if topK < 1 {
		return nil, domain.NewInvalidQuery(fmt.Errorf("top_k must be positive, got %d", topK))
	}
	var seed *Item
	for i := range items {
		if items[i].ID == id {
			seed = &items[i]
			break
		}
	}
	if seed == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrItemNotFound, id)
	}

	q := rankuc.SimilarQuery(seed, topK+1)
	out := make([]Result, 0, topK)
	for _, r := range rankuc.Rank(items, &q) {
		if r.ID == id {
			continue
		}
		if len(out) == topK {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

// Today returns the item of the day from candidates, or false when candidates is empty.
// The pick stays fixed for the calendar day while it remains among candidates.
func (c *Client) Today(ctx context.Context, candidates []Item) (Item, bool) {
	start := time.Now()
	it, ok := c.picker.Today(ctx, candidates)
	status := "ok"
	if !ok {
		status = "empty"
	}
	c.obs.observe("today", start, status, nil, "item_id", it.ID)
	return it, ok
}

// Ping checks state store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}
