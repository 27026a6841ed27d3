package daily

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/pick"
	"github.com/kailas-cloud/mixdex/internal/metrics"
	"github.com/kailas-cloud/mixdex/internal/tracing"
)

// Picker returns a random item that stays fixed for the rest of the calendar day.
type Picker struct {
	store  StateStore
	lock   sync.Locker
	loc    *time.Location
	now    func() time.Time
	intn   func(n int) int
	logger *zap.Logger
}

// Option configures a Picker.
type Option func(*Picker)

// WithLocker guards the load-check-save sequence with l, e.g. a lock shared
// by every picker writing the same keys.
func WithLocker(l sync.Locker) Option {
	return func(p *Picker) { p.lock = l }
}

// WithLocation sets the calendar used to decide day boundaries.
func WithLocation(loc *time.Location) Option {
	return func(p *Picker) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Picker) { p.now = now }
}

// WithRand overrides the random index source. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(p *Picker) { p.intn = intn }
}

// New creates a Picker on top of store.
func New(store StateStore, logger *zap.Logger, opts ...Option) *Picker {
	p := &Picker{
		store:  store,
		lock:   &sync.Mutex{},
		loc:    time.Local,
		now:    time.Now,
		intn:   rand.IntN,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Today returns today's pick from candidates, or false when candidates is empty.
//
// The stored pick is reused while it is from today and still present in
// candidates. Otherwise a fresh uniform pick replaces it, even within the same
// day. Store failures never fail the call: a failed load counts as a miss and
// a failed save still returns the fresh pick.
func (p *Picker) Today(ctx context.Context, candidates []item.Item) (item.Item, bool) {
	if len(candidates) == 0 {
		metrics.PickTotal.WithLabelValues("empty").Inc()
		return item.Item{}, false
	}

	ctx, end := tracing.StartSpan(ctx, "daily.Today", attribute.Int("candidates", len(candidates)))
	defer end(nil)

	p.lock.Lock()
	defer p.lock.Unlock()

	today := pick.StartOfDay(p.now(), p.loc)

	state, found, err := p.store.Load(ctx)
	if err != nil {
		metrics.PickStoreErrorsTotal.WithLabelValues("load").Inc()
		p.logger.Warn("Load daily pick failed, picking fresh", zap.Error(err))
		found = false
	}
	if found && pick.SameDay(state.Day, today, p.loc) {
		for i := range candidates {
			if candidates[i].ID == state.ItemID {
				metrics.PickTotal.WithLabelValues("hit").Inc()
				tracing.SetAttributes(ctx, attribute.Bool("cache_hit", true))
				return candidates[i], true
			}
		}
	}

	chosen := candidates[p.intn(len(candidates))]
	metrics.PickTotal.WithLabelValues("miss").Inc()
	tracing.SetAttributes(ctx, attribute.Bool("cache_hit", false))

	if err := p.store.Save(ctx, pick.State{ItemID: chosen.ID, Day: today}); err != nil {
		metrics.PickStoreErrorsTotal.WithLabelValues("save").Inc()
		p.logger.Warn("Save daily pick failed",
			zap.String("item_id", chosen.ID),
			zap.Error(err),
		)
	}
	return chosen, true
}
