package daily

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/pick"
)

// --- Mocks ---

type mockStore struct {
	mu      sync.Mutex
	state   pick.State
	found   bool
	loadErr error
	saveErr error
	saves   int
}

func (m *mockStore) Load(_ context.Context) (pick.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.found, m.loadErr
}

func (m *mockStore) Save(_ context.Context, s pick.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state, m.found = s, true
	return nil
}

type countingLocker struct {
	sync.Mutex
	locks int
}

func (l *countingLocker) Lock() {
	l.Mutex.Lock()
	l.locks++
}

// sequence returns indexes from seq in order, wrapping around.
func sequence(seq ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := seq[i%len(seq)] % n
		i++
		return v
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func candidates(ids ...string) []item.Item {
	out := make([]item.Item, len(ids))
	for i, id := range ids {
		out[i] = item.Item{ID: id, Name: id}
	}
	return out
}

func newPicker(store StateStore, c *clock, intn func(int) int, opts ...Option) *Picker {
	opts = append([]Option{WithClock(c.now), WithRand(intn), WithLocation(time.UTC)}, opts...)
	return New(store, zap.NewNop(), opts...)
}

// --- Tests ---

func TestToday_Empty(t *testing.T) {
	store := &mockStore{}
	p := newPicker(store, &clock{t: time.Now()}, sequence(0))

	if _, ok := p.Today(context.Background(), nil); ok {
		t.Error("expected no pick for empty candidates")
	}
	if store.saves != 0 {
		t.Error("empty candidates must not touch the store")
	}
}

func TestToday_StableWithinDay(t *testing.T) {
	store := &mockStore{}
	c := &clock{t: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	p := newPicker(store, c, sequence(1, 2, 0))
	all := candidates("a", "b", "c")

	first, ok := p.Today(context.Background(), all)
	if !ok || first.ID != "b" {
		t.Fatalf("first pick = %v %v, want b", first.ID, ok)
	}

	c.t = c.t.Add(15 * time.Hour) // 23:00 same day
	second, _ := p.Today(context.Background(), all)
	if second.ID != first.ID {
		t.Errorf("same-day pick changed: %s -> %s", first.ID, second.ID)
	}
	if store.saves != 1 {
		t.Errorf("expected 1 save, got %d", store.saves)
	}
	wantDay := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	if !store.state.Day.Equal(wantDay) {
		t.Errorf("stored day = %v, want %v", store.state.Day, wantDay)
	}
}

func TestToday_NewDayPicksAgain(t *testing.T) {
	store := &mockStore{}
	c := &clock{t: time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)}
	p := newPicker(store, c, sequence(0, 2))
	all := candidates("a", "b", "c")

	first, _ := p.Today(context.Background(), all)
	c.t = c.t.Add(2 * time.Minute)
	second, _ := p.Today(context.Background(), all)

	if first.ID != "a" || second.ID != "c" {
		t.Errorf("picks = %s, %s; want a, c", first.ID, second.ID)
	}
	if store.saves != 2 {
		t.Errorf("expected 2 saves, got %d", store.saves)
	}
}

func TestToday_VanishedPickIsReplacedSameDay(t *testing.T) {
	store := &mockStore{}
	c := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	p := newPicker(store, c, sequence(1, 0))

	first, _ := p.Today(context.Background(), candidates("a", "b", "c"))
	if first.ID != "b" {
		t.Fatalf("first pick = %s, want b", first.ID)
	}

	second, _ := p.Today(context.Background(), candidates("a", "c"))
	if second.ID != "a" {
		t.Errorf("second pick = %s, want a", second.ID)
	}
	if store.state.ItemID != "a" {
		t.Errorf("stored id = %s, want a", store.state.ItemID)
	}
}

func TestToday_UsesPickerLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// Stored for Oct 18 in Tokyo.
	store := &mockStore{found: true, state: pick.State{ItemID: "b", Day: time.Date(2026, 10, 18, 0, 0, 0, 0, tokyo)}}
	// 16:00 UTC Oct 18 is 01:00 Oct 19 in Tokyo.
	c := &clock{t: time.Date(2026, 10, 18, 16, 0, 0, 0, time.UTC)}
	p := newPicker(store, c, sequence(0), WithLocation(tokyo))

	got, _ := p.Today(context.Background(), candidates("a", "b"))
	if got.ID != "a" {
		t.Errorf("expected a new pick on the Tokyo day boundary, got %s", got.ID)
	}
}

func TestToday_LoadErrorCountsAsMiss(t *testing.T) {
	store := &mockStore{loadErr: errors.New("conn refused")}
	p := newPicker(store, &clock{t: time.Now()}, sequence(0))

	got, ok := p.Today(context.Background(), candidates("a", "b"))
	if !ok || got.ID != "a" {
		t.Errorf("got %v %v, want a", got.ID, ok)
	}
	if store.saves != 1 {
		t.Errorf("expected the fresh pick to be saved, saves = %d", store.saves)
	}
}

func TestToday_SaveErrorStillReturnsPick(t *testing.T) {
	store := &mockStore{saveErr: errors.New("read only")}
	p := newPicker(store, &clock{t: time.Now()}, sequence(1))

	got, ok := p.Today(context.Background(), candidates("a", "b"))
	if !ok || got.ID != "b" {
		t.Errorf("got %v %v, want b", got.ID, ok)
	}
}

func TestToday_UsesInjectedLocker(t *testing.T) {
	l := &countingLocker{}
	p := newPicker(&mockStore{}, &clock{t: time.Now()}, sequence(0), WithLocker(l))

	p.Today(context.Background(), candidates("a"))
	p.Today(context.Background(), candidates("a"))
	if l.locks != 2 {
		t.Errorf("locks = %d, want 2", l.locks)
	}
}

func TestToday_ConcurrentCallersAgree(t *testing.T) {
	store := &mockStore{}
	p := New(store, zap.NewNop(), WithLocation(time.UTC))
	all := candidates("a", "b", "c", "d", "e", "f", "g", "h")

	var wg sync.WaitGroup
	picks := make([]string, 32)
	for i := range picks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it, _ := p.Today(context.Background(), all)
			picks[i] = it.ID
		}(i)
	}
	wg.Wait()

	for _, id := range picks[1:] {
		if id != picks[0] {
			t.Fatalf("concurrent callers disagreed: %v", picks)
		}
	}
	if store.saves != 1 {
		t.Errorf("expected a single save, got %d", store.saves)
	}
}
