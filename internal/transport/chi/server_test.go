package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mixdex/internal/db/memory"
	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/vector"
	"github.com/kailas-cloud/mixdex/internal/repository/catalog"
	"github.com/kailas-cloud/mixdex/internal/repository/pickstate"
	"github.com/kailas-cloud/mixdex/internal/usecase/daily"
	healthuc "github.com/kailas-cloud/mixdex/internal/usecase/health"
	rankuc "github.com/kailas-cloud/mixdex/internal/usecase/rank"
)

// --- Fixtures ---

var flavorOrder = []string{"sweet", "sour", "bitter"}

func testItems() []item.Item {
	return []item.Item{
		{
			ID: "daiquiri", Name: "Daiquiri", Base: "rum", Style: "sour", ABV: abv(0.2),
			Flavor:       []string{"sour", "sweet"},
			FlavorVector: &vector.Block{Order: flavorOrder, Vector: []float64{0.6, 0.9, 0}},
		},
		{
			ID: "negroni", Name: "Negroni", Base: "gin", Style: "spirit_forward", ABV: abv(0.24),
			Flavor:       []string{"bitter"},
			FlavorVector: &vector.Block{Order: flavorOrder, Vector: []float64{0.3, 0, 1}},
		},
		{
			ID: "gimlet", Name: "Gimlet", Base: "gin", Style: "sour", ABV: abv(0.22),
			Flavor:       []string{"sour"},
			FlavorVector: &vector.Block{Order: flavorOrder, Vector: []float64{0.4, 1, 0}},
		},
	}
}

type failingCatalog struct {
	*catalog.Repo
	err error
}

func (f failingCatalog) All(context.Context) ([]item.Item, error) { return nil, f.err }

func newTestRouter(t *testing.T, items []item.Item, keys ...string) http.Handler {
	t.Helper()
	repo := catalog.NewFromItems(items, zap.NewNop())
	return newRouterWith(repo, repo, keys...)
}

func newRouterWith(cat Catalog, reader rankuc.CatalogReader, keys ...string) http.Handler {
	kv := memory.NewStore()
	picker := daily.New(pickstate.New(kv, "test:"), zap.NewNop(),
		daily.WithClock(func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }),
		daily.WithRand(func(int) int { return 1 }),
		daily.WithLocation(time.UTC),
	)
	srv := NewServer(
		rankuc.New(reader, zap.NewNop()),
		picker,
		cat,
		healthuc.New(kv, nil),
		DefaultLimits(),
		zap.NewNop(),
	)

	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(keys))
	srv.Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

// --- Tests ---

func TestRank_FlavorHighlights(t *testing.T) {
	h := newTestRouter(t, testItems())
	rr := do(t, h, http.MethodPost, "/api/v1/rank", `{"flavor_highlights": ["Sour"], "top_k": 2}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	resp := decode[RankResponse](t, rr)
	if len(resp.Results) != 2 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].ID != "gimlet" || resp.Results[1].ID != "daiquiri" {
		t.Errorf("order = %s, %s", resp.Results[0].ID, resp.Results[1].ID)
	}
	if resp.Results[0].Explain.FlavorSim <= resp.Results[1].Explain.FlavorSim {
		t.Errorf("expected gimlet to be more sour: %+v", resp.Results)
	}
}

func TestRank_ExplainJSONKeys(t *testing.T) {
	h := newTestRouter(t, testItems())
	rr := do(t, h, http.MethodPost, "/api/v1/rank", `{"keywords": "negroni", "top_k": 1}`)

	body := rr.Body.String()
	for _, key := range []string{`"flavorSim"`, `"styleSim"`, `"baseSim"`, `"kwBoost":1`, `"id":"negroni"`} {
		if !strings.Contains(body, key) {
			t.Errorf("body missing %s: %s", key, body)
		}
	}
}

func TestRank_HardFilterAndWeights(t *testing.T) {
	h := newTestRouter(t, testItems())
	rr := do(t, h, http.MethodPost, "/api/v1/rank",
		`{"hard_base": "GIN", "abv_range": [0.2, 0.23], "weights": {"flavor": 0}}`)

	resp := decode[RankResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].ID != "gimlet" || resp.Results[0].Score != 0 {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestRank_ValidationErrors(t *testing.T) {
	h := newTestRouter(t, testItems())

	tests := []struct {
		name string
		body string
		code ErrorResponseCode
	}{
		{"malformed", `{"top_k":`, ErrorResponseCodeBadRequest},
		{"top_k zero", `{"top_k": 0}`, ErrorResponseCodeValidationFailed},
		{"top_k too large", `{"top_k": 501}`, ErrorResponseCodeValidationFailed},
		{"inverted abv", `{"abv_range": [0.3, 0.1]}`, ErrorResponseCodeValidationFailed},
		{"negative weight", `{"weights": {"base": -1}}`, ErrorResponseCodeValidationFailed},
		{"long keywords", `{"keywords": "` + strings.Repeat("x", 1025) + `"}`, ErrorResponseCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/v1/rank", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if e := decode[ErrorResponse](t, rr); e.Code != tt.code {
				t.Errorf("code = %s, want %s", e.Code, tt.code)
			}
		})
	}
}

func TestRank_EmptyCatalog(t *testing.T) {
	h := newTestRouter(t, nil)
	rr := do(t, h, http.MethodPost, "/api/v1/rank", `{}`)

	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != `{"results":[]}` {
		t.Errorf("status = %d, body %s", rr.Code, rr.Body)
	}
}

func TestRank_CatalogUnavailable(t *testing.T) {
	repo := catalog.NewFromItems(testItems(), zap.NewNop())
	broken := failingCatalog{Repo: repo, err: errors.New("disk gone")}
	h := newRouterWith(broken, broken)

	rr := do(t, h, http.MethodPost, "/api/v1/rank", `{}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Message != "internal error" {
		t.Errorf("leaked message %q", e.Message)
	}
}

func TestListItems_Paging(t *testing.T) {
	h := newTestRouter(t, testItems())

	rr := do(t, h, http.MethodGet, "/api/v1/items?limit=2", "")
	page := decode[ItemListResponse](t, rr)
	if len(page.Items) != 2 || !page.HasMore || page.NextCursor == nil {
		t.Fatalf("page 1 = %+v", page)
	}

	rr = do(t, h, http.MethodGet, "/api/v1/items?limit=2&cursor="+*page.NextCursor, "")
	page = decode[ItemListResponse](t, rr)
	if len(page.Items) != 1 || page.HasMore || page.NextCursor != nil || page.Items[0].ID != "gimlet" {
		t.Errorf("page 2 = %+v", page)
	}
}

func TestListItems_BadParams(t *testing.T) {
	h := newTestRouter(t, testItems())

	for _, path := range []string{
		"/api/v1/items?limit=abc",
		"/api/v1/items?limit=0",
		"/api/v1/items?limit=101",
		"/api/v1/items?cursor=nope",
	} {
		if rr := do(t, h, http.MethodGet, path, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", path, rr.Code)
		}
	}
}

func TestGetItem(t *testing.T) {
	h := newTestRouter(t, testItems())

	rr := do(t, h, http.MethodGet, "/api/v1/items/negroni", "")
	if it := decode[item.Item](t, rr); it.Name != "Negroni" {
		t.Errorf("item = %+v", it)
	}

	rr = do(t, h, http.MethodGet, "/api/v1/items/unknown", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != ErrorResponseCodeItemNotFound {
		t.Errorf("code = %s", e.Code)
	}
}

func TestSimilarItems(t *testing.T) {
	h := newTestRouter(t, testItems())

	rr := do(t, h, http.MethodGet, "/api/v1/items/daiquiri/similar?top_k=1", "")
	resp := decode[RankResponse](t, rr)
	if len(resp.Results) != 1 || resp.Results[0].ID != "gimlet" {
		t.Errorf("results = %+v", resp.Results)
	}

	if rr := do(t, h, http.MethodGet, "/api/v1/items/daiquiri/similar?top_k=-1", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("negative top_k: status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/v1/items/nope/similar", ""); rr.Code != http.StatusNotFound {
		t.Errorf("unknown seed: status = %d", rr.Code)
	}
}

func TestFacets(t *testing.T) {
	h := newTestRouter(t, testItems())
	f := decode[FacetsResponse](t, do(t, h, http.MethodGet, "/api/v1/facets", ""))

	if strings.Join(f.Bases, ",") != "gin,rum" || strings.Join(f.Styles, ",") != "sour,spirit_forward" {
		t.Errorf("facets = %+v", f)
	}
}

func TestPickToday(t *testing.T) {
	h := newTestRouter(t, testItems())

	first := decode[item.Item](t, do(t, h, http.MethodGet, "/api/v1/pick/today", ""))
	second := decode[item.Item](t, do(t, h, http.MethodGet, "/api/v1/pick/today", ""))
	if first.ID != "negroni" || second.ID != first.ID {
		t.Errorf("picks = %s, %s", first.ID, second.ID)
	}
}

func TestPickToday_StableAcrossReloadOfUnchangedCatalog(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		body := `{"name": "` + name + `", "base": "rum"}`
		if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	repo := catalog.New(catalog.Config{Dirs: []string{dir}}, zap.NewNop())

	// Each fresh pick lands on a different index, so only a reused pick repeats.
	calls := 0
	picker := daily.New(pickstate.New(memory.NewStore(), "test:"), zap.NewNop(),
		daily.WithClock(func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }),
		daily.WithRand(func(n int) int { calls++; return calls % n }),
		daily.WithLocation(time.UTC),
	)
	srv := NewServer(rankuc.New(repo, zap.NewNop()), picker, repo, healthuc.New(memory.NewStore(), repo),
		DefaultLimits(), zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)

	first := decode[item.Item](t, do(t, r, http.MethodGet, "/api/v1/pick/today", ""))
	if rr := do(t, r, http.MethodPost, "/api/v1/catalog/reload", ""); rr.Code != http.StatusOK {
		t.Fatalf("reload status = %d", rr.Code)
	}
	second := decode[item.Item](t, do(t, r, http.MethodGet, "/api/v1/pick/today", ""))

	if second.ID != first.ID {
		t.Errorf("same-day pick changed after reload: %s(%s) -> %s(%s)", first.Name, first.ID, second.Name, second.ID)
	}
	if calls != 1 {
		t.Errorf("expected a single fresh pick, got %d", calls)
	}
}

func TestPickToday_EmptyCatalog(t *testing.T) {
	h := newTestRouter(t, nil)
	rr := do(t, h, http.MethodGet, "/api/v1/pick/today", "")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decode[ErrorResponse](t, rr); e.Code != ErrorResponseCodeEmptyCatalog {
		t.Errorf("code = %s", e.Code)
	}
}

func TestReloadCatalog(t *testing.T) {
	h := newTestRouter(t, testItems())
	rr := do(t, h, http.MethodPost, "/api/v1/catalog/reload", "")

	if resp := decode[ReloadResponse](t, rr); resp.Count != 3 {
		t.Errorf("count = %d", resp.Count)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, testItems(), "secret")
	rr := do(t, h, http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decode[HealthResponse](t, rr); resp.Status != "ok" || resp.Checks["database"] != "ok" {
		t.Errorf("health = %+v", resp)
	}
}

func TestAPIRequiresAuthWhenConfigured(t *testing.T) {
	h := newTestRouter(t, testItems(), "secret")

	if rr := do(t, h, http.MethodGet, "/api/v1/facets", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/facets", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("with token: status = %d", rr.Code)
	}
}

func abv(v float64) *float64 { return &v }
