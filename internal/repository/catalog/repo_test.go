package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mixdex/internal/domain"
	"github.com/kailas-cloud/mixdex/internal/domain/item"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const negroniJSON = `{
  "id": "negroni", "name": "Negroni", "base": "gin", "style": "stirred",
  "flavor": ["bitter", "herbal"], "abv": 0.24,
  "ingredients": [{"name": "Campari", "amount": 30, "unit": "ml"}],
  "flavor_vector": {"order": ["bitter", "sweet"], "vector": [1, 0.3], "version": 1}
}`

const sourListJSON = `[
  {"id": "daiquiri", "name": "Daiquiri", "base": "rum", "style": "sour", "flavor": ["sour"], "abv": 0.18},
  {"id": "whiskey-sour", "name": "Whiskey Sour", "base": "whiskey", "style": "Sour", "flavor": ["Sour", "sweet"], "abv": 0.16}
]`

const mojitoYAML = `
id: mojito
name: Mojito
base: rum
style: highball
flavor: [minty, fresh]
abv: 0.1
garnish: [mint sprig]
flavor_vector:
  order: [minty, sweet]
  vector: [1, 0.5]
`

const tomlList = `
[[items]]
id = "martini"
name = "Martini"
base = "gin"
style = "stirred"
flavor = ["dry"]
abv = 0.3

[[items]]
id = "gimlet"
name = "Gimlet"
base = "gin"
style = "sour"
abv = 0.22
`

func newTestRepo(t *testing.T, dirs ...string) *Repo {
	t.Helper()
	return New(Config{Dirs: dirs, MaxParallel: 2}, zap.NewNop())
}

func TestRepo_LoadsAllFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_negroni.json", negroniJSON)
	writeFile(t, dir, "b_sours.json", sourListJSON)
	writeFile(t, dir, "c/mojito.yaml", mojitoYAML)
	writeFile(t, dir, "d_stirred.toml", tomlList)
	writeFile(t, dir, "notes.txt", "not a catalog file")

	r := newTestRepo(t, dir)
	all, err := r.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, it := range all {
		got = append(got, it.ID)
	}
	want := []string{"negroni", "daiquiri", "whiskey-sour", "mojito", "martini", "gimlet"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}

	neg, err := r.Get(context.Background(), "negroni")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !neg.FlavorVector.Valid() || neg.FlavorVector.Vector[1] != 0.3 || neg.Ingredients[0].Unit != "ml" {
		t.Errorf("negroni decoded wrong: %+v", neg)
	}
	moj, _ := r.Get(context.Background(), "mojito")
	if moj.FlavorVector == nil || moj.FlavorVector.Order[0] != "minty" || moj.Garnish[0] != "mint sprig" {
		t.Errorf("mojito decoded wrong: %+v", moj)
	}
}

func TestRepo_SkipsBadFilesAndItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"id": "x", "name": `)
	writeFile(t, dir, "empty.yaml", ``)
	writeFile(t, dir, "nameless.json", `{"id": "nameless"}`)
	writeFile(t, dir, "ok.json", negroniJSON)

	n, err := newTestRepo(t, dir).Reload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestRepo_AssignsMissingIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "anon.json", `{"name": "House Punch", "base": "rum"}`)

	all, err := newTestRepo(t, dir).All(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("all = %v, %v", all, err)
	}
	if _, err := uuid.Parse(all[0].ID); err != nil {
		t.Errorf("expected generated uuid, got %q", all[0].ID)
	}
}

func TestRepo_GeneratedIDsStableAcrossReloads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "punches.json", `[
		{"name": "House Punch", "base": "rum"},
		{"name": "Garden Punch", "base": "gin"}
	]`)
	writeFile(t, dir, "spritz.json", `{"name": "Spritz", "base": "aperitif_liqueur"}`)

	ctx := context.Background()
	r := newTestRepo(t, dir)
	before, err := r.All(ctx)
	if err != nil || len(before) != 3 {
		t.Fatalf("all = %v, %v", before, err)
	}
	if before[0].ID == before[1].ID {
		t.Errorf("items in one file share id %q", before[0].ID)
	}

	if _, err := r.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	after, _ := r.All(ctx)
	fresh, _ := newTestRepo(t, dir).All(ctx)

	for i := range before {
		if after[i].ID != before[i].ID {
			t.Errorf("item %d: id changed across reload: %q -> %q", i, before[i].ID, after[i].ID)
		}
		if fresh[i].ID != before[i].ID {
			t.Errorf("item %d: id differs in a new repo: %q vs %q", i, before[i].ID, fresh[i].ID)
		}
	}
}

func TestRepo_ReloadSurvivesCancelledCaller(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "n.json", negroniJSON)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := newTestRepo(t, dir).Reload(ctx)
	if err != nil || n != 1 {
		t.Errorf("reload = %d, %v", n, err)
	}
}

func TestRepo_LaterDirReplacesInPlace(t *testing.T) {
	defaults, user := t.TempDir(), t.TempDir()
	writeFile(t, defaults, "sours.json", sourListJSON)
	writeFile(t, user, "mine.json", `{"id": "daiquiri", "name": "Hemingway Daiquiri", "base": "rum"}`)

	all, err := newTestRepo(t, defaults, user).All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "daiquiri" || all[0].Name != "Hemingway Daiquiri" {
		t.Errorf("unexpected catalog: %+v", all)
	}
}

func TestRepo_MissingDirIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "n.json", negroniJSON)

	n, err := newTestRepo(t, filepath.Join(dir, "nope"), dir).Count(context.Background())
	if err != nil || n != 1 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestRepo_FileAsDirIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "n.json", negroniJSON)

	_, err := newTestRepo(t, filepath.Join(dir, "n.json")).All(context.Background())
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestRepo_GetNotFound(t *testing.T) {
	r := NewFromItems([]item.Item{{ID: "a", Name: "A"}}, zap.NewNop())
	if _, err := r.Get(context.Background(), "b"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRepo_ReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "n.json", negroniJSON)
	r := newTestRepo(t, dir)
	ctx := context.Background()

	if n, _ := r.Count(ctx); n != 1 {
		t.Fatalf("count = %d", n)
	}
	writeFile(t, dir, "s.json", sourListJSON)
	if n, _ := r.Count(ctx); n != 1 {
		t.Errorf("snapshot should be cached until reload, count = %d", n)
	}
	if n, err := r.Reload(ctx); err != nil || n != 3 {
		t.Errorf("reload = %d, %v", n, err)
	}
}

func TestRepo_ConcurrentReloads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "s.json", sourListJSON)
	r := newTestRepo(t, dir)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if n, err := r.Reload(context.Background()); err != nil || n != 2 {
				t.Errorf("reload = %d, %v", n, err)
			}
		}()
	}
	wg.Wait()
}

func TestRepo_List(t *testing.T) {
	items := make([]item.Item, 5)
	for i := range items {
		items[i] = item.Item{ID: string(rune('a' + i)), Name: "n"}
	}
	r := NewFromItems(items, zap.NewNop())
	ctx := context.Background()

	page, next, err := r.List(ctx, "", 2)
	if err != nil || len(page) != 2 || page[0].ID != "a" || next != "2" {
		t.Fatalf("page 1 = %v, %q, %v", page, next, err)
	}
	page, next, _ = r.List(ctx, next, 2)
	if len(page) != 2 || page[0].ID != "c" || next != "4" {
		t.Fatalf("page 2 = %v, %q", page, next)
	}
	page, next, _ = r.List(ctx, next, 2)
	if len(page) != 1 || page[0].ID != "e" || next != "" {
		t.Fatalf("page 3 = %v, %q", page, next)
	}
	page, next, _ = r.List(ctx, "99", 2)
	if len(page) != 0 || next != "" {
		t.Errorf("past end = %v, %q", page, next)
	}

	for _, bad := range []string{"abc", "-1"} {
		if _, _, err := r.List(ctx, bad, 2); !errors.Is(err, domain.ErrInvalidCursor) {
			t.Errorf("cursor %q: expected ErrInvalidCursor, got %v", bad, err)
		}
	}
	if _, _, err := r.List(ctx, "", 0); !errors.Is(err, domain.ErrInvalidCursor) {
		t.Errorf("limit 0: expected ErrInvalidCursor, got %v", err)
	}
}

func TestRepo_Facets(t *testing.T) {
	r := NewFromItems([]item.Item{
		{ID: "1", Name: "a", Base: "rum", Style: "sour", Flavor: []string{"Sour", "sweet"}},
		{ID: "2", Name: "b", Base: "Gin", Style: "Sour", Flavor: []string{"sour", "herbal"}},
		{ID: "3", Name: "c", Base: "gin", Style: "", Flavor: nil},
	}, zap.NewNop())

	f, err := r.Facets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(f.Bases, []string{"Gin", "rum"}) {
		t.Errorf("bases = %v", f.Bases)
	}
	if !reflect.DeepEqual(f.Styles, []string{"sour"}) {
		t.Errorf("styles = %v", f.Styles)
	}
	if !reflect.DeepEqual(f.Flavors, []string{"herbal", "Sour", "sweet"}) {
		t.Errorf("flavors = %v", f.Flavors)
	}
}

func TestNewFromItems_ReloadKeepsSnapshot(t *testing.T) {
	r := NewFromItems([]item.Item{{ID: "a", Name: "A"}}, zap.NewNop())
	if n, err := r.Reload(context.Background()); err != nil || n != 1 {
		t.Errorf("reload = %d, %v", n, err)
	}
}
