package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/mixdex/internal/domain"
	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/metrics"
	"github.com/kailas-cloud/mixdex/internal/tracing"
)

// DefaultMaxParallel bounds concurrent file parsing when unset.
const DefaultMaxParallel = 8

// Config lists the catalog sources. Dirs are read in order; an item in a
// later dir replaces an earlier item with the same id.
type Config struct {
	Dirs        []string
	MaxParallel int
}

// Facets are the distinct labels present in the catalog, for building filters.
type Facets struct {
	Bases   []string `json:"bases"`
	Styles  []string `json:"styles"`
	Flavors []string `json:"flavors"`
}

// Repo is a read-only catalog loaded from files and cached in memory.
type Repo struct {
	dirs     []string
	parallel int
	logger   *zap.Logger

	mu     sync.RWMutex
	items  []item.Item
	byID   map[string]int
	loaded bool

	group singleflight.Group
}

// New creates a catalog repository. Nothing is read until the first access or Reload.
func New(cfg Config, logger *zap.Logger) *Repo {
	parallel := cfg.MaxParallel
	if parallel <= 0 {
		parallel = DefaultMaxParallel
	}
	return &Repo{
		dirs:     append([]string(nil), cfg.Dirs...),
		parallel: parallel,
		logger:   logger,
	}
}

// NewFromItems creates a repository over a fixed snapshot. Reload keeps the snapshot.
func NewFromItems(items []item.Item, logger *zap.Logger) *Repo {
	r := New(Config{}, logger)
	r.items, r.byID = merge([][]item.Item{items})
	r.loaded = true
	return r
}

// All returns the current snapshot. Callers must treat it as read-only.
func (r *Repo) All(ctx context.Context) ([]item.Item, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.items, nil
}

// Get returns the item with the given id.
func (r *Repo) Get(ctx context.Context, id string) (item.Item, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return item.Item{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return item.Item{}, domain.ErrItemNotFound
	}
	return r.items[i], nil
}

// Count returns the number of items in the snapshot.
func (r *Repo) Count(ctx context.Context) (int, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

// List returns one page of items in catalog order with an offset cursor.
// nextCursor is empty on the last page.
func (r *Repo) List(ctx context.Context, cursor string, limit int) (
	items []item.Item, nextCursor string, err error,
) {
	if limit <= 0 {
		return nil, "", fmt.Errorf("%w: limit must be positive", domain.ErrInvalidCursor)
	}
	offset := 0
	if cursor != "" {
		offset, err = strconv.Atoi(cursor)
		if err != nil || offset < 0 {
			return nil, "", fmt.Errorf("%w: %q", domain.ErrInvalidCursor, cursor)
		}
	}

	all, err := r.All(ctx)
	if err != nil {
		return nil, "", err
	}
	if offset >= len(all) {
		return []item.Item{}, "", nil
	}

	end := min(offset+limit, len(all))
	page := make([]item.Item, end-offset)
	copy(page, all[offset:end])
	if end < len(all) {
		nextCursor = strconv.Itoa(end)
	}
	return page, nextCursor, nil
}

// Facets returns the sorted distinct base, style and flavor labels.
// Labels are compared case-insensitively; the first spelling seen wins.
func (r *Repo) Facets(ctx context.Context) (Facets, error) {
	all, err := r.All(ctx)
	if err != nil {
		return Facets{}, err
	}

	bases, styles, flavors := newLabelSet(), newLabelSet(), newLabelSet()
	for i := range all {
		bases.add(all[i].Base)
		styles.add(all[i].Style)
		for _, f := range all[i].Flavor {
			flavors.add(f)
		}
	}
	return Facets{Bases: bases.sorted(), Styles: styles.sorted(), Flavors: flavors.sorted()}, nil
}

// Reload re-reads every source and swaps the snapshot. Concurrent calls share one load,
// which is not cancelled when the first caller goes away.
func (r *Repo) Reload(ctx context.Context) (int, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do("reload", func() (any, error) {
		return r.load(shared)
	})
	if err != nil {
		return 0, err //nolint:wrapcheck // load wraps
	}
	return v.(int), nil
}

func (r *Repo) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := r.Reload(ctx)
	return err
}

func (r *Repo) load(ctx context.Context) (_ int, err error) {
	ctx, end := tracing.StartSpan(ctx, "catalog.Load", attribute.Int("dirs", len(r.dirs)))
	defer func() { end(err) }()

	if len(r.dirs) == 0 {
		r.mu.RLock()
		n, loaded := len(r.items), r.loaded
		r.mu.RUnlock()
		if loaded {
			return n, nil
		}
	}

	paths, err := r.listFiles()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	parsed := make([][]item.Item, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // cancellation
			}
			parsed[i] = r.readFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	items, byID := merge(parsed)

	r.mu.Lock()
	r.items, r.byID, r.loaded = items, byID, true
	r.mu.Unlock()

	metrics.CatalogItems.Set(float64(len(items)))
	tracing.SetAttributes(ctx, attribute.Int("files", len(paths)), attribute.Int("items", len(items)))
	r.logger.Info("Catalog loaded",
		zap.Int("files", len(paths)),
		zap.Int("items", len(items)),
	)
	return len(items), nil
}

// listFiles walks every dir in order and returns supported files, sorted within each dir.
// Missing dirs are skipped.
func (r *Repo) listFiles() ([]string, error) {
	var out []string
	for _, dir := range r.dirs {
		info, err := os.Stat(dir)
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Catalog dir does not exist, skipping", zap.String("dir", dir))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dir)
		}

		// WalkDir visits entries in lexical order.
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && supported(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}
	return out, nil
}

// readFile decodes one file. Unreadable or undecodable files are logged and skipped.
func (r *Repo) readFile(path string) []item.Item {
	data, err := os.ReadFile(path) //nolint:gosec // paths come from configured catalog dirs
	if err == nil {
		var items []item.Item
		items, err = decode(path, data)
		if err == nil {
			return r.prepare(path, items)
		}
	}
	metrics.CatalogLoadErrorsTotal.Inc()
	r.logger.Warn("Skipping catalog file", zap.String("path", path), zap.Error(err))
	return nil
}

// prepare assigns missing ids and drops invalid items.
func (r *Repo) prepare(path string, items []item.Item) []item.Item {
	out := items[:0]
	for i, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			it.ID = generatedID(path, i)
		}
		if err := it.Validate(); err != nil {
			metrics.CatalogLoadErrorsTotal.Inc()
			r.logger.Warn("Skipping invalid catalog item", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, it)
	}
	return out
}

// merge flattens per-file results. A later item with a known id replaces the
// earlier one in place, so catalog order stays that of first appearance.
func merge(parts [][]item.Item) ([]item.Item, map[string]int) {
	var items []item.Item
	byID := make(map[string]int)
	for _, part := range parts {
		for _, it := range part {
			if i, ok := byID[it.ID]; ok {
				items[i] = it
				continue
			}
			byID[it.ID] = len(items)
			items = append(items, it)
		}
	}
	if items == nil {
		items = []item.Item{}
	}
	return items, byID
}

type labelSet struct {
	seen   map[string]struct{}
	labels []string
}

func newLabelSet() *labelSet {
	return &labelSet{seen: make(map[string]struct{})}
}

func (s *labelSet) add(label string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return
	}
	key := strings.ToLower(label)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.labels = append(s.labels, label)
}

func (s *labelSet) sorted() []string {
	out := append([]string{}, s.labels...)
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// generatedID derives an id from the file path and the item's position in it.
// It is stable while the file is unchanged.
func generatedID(path string, index int) string {
	name := filepath.ToSlash(filepath.Clean(path)) + "#" + strconv.Itoa(index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
