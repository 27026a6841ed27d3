package rank

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mixdex/internal/domain"
	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/query"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/result"
	"github.com/kailas-cloud/mixdex/internal/metrics"
	"github.com/kailas-cloud/mixdex/internal/tracing"
)

// Service ranks the loaded catalog against caller queries.
type Service struct {
	catalog CatalogReader
	logger  *zap.Logger
}

// New creates a ranking service.
func New(catalog CatalogReader, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Rank validates q and ranks the current catalog snapshot against it.
func (s *Service) Rank(ctx context.Context, q *query.Query) (_ []result.Result, err error) {
	ctx, end := tracing.StartSpan(ctx, "rank.Rank",
		attribute.Int("top_k", q.TopK),
		attribute.Bool("keywords", q.Keywords != ""),
	)
	defer func() { end(err) }()
	defer observe("query", time.Now(), &err)

	if err = q.Validate(); err != nil {
		return nil, domain.NewInvalidQuery(err)
	}

	items, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if len(q.Terms()) > 0 {
		metrics.RankKeywordRerankTotal.Inc()
	}

	results := Rank(items, q)
	metrics.RankResults.Observe(float64(len(results)))
	tracing.SetAttributes(ctx, attribute.Int("catalog_size", len(items)), attribute.Int("results", len(results)))

	s.logger.Debug("Ranked catalog",
		zap.Int("catalog_size", len(items)),
		zap.Int("top_k", q.TopK),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Similar ranks the catalog against the vectors of item id and returns up to
// topK other items. The seed itself is never part of the result.
func (s *Service) Similar(ctx context.Context, id string, topK int) (_ []result.Result, err error) {
	ctx, end := tracing.StartSpan(ctx, "rank.Similar",
		attribute.String("item_id", id),
		attribute.Int("top_k", topK),
	)
	defer func() { end(err) }()
	defer observe("similar", time.Now(), &err)

	if topK < 1 || topK > query.MaxTopK {
		return nil, domain.NewInvalidQuery(fmt.Errorf("top_k must be between 1 and %d, got %d", query.MaxTopK, topK))
	}

	seed, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %q: %w", id, err)
	}

	items, err := s.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	q := SimilarQuery(&seed, topK+1)
	ranked := Rank(items, &q)

	results := make([]result.Result, 0, topK)
	for _, r := range ranked {
		if r.ID == seed.ID {
			continue
		}
		if len(results) == topK {
			break
		}
		results = append(results, r)
	}
	metrics.RankResults.Observe(float64(len(results)))
	return results, nil
}

// SimilarQuery builds a query that copies the seed's vectors.
// Absent seed blocks stay absent in the query.
func SimilarQuery(seed *item.Item, topK int) query.Query {
	q := query.New()
	q.TopK = topK
	q.FlavorVector = cloneValues(seed.FlavorVector.Values())
	q.StyleVector = cloneValues(seed.StyleVector.Values())
	q.BaseVector = cloneValues(seed.BaseVector.Values())
	return q
}

func cloneValues(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}

func observe(kind string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	metrics.RankRequestsTotal.WithLabelValues(kind, status).Inc()
	metrics.RankDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
