package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mixdex/internal/domain"
	"github.com/kailas-cloud/mixdex/internal/domain/item"
	"github.com/kailas-cloud/mixdex/internal/domain/rank/query"
	"github.com/kailas-cloud/mixdex/internal/logger"
	"github.com/kailas-cloud/mixdex/internal/repository/catalog"
	healthuc "github.com/kailas-cloud/mixdex/internal/usecase/health"
	rankuc "github.com/kailas-cloud/mixdex/internal/usecase/rank"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 20

// Catalog is the catalog surface exposed over HTTP.
type Catalog interface {
	All(ctx context.Context) ([]item.Item, error)
	Get(ctx context.Context, id string) (item.Item, error)
	List(ctx context.Context, cursor string, limit int) ([]item.Item, string, error)
	Facets(ctx context.Context) (catalog.Facets, error)
	Reload(ctx context.Context) (int, error)
}

// DailyPicker picks the item of the day.
type DailyPicker interface {
	Today(ctx context.Context, candidates []item.Item) (item.Item, bool)
}

// Limits are the request defaults and bounds.
type Limits struct {
	Weights         query.Weights
	DefaultTopK     int
	MaxTopK         int
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits mirrors the config defaults.
func DefaultLimits() Limits {
	return Limits{
		Weights:         query.DefaultWeights(),
		DefaultTopK:     query.DefaultTopK,
		MaxTopK:         query.MaxTopK,
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the mixdex HTTP API.
type Server struct {
	rank          *rankuc.Service
	picker        DailyPicker
	catalog       Catalog
	health        *healthuc.Service
	limits        Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	rank *rankuc.Service,
	picker DailyPicker,
	catalog Catalog,
	health *healthuc.Service,
	limits Limits,
	logger *zap.Logger,
) *Server {
	s := &Server{
		rank:    rank,
		picker:  picker,
		catalog: catalog,
		health:  health,
		limits:  limits,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		invalidQueryHandler,
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, ErrorResponseCodeItemNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrInvalidCursor, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrEmptyCatalog, http.StatusNotFound, ErrorResponseCodeEmptyCatalog),
		sentinelHandler(domain.ErrCatalogUnavailable,
			http.StatusServiceUnavailable, ErrorResponseCodeCatalogUnavailable),
	}
	return s
}

// Register mounts the API on r: /api/v1/* plus /health and /metrics.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/rank", s.Rank)
		r.Get("/items", s.ListItems)
		r.Get("/items/{id}", s.GetItem)
		r.Get("/items/{id}/similar", s.SimilarItems)
		r.Get("/facets", s.Facets)
		r.Get("/pick/today", s.PickToday)
		r.Post("/catalog/reload", s.ReloadCatalog)
	})
}

// Rank handles POST /api/v1/rank.
func (s *Server) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := rankQueryFromRequest(&req, s.limits.Weights, s.limits.DefaultTopK, s.limits.MaxTopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	results, err := s.rank.Rank(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RankResponse{Results: results})
}

// ListItems handles GET /api/v1/items.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	var limitPtr *int
	if err := runtime.BindQueryParameter("form", true, false, "cursor", r.URL.Query(), &cursor); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid cursor parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limitPtr); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid limit parameter")
		return
	}

	limit := s.limits.DefaultPageSize
	if limitPtr != nil {
		if *limitPtr < 1 || *limitPtr > s.limits.MaxPageSize {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
				fmt.Sprintf("limit must be between 1 and %d", s.limits.MaxPageSize))
			return
		}
		limit = *limitPtr
	}
	c := ""
	if cursor != nil {
		c = *cursor
	}

	items, next, err := s.catalog.List(r.Context(), c, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ItemListResponse{Items: items, HasMore: next != ""}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem handles GET /api/v1/items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r = r.WithContext(logger.With(r.Context(), zap.String("item_id", id)))

	it, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// SimilarItems handles GET /api/v1/items/{id}/similar.
func (s *Server) SimilarItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r = r.WithContext(logger.With(r.Context(), zap.String("item_id", id)))

	var topKPtr *int
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &topKPtr); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid top_k parameter")
		return
	}
	topK := s.limits.DefaultTopK
	if topKPtr != nil {
		if *topKPtr < 1 || *topKPtr > s.limits.MaxTopK {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
				fmt.Sprintf("top_k must be between 1 and %d", s.limits.MaxTopK))
			return
		}
		topK = *topKPtr
	}

	results, err := s.rank.Similar(r.Context(), id, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RankResponse{Results: results})
}

// Facets handles GET /api/v1/facets.
func (s *Server) Facets(w http.ResponseWriter, r *http.Request) {
	f, err := s.catalog.Facets(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// PickToday handles GET /api/v1/pick/today.
func (s *Server) PickToday(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.All(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	it, ok := s.picker.Today(r.Context(), items)
	if !ok {
		s.handleDomainError(w, r, domain.ErrEmptyCatalog)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// ReloadCatalog handles POST /api/v1/catalog/reload.
func (s *Server) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.Reload(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("Catalog reloaded", zap.Int("items", n))
	writeJSON(w, http.StatusOK, ReloadResponse{Count: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrItemNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidCursor,
		domain.ErrEmptyCatalog,
		domain.ErrCatalogUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidQueryHandler reports the validation reason, which is safe to expose.
func invalidQueryHandler(w http.ResponseWriter, err error, _ string) bool {
	var iqe *domain.InvalidQueryError
	if !errors.As(err, &iqe) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, iqe.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
