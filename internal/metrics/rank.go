package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ranking, picker and catalog Prometheus metrics.
var (
	RankRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixdex",
			Name:      "rank_requests_total",
			Help:      "Total number of ranking calls",
		},
		[]string{"kind", "status"}, // kind: "query" / "similar"
	)

	RankDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mixdex",
			Name:      "rank_duration_seconds",
			Help:      "Ranking pipeline duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"kind"},
	)

	RankResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mixdex",
			Name:      "rank_results",
			Help:      "Number of results returned per ranking call",
			Buckets:   []float64{0, 1, 3, 6, 12, 25, 50, 100, 500},
		},
	)

	RankKeywordRerankTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mixdex",
			Name:      "rank_keyword_rerank_total",
			Help:      "Ranking calls that carried keywords",
		},
	)

	PickTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixdex",
			Name:      "pick_total",
			Help:      "Daily pick lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "empty"
	)

	PickStoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mixdex",
			Name:      "pick_store_errors_total",
			Help:      "Daily pick state store failures",
		},
		[]string{"op"}, // "load" / "save"
	)

	CatalogItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mixdex",
			Name:      "catalog_items",
			Help:      "Items in the current catalog snapshot",
		},
	)

	CatalogLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mixdex",
			Name:      "catalog_load_errors_total",
			Help:      "Catalog files skipped because they could not be decoded",
		},
	)
)

var registerOnce sync.Once

// Register registers HTTP, ranking, picker and catalog metrics on the default registry.
// Called from main; repeated calls are no-ops.
func Register() {
	registerOnce.Do(register)
}

func register() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(RankRequestsTotal)
	prometheus.MustRegister(RankDuration)
	prometheus.MustRegister(RankResults)
	prometheus.MustRegister(RankKeywordRerankTotal)
	prometheus.MustRegister(PickTotal)
	prometheus.MustRegister(PickStoreErrorsTotal)
	prometheus.MustRegister(CatalogItems)
	prometheus.MustRegister(CatalogLoadErrorsTotal)
}
