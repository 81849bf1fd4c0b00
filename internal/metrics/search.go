package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/simdex/internal/domain/weights"
)

// Search and adaptation metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches by kind and final state",
		},
		[]string{"kind", "state"},
	)

	RankDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "Time spent scoring and sorting the corpus",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"kind"},
	)

	CorpusSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_items",
			Help:      "Items scored by the last search",
		},
		[]string{"kind"},
	)

	AdaptationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adaptations_total",
			Help:      "Relevance feedback adaptations by outcome",
		},
		[]string{"kind", "result"}, // applied / failed / conflict / rejected
	)

	WeightValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weight_value",
			Help:      "Current weight scalars",
		},
		[]string{"kind", "group", "index"}, // index is "" for the group weight
	)

	WeightRevision = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weight_revision",
			Help:      "Revision of the stored weight record",
		},
		[]string{"kind"},
	)

	ExtractorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_requests_total",
			Help:      "Calls to the feature extraction services",
		},
		[]string{"kind", "status"},
	)

	ExtractorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extractor_request_duration_seconds",
			Help:      "Feature extraction request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	FeatureCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_cache_total",
			Help:      "Feature cache lookups by result (hit, miss)",
		},
		[]string{"kind", "result"},
	)
)

var registerSearchOnce sync.Once

// RegisterSearchMetrics registers search, adaptation and extractor metrics.
// Safe to call more than once.
func RegisterSearchMetrics() {
	registerSearchOnce.Do(func() {
		prometheus.MustRegister(
			SearchesTotal, RankDuration, CorpusSize, AdaptationsTotal,
			WeightValue, WeightRevision, ExtractorRequestsTotal, ExtractorRequestDuration,
			FeatureCacheTotal,
		)
	})
}

// ObserveWeights publishes every scalar of s.
func ObserveWeights(s weights.State) {
	kind := string(s.Kind())
	for g, w := range s.Groups() {
		WeightValue.WithLabelValues(kind, g, "").Set(w)
	}
	for g, sw := range s.Subs() {
		for i, w := range sw {
			WeightValue.WithLabelValues(kind, g, strconv.Itoa(i)).Set(w)
		}
	}
	WeightRevision.WithLabelValues(kind).Set(float64(s.Revision()))
}
