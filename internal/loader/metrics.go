package loader

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks load progress. Register it on the registry served to scrapers.
type Metrics struct {
	filesProcessed *prometheus.CounterVec
	filesFailed    *prometheus.CounterVec
	batchesTotal   *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	cursorOffset   *prometheus.GaugeVec
}

// NewMetrics creates the loader metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simdex_loader",
			Name:      "files_processed_total",
			Help:      "Files ingested successfully.",
		}, []string{"kind"}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simdex_loader",
			Name:      "files_failed_total",
			Help:      "Files that could not be ingested.",
		}, []string{"kind", "reason"}),
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simdex_loader",
			Name:      "batches_total",
			Help:      "Ingest batches sent.",
		}, []string{"kind"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simdex_loader",
			Name:      "batch_duration_seconds",
			Help:      "Ingest batch duration, including feature extraction.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"kind"}),
		cursorOffset: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "simdex_loader",
			Name:      "cursor_offset",
			Help:      "Number of leading files fully loaded.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.filesProcessed, m.filesFailed, m.batchesTotal, m.batchDuration, m.cursorOffset)
	return m
}
