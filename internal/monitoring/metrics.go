package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ProcessedTotal *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	IngestDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		ProcessedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_urls_processed_total",
			Help: "The total number of sitemap URLs upserted",
		}, nil),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sitewatch_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g., 'fetch_failed', 'parse_failed', 'entry_upsert_failed', 'timeout'
		IngestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitewatch_ingest_duration_seconds",
			Help:    "Wall-clock duration of sitemap ingestion runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncProcessedTotal() {
	m.ProcessedTotal.WithLabelValues().Inc()
}

func (m *Metrics) IncErrorsTotal(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) ObserveIngestDuration(seconds float64) {
	m.IngestDuration.Observe(seconds)
}
