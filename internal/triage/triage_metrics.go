package triage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/servicesense/internal/retrieval"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal             *prometheus.CounterVec
	TriageDuration           prometheus.Histogram
	ClassificationConfidence prometheus.Histogram
	PredictedDays            prometheus.Histogram
	SourceFailuresTotal      *prometheus.CounterVec
	CacheHits                prometheus.Counter
	CacheMisses              prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicesense_triages_total",
			Help: "Total triage runs by classification method and prediction model version.",
		}, []string{"method", "model_version"}),
		TriageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "servicesense_triage_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}),
		ClassificationConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "servicesense_classification_confidence",
			Help:    "Confidence of the primary classification.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 .. 1.0
		}),
		PredictedDays: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "servicesense_predicted_resolution_days",
			Help:    "Predicted resolution time in days.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1 .. ~128 days
		}),
		SourceFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicesense_retrieval_source_failures_total",
			Help: "Retrieval source failures by source tag.",
		}, []string{"source"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicesense_cache_hits_total",
			Help: "Triage cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicesense_cache_misses_total",
			Help: "Triage cache misses.",
		}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.ClassificationConfidence,
		m.PredictedDays,
		m.SourceFailuresTotal,
		m.CacheHits,
		m.CacheMisses,
	)

	return m
}

// RetrievalHooks returns retrieval hooks that feed the failure counter.
func (m *Metrics) RetrievalHooks() retrieval.Hooks {
	return retrieval.Hooks{
		OnSourceFailure: func(source string) {
			m.SourceFailuresTotal.WithLabelValues(source).Inc()
		},
	}
}
