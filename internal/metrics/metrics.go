// Package metrics exposes Prometheus instrumentation for knowledge lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Searches counts retrieval calls.
	// Labels: collection, status (matches, no_matches, unavailable)
	Searches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testkb",
			Subsystem: "retriever",
			Name:      "searches_total",
			Help:      "Total number of knowledge searches by collection and outcome",
		},
		[]string{"collection", "status"},
	)

	// SearchDuration tracks how long searches take, embedding included.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "testkb",
			Subsystem: "retriever",
			Name:      "search_duration_seconds",
			Help:      "Duration of knowledge searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	// Stores counts store calls.
	// Labels: collection, result (success, error)
	Stores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testkb",
			Subsystem: "retriever",
			Name:      "stores_total",
			Help:      "Total number of knowledge records stored",
		},
		[]string{"collection", "result"},
	)

	// Tiers counts application knowledge lookups by decided tier.
	Tiers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "testkb",
			Subsystem: "retriever",
			Name:      "app_knowledge_tiers_total",
			Help:      "Application knowledge lookups by match tier",
		},
		[]string{"tier"},
	)

	// Records reports the last observed record count per collection.
	Records = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "testkb",
			Subsystem: "store",
			Name:      "records",
			Help:      "Number of records per knowledge collection",
		},
		[]string{"collection"},
	)
)

// Recorder is the instrumentation hook used by the retriever.
type Recorder interface {
	ObserveSearch(collection, status string, elapsed time.Duration)
	ObserveStore(collection string, err error)
	ObserveTier(tier string)
	SetRecords(collection string, n int)
}

// Prometheus records into the package-level collectors.
type Prometheus struct{}

func (Prometheus) ObserveSearch(collection, status string, elapsed time.Duration) {
	Searches.WithLabelValues(collection, status).Inc()
	SearchDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
}

func (Prometheus) ObserveStore(collection string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	Stores.WithLabelValues(collection, result).Inc()
}

func (Prometheus) ObserveTier(tier string) {
	Tiers.WithLabelValues(tier).Inc()
}

func (Prometheus) SetRecords(collection string, n int) {
	Records.WithLabelValues(collection).Set(float64(n))
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveSearch(string, string, time.Duration) {}
func (Nop) ObserveStore(string, error)                  {}
func (Nop) ObserveTier(string)                          {}
func (Nop) SetRecords(string, int)                      {}
