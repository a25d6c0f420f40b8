// Package metrics registers Prometheus instruments for the provider engine.
// The library registers on the default registerer but never starts an
// exporter; an embedding app decides whether and where to serve them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts provider resolutions by resulting tier and provider.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrirx",
		Subsystem: "llm",
		Name:      "resolutions_total",
		Help:      "Provider resolutions by device tier and committed provider",
	}, []string{"tier", "provider"})

	// Generations counts generation calls by provider and outcome.
	// Outcomes: success, error, rejected (precondition failure).
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrirx",
		Subsystem: "llm",
		Name:      "generations_total",
		Help:      "Generation calls by provider and outcome",
	}, []string{"provider", "outcome"})

	// GenerationSeconds tracks generation latency by provider.
	GenerationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nutrirx",
		Subsystem: "llm",
		Name:      "generation_seconds",
		Help:      "Generation latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider"})

	// DownloadBytes counts bytes written to model files.
	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nutrirx",
		Subsystem: "llm",
		Name:      "download_bytes_total",
		Help:      "Total model bytes downloaded",
	})

	// ActiveDownloads gauges in-flight model downloads.
	ActiveDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nutrirx",
		Subsystem: "llm",
		Name:      "active_downloads",
		Help:      "Model downloads currently in flight",
	})

	// DownloadFailures counts failed downloads by reason.
	// Reasons: network, integrity, cancelled.
	DownloadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutrirx",
		Subsystem: "llm",
		Name:      "download_failures_total",
		Help:      "Failed model downloads by reason",
	}, []string{"reason"})
)
