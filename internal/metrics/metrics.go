// Package metrics exposes this guardian's operational state as
// Prometheus metrics: readiness, ceremony state, signing outcomes, and
// nonce cache occupancy.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	Ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guardian_ready",
		Help: "1 once this guardian has activated a key package, else 0",
	})

	Refreshing = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guardian_refreshing",
		Help: "1 while a refresh or redeal ceremony is in progress",
	})

	NonceCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "guardian_nonce_cache_size",
		Help: "Number of live (unconsumed, unexpired) signing sessions",
	})

	SigningOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_signing_outcomes_total",
		Help: "Round1/round2 outcomes by endpoint and result",
	}, []string{"endpoint", "result"})

	CeremonyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guardian_ceremony_duration_seconds",
		Help:    "Wall-clock duration of DKG/refresh/redeal ceremonies",
		Buckets: prometheus.DefBuckets,
	}, []string{"ceremony", "result"})

	HTTPCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_http_requests_total",
		Help: "HTTP requests served, by path and status code",
	}, []string{"path", "code"})
)

func init() {
	Registry.MustRegister(Ready, Refreshing, NonceCacheSize, SigningOutcomes, CeremonyDuration, HTTPCallCounter)
}

// Handler returns the /metrics HTTP handler for this guardian's registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
