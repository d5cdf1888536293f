// Package telemetry exposes Prometheus instrumentation for the
// decision pipeline on a private registry.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	blocksTotal     *prometheus.CounterVec
	riskScore       prometheus.Histogram
	requestDuration prometheus.Histogram
}

// New creates and registers the pipeline metrics under the given
// namespace (default "promptgate").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "promptgate"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Pipeline runs by terminal outcome.",
		}, []string{"outcome"}),
		blocksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Blocked runs by the stage that terminated them.",
		}, []string{"stage"}),
		riskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_risk_score",
			Help:      "Final risk score distribution.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end pipeline duration.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}

	registry.MustRegister(m.requestsTotal, m.blocksTotal, m.riskScore, m.requestDuration)
	return m
}

// ObserveRun records one terminated pipeline run. stage is empty
// unless the run was blocked.
func (m *Metrics) ObserveRun(outcome, stage string, riskScore int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	if stage != "" {
		m.blocksTotal.WithLabelValues(stage).Inc()
	}
	m.riskScore.Observe(float64(riskScore))
	m.requestDuration.Observe(duration.Seconds())
}

// Handler returns the scrape endpoint for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
