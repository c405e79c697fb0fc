// Package monitoring exposes the service's Prometheus metrics.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "networkpay_"

	resultSuccess = "success"
	resultError   = "error"
)

// Metrics holds every collector the service records into.
type Metrics struct {
	gatherer prometheus.Gatherer

	queriesTotal   *prometheus.CounterVec
	queryLatency   *prometheus.HistogramVec
	fallbacksTotal *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	exportsTotal   *prometheus.CounterVec
	warmerRuns     *prometheus.CounterVec
	warmerOwners   prometheus.Gauge
}

// NewMetrics registers the collectors on reg. Pass prometheus.NewRegistry()
// in tests to keep them isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_queries_total",
				Help: "Total pipeline queries by ledger and view",
			},
			[]string{"ledger", "view"},
		),
		queryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pipeline_latency_seconds",
				Help:    "Pipeline latency in seconds, fetch included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"view"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "source_fallbacks_total",
				Help: "Total fallbacks served by provider and reason",
			},
			[]string{"provider", "reason"},
		),
		fetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "source_fetch_latency_seconds",
				Help:    "Record fetch latency in seconds by provider and result",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "result"},
		),
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exports_total",
				Help: "Total history exports by format",
			},
			[]string{"format"},
		),
		warmerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "warmer_refreshes_total",
				Help: "Total snapshot refreshes by result",
			},
			[]string{"result"},
		),
		warmerOwners: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "warmer_active_owners",
				Help: "Owners refreshed by the last warmer run",
			},
		),
	}

	reg.MustRegister(
		m.queriesTotal,
		m.queryLatency,
		m.fallbacksTotal,
		m.fetchLatency,
		m.exportsTotal,
		m.warmerRuns,
		m.warmerOwners,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveQuery counts one pipeline query.
func (m *Metrics) ObserveQuery(ledger, view string, elapsed time.Duration) {
	m.queriesTotal.WithLabelValues(ledger, view).Inc()
	m.queryLatency.WithLabelValues(view).Observe(elapsed.Seconds())
}

// ObserveFetch records a provider call.
func (m *Metrics) ObserveFetch(provider string, elapsed time.Duration, err error) {
	m.fetchLatency.WithLabelValues(provider, resultLabel(err)).Observe(elapsed.Seconds())
}

// RecordFallback counts a response served by a fallback provider.
func (m *Metrics) RecordFallback(provider, reason string) {
	m.fallbacksTotal.WithLabelValues(provider, reason).Inc()
}

func (m *Metrics) RecordExport(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

// RecordRefresh counts one warmer refresh.
func (m *Metrics) RecordRefresh(err error) {
	m.warmerRuns.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) SetActiveOwners(n int) {
	m.warmerOwners.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
