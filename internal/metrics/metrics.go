// Package metrics exposes Prometheus counters for ticket operations,
// exports and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	ticketOps    *prometheus.CounterVec
	exportRuns   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Metrics with its own registry, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticketOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighbridge",
			Name:      "ticket_operations_total",
			Help:      "Ticket save and delete operations by outcome.",
		}, []string{"op", "result"}),
		exportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighbridge",
			Name:      "export_runs_total",
			Help:      "Ticket CSV export runs by outcome.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weighbridge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weighbridge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticketOps,
		m.exportRuns,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTicketOp counts one ticket operation.
func (m *Metrics) ObserveTicketOp(op string, err error) {
	m.ticketOps.WithLabelValues(op, result(err)).Inc()
}

// ObserveExport counts one export run.
func (m *Metrics) ObserveExport(err error) {
	m.exportRuns.WithLabelValues(result(err)).Inc()
}

// ObserveHTTP records a finished request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
