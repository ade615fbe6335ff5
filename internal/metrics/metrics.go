// Package metrics exposes pipeline and HTTP counters on a dedicated
// Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "whitedwarf"

// Stage outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector owns the registry and every metric on it.
type Collector struct {
	registry *prometheus.Registry

	stageRuns       *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	exportArtifacts *prometheus.CounterVec
	poolQueued      prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, with the Go runtime
// and process collectors alongside.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		stageRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stage_runs_total",
			Help:      "Pipeline stage executions by outcome.",
		}, []string{"stage", "status"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage wall time.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 300},
		}, []string{"stage"}),
		exportArtifacts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "export_artifacts_total",
			Help:      "Export artifacts by format and outcome.",
		}, []string{"format", "status"}),
		poolQueued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pool_queued_tasks",
			Help:      "Tasks waiting for a pipeline worker.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveStage records one stage run.
func (c *Collector) ObserveStage(stage string, d time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.stageRuns.WithLabelValues(stage, status).Inc()
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveArtifact records one export artifact outcome.
func (c *Collector) ObserveArtifact(format string, available bool) {
	status := "available"
	if !available {
		status = "unavailable"
	}
	c.exportArtifacts.WithLabelValues(format, status).Inc()
}

// SetQueued reports the pool backlog.
func (c *Collector) SetQueued(n int) {
	c.poolQueued.Set(float64(n))
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, code int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
