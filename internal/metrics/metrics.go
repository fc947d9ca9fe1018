// Package metrics exposes Prometheus collectors for engine runs and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "critpath"

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	projectsAnalyzed   *prometheus.CounterVec
	tasksScheduled     prometheus.Counter
	conflictsDetected  prometheus.Counter
	updatesSuggested   prometheus.Counter
	compressionRisks   prometheus.Counter
	infeasibleProjects prometheus.Counter
	httpRequests       *prometheus.CounterVec

	// Histograms
	analysisDuration *prometheus.HistogramVec
	relaxationPasses *prometheus.HistogramVec
	httpDuration     *prometheus.HistogramVec
}

// New creates all collectors and registers them on a fresh registry, along
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		projectsAnalyzed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "projects_analyzed_total",
				Help:      "Total number of projects scheduled, by result status",
			},
			[]string{"status"},
		),
		tasksScheduled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_scheduled_total",
				Help:      "Total number of tasks given early/late dates",
			},
		),
		conflictsDetected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_conflicts_total",
				Help:      "Total number of resource conflicts reported",
			},
		),
		updatesSuggested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "propagation_updates_total",
				Help:      "Total number of date updates suggested by propagation",
			},
		),
		compressionRisks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compression_risks_total",
				Help:      "Total number of compression risks flagged",
			},
		),
		infeasibleProjects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "infeasible_projects_total",
				Help:      "Projects whose late start fell before early start for some task",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by route and status code",
			},
			[]string{"route", "code"},
		),
		analysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Time spent scheduling one project",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"status"},
		),
		relaxationPasses: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relaxation_passes",
				Help:      "Passes needed by the forward and backward relaxation loops",
				Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
			},
			[]string{"direction"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.projectsAnalyzed,
		m.tasksScheduled,
		m.conflictsDetected,
		m.updatesSuggested,
		m.compressionRisks,
		m.infeasibleProjects,
		m.httpRequests,
		m.analysisDuration,
		m.relaxationPasses,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveProject records one per-project calculator run.
func (m *Metrics) ObserveProject(status string, tasks, forwardPasses, backwardPasses int, infeasible bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.projectsAnalyzed.WithLabelValues(status).Inc()
	m.tasksScheduled.Add(float64(tasks))
	m.analysisDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.relaxationPasses.WithLabelValues("forward").Observe(float64(forwardPasses))
	m.relaxationPasses.WithLabelValues("backward").Observe(float64(backwardPasses))
	if infeasible {
		m.infeasibleProjects.Inc()
	}
}

// AddConflicts counts reported resource conflicts.
func (m *Metrics) AddConflicts(n int) {
	if m == nil {
		return
	}
	m.conflictsDetected.Add(float64(n))
}

// AddUpdates counts suggested propagation updates.
func (m *Metrics) AddUpdates(n int) {
	if m == nil {
		return
	}
	m.updatesSuggested.Add(float64(n))
}

// AddRisks counts flagged compression risks.
func (m *Metrics) AddRisks(n int) {
	if m == nil {
		return
	}
	m.compressionRisks.Add(float64(n))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
