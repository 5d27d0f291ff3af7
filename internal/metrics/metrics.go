// Package metrics exposes orchestrator counters on a private Prometheus
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postpilot"

// Metrics holds the collectors observed by the executor and coordinator.
type Metrics struct {
	registry *prometheus.Registry

	tasksExecuted  *prometheus.CounterVec
	taskDuration   *prometheus.HistogramVec
	tasksCreated   *prometheus.CounterVec
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	stageFailures  *prometheus.CounterVec
	postsPublished *prometheus.CounterVec
	lastCycle      prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tasksExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "tasks_executed_total",
			Help:      "Tasks driven to a terminal state, by type and status.",
		}, []string{"type", "status"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "task_duration_seconds",
			Help:      "Task execution time in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"type"}),
		tasksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_created_total",
			Help:      "Tasks created, by source.",
		}, []string{"source"}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "cycles_total",
			Help:      "Orchestration cycles, by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a cycle in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "stage_failures_total",
			Help:      "Cycle stages that failed, by stage.",
		}, []string{"stage"}),
		postsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "posts_total",
			Help:      "Auto-publish outcomes, by result.",
		}, []string{"result"}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle finished.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tasksExecuted,
		m.taskDuration,
		m.tasksCreated,
		m.cyclesTotal,
		m.cycleDuration,
		m.stageFailures,
		m.postsPublished,
		m.lastCycle,
	)
	return m
}

// Registry returns the registry collectors are registered on.
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
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTask records one executed task.
func (m *Metrics) ObserveTask(taskType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasksExecuted.WithLabelValues(taskType, status).Inc()
	m.taskDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
}

// TasksCreated counts n tasks created by source.
func (m *Metrics) TasksCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tasksCreated.WithLabelValues(source).Add(float64(n))
}

// Publishes records an auto-publish sweep tally.
func (m *Metrics) Publishes(published, failed, skipped int) {
	if m == nil {
		return
	}
	m.postsPublished.WithLabelValues("published").Add(float64(published))
	m.postsPublished.WithLabelValues("failed").Add(float64(failed))
	m.postsPublished.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveCycle records a finished cycle and its failed stages.
func (m *Metrics) ObserveCycle(finished time.Time, elapsed time.Duration, failedStages []string) {
	if m == nil {
		return
	}
	outcome := "ok"
	if len(failedStages) > 0 {
		outcome = "degraded"
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
	for _, name := range failedStages {
		m.stageFailures.WithLabelValues(name).Inc()
	}
	m.lastCycle.Set(float64(finished.Unix()))
}
