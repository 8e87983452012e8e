// Package prom exports task and scope lifecycle metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NetPo4ki/go-coord/task"
)

const namespace = "coord"

// Outcome label values of coord_tasks_finished_total.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomePanicked = "panicked"
)

// Metrics implements scope.Observer with Prometheus collectors.
type Metrics struct {
	activeTasks   prometheus.Gauge
	tasksStarted  prometheus.Counter
	tasksFinished *prometheus.CounterVec
	taskDuration  prometheus.Histogram
	joinWait      prometheus.Histogram

	scopesCreated prometheus.Counter
	scopesJoined  *prometheus.CounterVec
	scopeWait     prometheus.Histogram
}

// New registers the collectors with reg and returns the observer. A nil reg
// falls back to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		activeTasks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_active",
			Help:      "Tasks currently running.",
		}),
		tasksStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Tasks that began executing.",
		}),
		tasksFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Tasks that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time from task start to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_join_wait_seconds",
			Help:      "Time a caller spent blocked in Join.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		scopesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_created_total",
			Help:      "Scopes created.",
		}),
		scopesJoined: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scopes_joined_total",
			Help:      "Scope Wait calls, by outcome.",
		}, []string{"outcome"}),
		scopeWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scope_wait_seconds",
			Help:      "Time spent in scope Wait.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

func (m *Metrics) ScopeCreated() {
	m.scopesCreated.Inc()
}

func (m *Metrics) ScopeJoined(wait time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.scopesJoined.WithLabelValues(outcome).Inc()
	m.scopeWait.Observe(wait.Seconds())
}

func (m *Metrics) TaskStarted(task.Info) {
	m.activeTasks.Inc()
	m.tasksStarted.Inc()
}

// TaskFinished decrements active tasks and records outcome and duration.
func (m *Metrics) TaskFinished(_ task.Info, dur time.Duration, err error, panicked bool) {
	m.activeTasks.Dec()
	outcome := OutcomeOK
	switch {
	case panicked:
		outcome = OutcomePanicked
	case err != nil:
		outcome = OutcomeError
	}
	m.tasksFinished.WithLabelValues(outcome).Inc()
	m.taskDuration.Observe(dur.Seconds())
}

func (m *Metrics) TaskJoined(_ task.Info, wait time.Duration) {
	m.joinWait.Observe(wait.Seconds())
}
