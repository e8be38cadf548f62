// Package metrics turns workflow lifecycle events into Prometheus metrics
// and structured log lines.
package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/taleweave/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	registry     *prometheus.Registry
	nodeVisits   *prometheus.CounterVec
	nodeErrors   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleweave_node_visits_total",
				Help: "Total number of workflow node visits",
			},
			[]string{"workflow", "node_id", "node_type"},
		),
		nodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taleweave_node_errors_total",
				Help: "Total number of failed workflow node runs",
			},
			[]string{"workflow", "node_id"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taleweave_node_duration_seconds",
				Help:    "Duration of workflow node runs",
				Buckets: []float64{.001, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"workflow", "node_id"},
		),
	}
	m.registry.MustRegister(
		m.nodeVisits,
		m.nodeErrors,
		m.nodeDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks records node visits, failures and durations.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.Workflow, e.NodeID, e.NodeType).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.Workflow, e.NodeID).Observe(e.Duration.Seconds())
		},
		OnNodeError: func(ctx context.Context, e *domain.NodeEvent) {
			m.nodeErrors.WithLabelValues(e.Workflow, e.NodeID).Inc()
			m.nodeDuration.WithLabelValues(e.Workflow, e.NodeID).Observe(e.Duration.Seconds())
		},
	}
}

// LogHooks writes one log line per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("node_enter", "workflow", e.Workflow, "node_id", e.NodeID, "type", e.NodeType)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("node_leave", "workflow", e.Workflow, "node_id", e.NodeID, "duration", e.Duration)
		},
		OnNodeError: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Warn("node_error", "workflow", e.Workflow, "node_id", e.NodeID, "duration", e.Duration, "error", e.Err)
		},
	}
}
