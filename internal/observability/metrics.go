package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	TurnsTotal        *prometheus.CounterVec
	ClientFailures    *prometheus.CounterVec
	PrankCalls        prometheus.Counter
	ReportsDispatched prometheus.Counter
	TurnLatency       prometheus.Histogram

	turnWindow *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active triage sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Caller turns by stage and outcome status.",
		}, []string{"stage", "status"}),
		ClientFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_failures_total",
			Help:      "External collaborator failures by stage and kind.",
		}, []string{"stage", "kind"}),
		PrankCalls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prank_calls_total",
			Help:      "Turns flagged by the prank side-channel classifier.",
		}),
		ReportsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_dispatched_total",
			Help:      "Emergency reports forwarded to responders.",
		}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end controller turn latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		}),
		turnWindow: newTurnStageWindow(256),
	}
}

// ObserveTurn records one completed controller turn.
func (m *Metrics) ObserveTurn(stage, status string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.TurnsTotal.WithLabelValues(stage, status).Inc()
	m.TurnLatency.Observe(ms)
	m.turnWindow.Observe(stage, ms)
}

// ObserveIndicator bumps a named sliding-window event counter.
func (m *Metrics) ObserveIndicator(name string) {
	m.turnWindow.ObserveIndicator(name)
}

// SnapshotTurnStages returns the sliding-window latency snapshot served by
// the perf endpoint.
func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	return m.turnWindow.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
