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
	ActiveSessions      prometheus.Gauge
	SessionEvents       *prometheus.CounterVec
	TurnsProcessed      *prometheus.CounterVec
	CrisisActivations   prometheus.Counter
	AuditEvents         *prometheus.CounterVec
	WSMessages          *prometheus.CounterVec
	TurnProcessSeconds  prometheus.Histogram
	DepthScores         prometheus.Histogram
	StoreCommitFailures prometheus.Counter

	turnStages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions in a non-terminal state.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		TurnsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_processed_total",
			Help:      "Processed turn inputs by response variant.",
		}, []string{"variant"}),
		CrisisActivations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crisis_activations_total",
			Help:      "Times the crisis protocol was activated.",
		}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_events_total",
			Help:      "Audit events recorded by event type.",
		}, []string{"event_type"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		TurnProcessSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_process_seconds",
			Help:      "End-to-end latency of one processed turn in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		DepthScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_depth_score",
			Help:      "Depth scores produced by the risk scorer.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		StoreCommitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_commit_failures_total",
			Help:      "Failed atomic turn commits against the storage backend.",
		}),
		turnStages: newTurnStageWindow(256),
	}
}

func (m *Metrics) ObserveTurnDuration(d time.Duration) {
	m.TurnProcessSeconds.Observe(d.Seconds())
}

func (m *Metrics) ObserveDepthScore(score float64) {
	m.DepthScores.Observe(score)
}

// ObserveTurnStage records one stage latency in the rolling window backing
// the perf snapshot endpoint.
func (m *Metrics) ObserveTurnStage(stage string, d time.Duration) {
	if m.turnStages == nil {
		return
	}
	m.turnStages.Observe(stage, float64(d.Microseconds())/1000.0)
}

func (m *Metrics) ObserveTurnIndicator(name string) {
	if m.turnStages == nil {
		return
	}
	m.turnStages.ObserveIndicator(name)
}

func (m *Metrics) TurnStageSnapshot() TurnStageSnapshot {
	if m.turnStages == nil {
		return TurnStageSnapshot{}
	}
	return m.turnStages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
