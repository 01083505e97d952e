package telemetry

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/Preflight/internal/domain"
	"github.com/shaiso/Preflight/internal/engine"
)

// Metrics — Prometheus метрики Preflight.
//
// Реализует engine.Observer, poll.Observer и executor.Metrics.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	pollAttempts  *prometheus.CounterVec
	testCases     *prometheus.CounterVec
	taskDuration  *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в registerer.
// Если registerer == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "preflight_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"pipeline", "stage", "outcome"}),

		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "preflight_pipeline_runs_total",
			Help: "Finished pipeline runs by result.",
		}, []string{"pipeline", "result"}),

		pollAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "preflight_poll_attempts_total",
			Help: "Bounded poll check attempts by result.",
		}, []string{"poller", "result"}),

		testCases: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "preflight_test_cases_total",
			Help: "Executed test cases by reported status.",
		}, []string{"status"}),

		taskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "preflight_remote_task_duration_seconds",
			Help:    "Duration of remote browser tasks by local outcome.",
			Buckets: []float64{5, 15, 30, 60, 120, 180, 240, 300, 360},
		}, []string{"outcome"}),
	}
}

// StageFinished реализует engine.Observer.
func (m *Metrics) StageFinished(pipeline, stageID string, status engine.Status, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(pipeline, stageID, string(status)).Observe(elapsed.Seconds())
}

// RunFinished реализует engine.Observer.
func (m *Metrics) RunFinished(pipeline string, status engine.Status, _ time.Duration) {
	m.runs.WithLabelValues(pipeline, string(status)).Inc()
}

// AttemptObserved реализует poll.Observer.
//
// Имена поллеров задач содержат ID задачи ("task:<id>"), поэтому
// сворачиваются до "task", чтобы не раздувать кардинальность.
func (m *Metrics) AttemptObserved(poller, result string) {
	m.pollAttempts.WithLabelValues(pollerLabel(poller), result).Inc()
}

// TaskFinished реализует executor.Metrics.
func (m *Metrics) TaskFinished(outcome domain.TaskOutcome, elapsed time.Duration) {
	m.testCases.WithLabelValues(string(outcome.Status())).Inc()
	m.taskDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func pollerLabel(poller string) string {
	name, _, _ := strings.Cut(poller, ":")
	return name
}
