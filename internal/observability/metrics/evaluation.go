package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EvaluationMetrics exports sweep progress. It plugs into the evaluator as
// a scheduling observer, so the core stays free of prometheus types.
type EvaluationMetrics struct {
	registry *prometheus.Registry

	questionsTotal    *prometheus.CounterVec
	questionDuration  *prometheus.HistogramVec
	questionsInFlight prometheus.Gauge
	checkpointsTotal  *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
}

func NewEvaluationMetrics(service string) *EvaluationMetrics {
	registry := prometheus.NewRegistry()

	questionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "eval",
			Name:      "questions_total",
			Help:      "Total evaluated questions by status.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	questionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "novelty",
			Subsystem: "eval",
			Name:      "question_duration_seconds",
			Help:      "Per-question evaluation duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	questionsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "novelty",
			Subsystem: "eval",
			Name:      "questions_in_flight",
			Help:      "Number of questions currently being evaluated.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	checkpointsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "eval",
			Name:      "checkpoints_total",
			Help:      "Total interim checkpoints written per configuration.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"config"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "eval",
			Name:      "runs_total",
			Help:      "Total completed configuration runs by status.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "novelty",
			Subsystem: "eval",
			Name:      "run_duration_seconds",
			Help:      "Configuration run duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
		[]string{"status"},
	)

	registry.MustRegister(
		questionsTotal,
		questionDuration,
		questionsInFlight,
		checkpointsTotal,
		runsTotal,
		runDuration,
	)

	return &EvaluationMetrics{
		registry:          registry,
		questionsTotal:    questionsTotal,
		questionDuration:  questionDuration,
		questionsInFlight: questionsInFlight,
		checkpointsTotal:  checkpointsTotal,
		runsTotal:         runsTotal,
		runDuration:       runDuration,
	}
}

func (m *EvaluationMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *EvaluationMetrics) QuestionStarted() {
	m.questionsInFlight.Inc()
}

func (m *EvaluationMetrics) QuestionEvaluated(duration time.Duration, failed bool) {
	m.questionsInFlight.Dec()

	status := "success"
	if failed {
		status = "failed"
	}
	m.questionsTotal.WithLabelValues(status).Inc()
	m.questionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *EvaluationMetrics) CheckpointWritten(key string, _ int) {
	m.checkpointsTotal.WithLabelValues(key).Inc()
}

func (m *EvaluationMetrics) RunCompleted(_ string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}
