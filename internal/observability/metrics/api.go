package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIMetrics covers the request-path HTTP surface plus novelty-check
// outcomes.
type APIMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	checksTotal     *prometheus.CounterVec
	retrievedPapers *prometheus.HistogramVec
	checkDuration   *prometheus.HistogramVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "novelty",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "novelty",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	checksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "novelty",
			Subsystem: "check",
			Name:      "requests_total",
			Help:      "Total completed novelty checks by verdict.",
		},
		[]string{"service", "verdict"},
	)
	retrievedPapers := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "novelty",
			Subsystem: "check",
			Name:      "retrieved_papers",
			Help:      "Distribution of retrieved papers per novelty check.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	checkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "novelty",
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Novelty check duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		checksTotal,
		retrievedPapers,
		checkDuration,
	)

	return &APIMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		checksTotal:     checksTotal,
		retrievedPapers: retrievedPapers,
		checkDuration:   checkDuration,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *APIMetrics) RecordCheck(service, verdict string, paperCount int, duration time.Duration) {
	if verdict == "" {
		verdict = "unknown"
	}
	m.checksTotal.WithLabelValues(service, verdict).Inc()
	m.retrievedPapers.WithLabelValues(service).Observe(float64(paperCount))
	m.checkDuration.WithLabelValues(service).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
