package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	batchSubmittedTotal *prometheus.CounterVec
	batchSubmittedFiles *prometheus.HistogramVec
	aggregateTotal      *prometheus.CounterVec
	aggregateConflicts  *prometheus.HistogramVec
	aggregateConfidence *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ee",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ee",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchSubmittedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ee",
			Subsystem: "ingest",
			Name:      "batches_submitted_total",
			Help:      "Total accepted evidence batches.",
		},
		[]string{"service"},
	)
	batchSubmittedFiles := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "ingest",
			Name:      "batch_files",
			Help:      "Distribution of files per submitted batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	aggregateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ee",
			Subsystem: "aggregate",
			Name:      "requests_total",
			Help:      "Total case aggregation requests served.",
		},
		[]string{"service"},
	)
	aggregateConflicts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "aggregate",
			Name:      "conflicts",
			Help:      "Distribution of field conflicts per case aggregate.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	aggregateConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "aggregate",
			Name:      "confidence",
			Help:      "Distribution of overall confidence per case aggregate.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		batchSubmittedTotal,
		batchSubmittedFiles,
		aggregateTotal,
		aggregateConflicts,
		aggregateConfidence,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		batchSubmittedTotal: batchSubmittedTotal,
		batchSubmittedFiles: batchSubmittedFiles,
		aggregateTotal:      aggregateTotal,
		aggregateConflicts:  aggregateConflicts,
		aggregateConfidence: aggregateConfidence,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/batches/"):
		return "/v1/batches/{batch_id}"
	case strings.HasPrefix(path, "/v1/cases/"):
		return "/v1/cases/{case_id}/aggregate"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordBatchSubmitted(service string, fileCount int) {
	m.batchSubmittedTotal.WithLabelValues(service).Inc()
	m.batchSubmittedFiles.WithLabelValues(service).Observe(float64(fileCount))
}

func (m *HTTPServerMetrics) RecordAggregate(service string, conflicts int, confidence float64) {
	m.aggregateTotal.WithLabelValues(service).Inc()
	m.aggregateConflicts.WithLabelValues(service).Observe(float64(conflicts))
	m.aggregateConfidence.WithLabelValues(service).Observe(confidence)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
