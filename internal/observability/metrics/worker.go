package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearclaim/evidence-engine/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	fileTotal     *prometheus.CounterVec
	fileDuration  *prometheus.HistogramVec
	fileRetries   *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchInFlight prometheus.Gauge
	queueLag      *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	fileTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ee",
			Subsystem: "worker",
			Name:      "file_process_total",
			Help:      "Total processed evidence files by media type and status.",
		},
		[]string{"service", "media_type", "status"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "worker",
			Name:      "file_process_duration_seconds",
			Help:      "Per-file processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	fileRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ee",
			Subsystem: "worker",
			Name:      "file_retries_total",
			Help:      "Total analyzer retries performed across files.",
		},
		[]string{"service"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "worker",
			Name:      "batch_process_duration_seconds",
			Help:      "End-to-end batch processing duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ee",
			Subsystem: "worker",
			Name:      "batch_in_flight",
			Help:      "Number of batches currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ee",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between batch submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(fileTotal, fileDuration, fileRetries, batchDuration, batchInFlight, queueLag)

	return &WorkerMetrics{
		registry:      registry,
		fileTotal:     fileTotal,
		fileDuration:  fileDuration,
		fileRetries:   fileRetries,
		batchDuration: batchDuration,
		batchInFlight: batchInFlight,
		queueLag:      queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(service string, duration time.Duration) {
	m.batchInFlight.Dec()
	m.batchDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveFile(service string, result domain.ProcessingResult) {
	mediaType := string(result.MediaType)
	if mediaType == "" {
		mediaType = "unknown"
	}
	m.fileTotal.WithLabelValues(service, mediaType, string(result.Status)).Inc()
	m.fileDuration.WithLabelValues(service, string(result.Status)).Observe(result.Elapsed.Seconds())
	if result.RetryCount > 0 {
		m.fileRetries.WithLabelValues(service).Add(float64(result.RetryCount))
	}
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
