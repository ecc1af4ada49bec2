// Package prometheus implements the component metrics interfaces on top of
// the global registry in pkg/metrics.
package prometheus

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// driveMetrics is the Prometheus implementation of drive.Metrics.
type driveMetrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	uploadsActive     prometheus.Gauge
	uploadsTotal      *prometheus.CounterVec
	uploadBytes       prometheus.Histogram
	uploadDuration    prometheus.Histogram
	shareCache        *prometheus.CounterVec
}

// NewDriveMetrics creates a Prometheus-backed drive.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewDriveMetrics() drive.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &driveMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "drive_operations_total",
				Help:      "Total number of drive operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Name:      "drive_operation_duration_milliseconds",
				Help:      "Duration of drive operations in milliseconds",
				Buckets: []float64{
					0.1, // in-memory lookups
					0.5,
					1,
					5,
					10, // single-row SQL
					50,
					100, // recursive deletes
					500,
					1000,
				},
			},
			[]string{"operation"},
		),
		uploadsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Name:      "uploads_active",
				Help:      "Number of uploads currently transferring",
			},
		),
		uploadsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "uploads_total",
				Help:      "Total number of finished uploads by outcome",
			},
			[]string{"outcome"},
		),
		uploadBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Name:      "upload_bytes",
				Help:      "Distribution of stored upload sizes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
			},
		),
		uploadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Name:      "upload_duration_seconds",
				Help:      "Duration of uploads from start to record insert",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
		),
		shareCache: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "share_cache_lookups_total",
				Help:      "Share lookups by cache result",
			},
			[]string{"result"}, // "hit", "miss"
		),
	}
}

func (m *driveMetrics) ObserveOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *driveMetrics) UploadStarted() {
	if m == nil {
		return
	}
	m.uploadsActive.Inc()
}

func (m *driveMetrics) UploadFinished(outcome string, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.uploadsActive.Dec()
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(duration.Seconds())
	if outcome == drive.OutcomeOK {
		m.uploadBytes.Observe(float64(bytes))
	}
}

func (m *driveMetrics) ShareCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.shareCache.WithLabelValues(result).Inc()
}
