package prometheus

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/blob"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// blobMetrics is the Prometheus implementation of blob.Metrics.
type blobMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

// NewBlobMetrics creates a Prometheus-backed blob.Metrics labelled with the
// store type ("s3", "fs", "memory").
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewBlobMetrics(storeType string) blob.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()
	labels := prometheus.Labels{"store": storeType}

	return &blobMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metrics.Namespace,
				Name:        "blob_operations_total",
				Help:        "Total number of blob store operations by operation type and status",
				ConstLabels: labels,
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   metrics.Namespace,
				Name:        "blob_operation_duration_milliseconds",
				Help:        "Duration of blob store operations in milliseconds",
				ConstLabels: labels,
				Buckets: []float64{
					10,    // 10ms - deletes, heads
					50,    // 50ms - small objects
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - medium objects
					5000,  // 5s - large objects
					10000, // 10s
					30000, // 30s - very large uploads
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metrics.Namespace,
				Name:        "blob_bytes_transferred_total",
				Help:        "Total bytes uploaded to the blob store",
				ConstLabels: labels,
			},
			[]string{"operation"},
		),
	}
}

func (m *blobMetrics) ObserveOperation(operation string, bytes int64, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
	if err == nil && bytes > 0 {
		m.bytesTransferred.WithLabelValues(operation).Add(float64(bytes))
	}
}
