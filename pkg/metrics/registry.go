// Package metrics provides Prometheus metrics collection for dittodrive.
//
// All metrics are optional: if the registry is not initialized, the
// constructors in pkg/metrics/prometheus return nil and components skip
// recording entirely.
//
// Usage:
//
//	// Initialize global registry (typically in the start command)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	svc := drive.New(store, drive.Options{Metrics: prometheus.NewDriveMetrics()})
//
//	// Or pass nil for no-op behavior
//	svc := drive.New(store, drive.Options{})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every metric name.
const Namespace = "dittodrive"

var (
	// registry is written once by InitRegistry and read afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry with the Go
// runtime and process collectors.
//
// It's safe to call multiple times; subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}),
		)
		registry = reg
	})
}

// GetRegistry returns the global Prometheus registry, or nil if
// InitRegistry has not been called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
