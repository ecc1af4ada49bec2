package api

import "github.com/marmos91/dittodrive/pkg/api/middleware"

// Metrics records HTTP traffic. It is implemented by
// pkg/metrics/prometheus.NewHTTPMetrics.
type Metrics = middleware.Metrics
