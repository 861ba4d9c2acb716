package metrics_collectors

import (
	"context"

	"github.com/benmeehan/gps-uplink-agent/internal/models"
)

// MetricCollector reads one host metric for the health heartbeat.
type MetricCollector interface {
	Name() string                                // Key of the metric in the heartbeat ("cpu", "memory")
	Collect(ctx context.Context) *float64        // Current value, nil when unavailable
	IsEnabled(config *models.MetricsConfig) bool // Whether the metric is switched on
	Unit() string                                // Unit of the value
}
