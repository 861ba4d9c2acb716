package metrics_collectors

import "github.com/rs/zerolog"

// MetricsRegistry holds the collectors consulted for each heartbeat, in
// registration order.
type MetricsRegistry struct {
	collectors []MetricCollector
}

// NewMetricsRegistry creates an empty MetricsRegistry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{}
}

// NewDefaultRegistry returns a registry with the cpu and memory collectors.
func NewDefaultRegistry(logger zerolog.Logger) *MetricsRegistry {
	r := NewMetricsRegistry()
	r.Register(&CPUMetricCollector{Logger: logger})
	r.Register(&MemoryMetricCollector{Logger: logger})
	return r
}

// Register adds a collector. A collector with an already registered name
// replaces the earlier one.
func (r *MetricsRegistry) Register(collector MetricCollector) {
	for i, existing := range r.collectors {
		if existing.Name() == collector.Name() {
			r.collectors[i] = collector
			return
		}
	}
	r.collectors = append(r.collectors, collector)
}

// GetCollectors returns the registered collectors.
func (r *MetricsRegistry) GetCollectors() []MetricCollector {
	return r.collectors
}
