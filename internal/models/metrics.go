package models

// MetricsConfig selects the host metrics attached to heartbeats.
type MetricsConfig struct {
	MonitorCPU    bool `yaml:"monitor_cpu"`
	MonitorMemory bool `yaml:"monitor_memory"`
}
