package services_test

import (
	"context"

	"github.com/benmeehan/gps-uplink-agent/internal/models"
)

type fixedCollector struct {
	name  string
	value float64
}

func (f *fixedCollector) Name() string { return f.name }

func (f *fixedCollector) Collect(context.Context) *float64 { return &f.value }

func (f *fixedCollector) IsEnabled(config *models.MetricsConfig) bool {
	return f.name != "cpu" || config.MonitorCPU
}

func (f *fixedCollector) Unit() string { return "percentage" }
