package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "forgeshift"

// Metrics holds all ForgeShift metric instruments.
type Metrics struct {
	APICalls           metric.Int64Counter
	APIRetries         metric.Int64Counter
	ProjectsDiscovered metric.Int64Counter
	ComponentsExported metric.Int64Counter
	ActionsExecuted    metric.Int64Counter
	ActionDuration     metric.Float64Histogram
	ProjectDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.APICalls, err = meter.Int64Counter("forgeshift.api.calls",
		metric.WithDescription("Number of forge API calls made"))
	if err != nil {
		return nil, err
	}

	m.APIRetries, err = meter.Int64Counter("forgeshift.api.retries",
		metric.WithDescription("Number of forge API calls retried"))
	if err != nil {
		return nil, err
	}

	m.ProjectsDiscovered, err = meter.Int64Counter("forgeshift.discovery.projects",
		metric.WithDescription("Number of projects discovered"))
	if err != nil {
		return nil, err
	}

	m.ComponentsExported, err = meter.Int64Counter("forgeshift.export.components",
		metric.WithDescription("Number of project components exported"))
	if err != nil {
		return nil, err
	}

	m.ActionsExecuted, err = meter.Int64Counter("forgeshift.apply.actions",
		metric.WithDescription("Number of plan actions executed"))
	if err != nil {
		return nil, err
	}

	m.ActionDuration, err = meter.Float64Histogram("forgeshift.apply.action_duration_seconds",
		metric.WithDescription("Plan action execution time in seconds"))
	if err != nil {
		return nil, err
	}

	m.ProjectDuration, err = meter.Float64Histogram("forgeshift.export.project_duration_seconds",
		metric.WithDescription("Per-project export time in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
