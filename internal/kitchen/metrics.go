package kitchen

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// Metrics holds the station instruments.
type Metrics struct {
	completed    metric.Int64Counter
	rejected     metric.Int64Counter
	abandoned    metric.Int64Counter
	cookDuration metric.Float64Histogram
}

// NewMetrics registers the station instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	completed, err := meter.Int64Counter("kitchen.orders.completed", metric.WithDescription("Orders cooked to completion"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("kitchen.orders.rejected", metric.WithDescription("Orders rejected for lack of ingredients"))
	if err != nil {
		return nil, err
	}
	abandoned, err := meter.Int64Counter("kitchen.orders.abandoned", metric.WithDescription("Orders interrupted by a station stop"))
	if err != nil {
		return nil, err
	}
	cookDuration, err := meter.Float64Histogram("kitchen.cook.duration",
		metric.WithDescription("Simulated cook time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{completed: completed, rejected: rejected, abandoned: abandoned, cookDuration: cookDuration}, nil
}

// NopMetrics records nothing.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("kitchen"))
	return m
}

func categoryAttr(c entity.Category) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("station.category", c.String()))
}

func (m *Metrics) orderCompleted(ctx context.Context, c entity.Category, cook time.Duration) {
	m.completed.Add(ctx, 1, categoryAttr(c))
	m.cookDuration.Record(ctx, float64(cook.Milliseconds()), categoryAttr(c))
}

func (m *Metrics) orderRejected(ctx context.Context, c entity.Category) {
	m.rejected.Add(ctx, 1, categoryAttr(c))
}

func (m *Metrics) orderAbandoned(ctx context.Context, c entity.Category) {
	m.abandoned.Add(ctx, 1, categoryAttr(c))
}
