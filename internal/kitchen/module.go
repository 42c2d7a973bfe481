package kitchen

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/billing"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/internal/observability"
	"github.com/Additional-Code/fulfillment/internal/tracking"
)

// Module provides the router with one station per category and runs the
// stations for the lifetime of the app.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, router *Router) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				router.StartAll()
				return nil
			},
			OnStop: func(context.Context) error {
				router.StopAll()
				return nil
			},
		})
	}),
)

// Params defines dependencies for constructing the kitchen.
type Params struct {
	fx.In

	Config        config.Config
	Logger        *zap.Logger
	Sink          journal.Sink
	Inventory     *inventory.Ledger
	Billing       *billing.Ledger
	Tracker       *tracking.Tracker
	Observability *observability.Manager
}

// New builds every station from configuration and the router over them.
func New(p Params) (*Router, error) {
	metrics, err := NewMetrics(p.Observability.Meter("github.com/Additional-Code/fulfillment/kitchen"))
	if err != nil {
		return nil, err
	}
	deps := Deps{
		Inventory: p.Inventory,
		Billing:   p.Billing,
		Tracker:   p.Tracker,
		Sink:      p.Sink,
		Logger:    p.Logger,
		Metrics:   metrics,
	}

	specs := SpecsFromConfig(p.Config.Kitchen)
	stations := make([]*Station, 0, len(specs))
	for _, spec := range specs {
		stations = append(stations, NewStation(spec, p.Config.Kitchen.QueueCapacity, p.Config.Kitchen.GracePeriod, deps))
	}
	return NewRouter(NewKeywordClassifier(), stations, entity.CategoryGrill, p.Sink, p.Logger)
}
