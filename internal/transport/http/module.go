package http

import (
	"go.uber.org/fx"

	billingtransport "github.com/Additional-Code/fulfillment/internal/transport/http/billing"
	inventorytransport "github.com/Additional-Code/fulfillment/internal/transport/http/inventory"
	journaltransport "github.com/Additional-Code/fulfillment/internal/transport/http/journal"
	kitchentransport "github.com/Additional-Code/fulfillment/internal/transport/http/kitchen"
	ordertransport "github.com/Additional-Code/fulfillment/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	billingtransport.Module,
	inventorytransport.Module,
	kitchentransport.Module,
	journaltransport.Module,
)
