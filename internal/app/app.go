package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/fulfillment/internal/activity"
	"github.com/Additional-Code/fulfillment/internal/billing"
	"github.com/Additional-Code/fulfillment/internal/cache"
	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/database"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
	"github.com/Additional-Code/fulfillment/internal/logger"
	"github.com/Additional-Code/fulfillment/internal/messaging"
	"github.com/Additional-Code/fulfillment/internal/observability"
	repojournal "github.com/Additional-Code/fulfillment/internal/repository/journal"
	"github.com/Additional-Code/fulfillment/internal/seeder"
	grpcserver "github.com/Additional-Code/fulfillment/internal/server/grpc"
	httpserver "github.com/Additional-Code/fulfillment/internal/server/http"
	"github.com/Additional-Code/fulfillment/internal/supply"
	"github.com/Additional-Code/fulfillment/internal/tracking"
	transporthttp "github.com/Additional-Code/fulfillment/internal/transport/http"
	"github.com/Additional-Code/fulfillment/internal/worker"
	workerintake "github.com/Additional-Code/fulfillment/internal/worker/intake"
)

// Infra provides configuration, logging, telemetry and the external backends.
var Infra = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	cache.Module,
	database.Module,
	messaging.Module,
	repojournal.Module,
)

// Core runs the fulfillment pipeline: ledgers, stations, supply, idle
// monitor and the dispatch loop.
var Core = fx.Options(
	Infra,
	journal.Module,
	catalog.Module,
	inventory.Module,
	billing.Module,
	tracking.Module,
	seeder.Module,
	kitchen.Module,
	activity.Module,
	supply.Module,
	dispatch.Module,
	fx.Invoke(registerGauges),
)

// HTTP wires the HTTP and gRPC surfaces on top of the core.
var HTTP = fx.Options(
	Core,
	fx.Provide(func(m *activity.Monitor) httpserver.Health { return m }),
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker consumes intake commands from the message bus.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerintake.Module,
)

// Module is the default application wiring.
var Module = HTTP
