package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/messaging"
	"github.com/Additional-Code/fulfillment/internal/worker"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/fulfillment/worker/intake")

// Module registers the intake command handler.
var Module = fx.Module("worker_intake",
	fx.Provide(
		fx.Annotate(
			NewPlaceOrderHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// PlaceOrderCommand is the bus payload asking for a new order.
type PlaceOrderCommand struct {
	RequestID   string `json:"request_id"`
	TableNumber int    `json:"table_number"`
	MenuItemID  int    `json:"menu_item_id"`
	Quantity    int    `json:"quantity"`
}

// Params defines dependencies for the handler.
type Params struct {
	fx.In

	Intake *dispatch.Intake
	Keys   *dispatch.Idempotency
	Config config.Config
	Logger *zap.Logger
}

// NewPlaceOrderHandler consumes PlaceOrderCommand messages from the intake topic.
func NewPlaceOrderHandler(p Params) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   p.Config.Messaging.Topics.Intake,
		Handler: Handle(p.Intake, p.Keys, p.Logger),
	}
}

// Handle decodes a command and places the order. Malformed or unplaceable
// commands are marked poison so the bus does not redeliver them.
func Handle(in *dispatch.Intake, keys *dispatch.Idempotency, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.intake.place_order", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var cmd PlaceOrderCommand
		if err := json.Unmarshal(msg.Value, &cmd); err != nil {
			logger.Error("failed to decode place order command", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return fmt.Errorf("%w: %v", messaging.ErrPoison, err)
		}
		if cmd.RequestID == "" {
			cmd.RequestID = string(msg.Key)
		}

		req := dispatch.PlaceRequest{TableNumber: cmd.TableNumber, MenuItemID: cmd.MenuItemID, Quantity: cmd.Quantity}
		order, replayed, err := keys.Place(ctx, in, cmd.RequestID, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "place failed")
			var appErr *errorbank.AppError
			if errors.As(err, &appErr) && appErr.Kind() != errorbank.KindInternal {
				logger.Warn("place order command rejected", zap.String("request_id", cmd.RequestID), zap.Error(err))
				return fmt.Errorf("%w: %v", messaging.ErrPoison, err)
			}
			return err
		}

		if order == nil {
			logger.Info("duplicate place order command skipped", zap.String("request_id", cmd.RequestID))
			return nil
		}
		logger.Info("order placed from bus",
			zap.Int64("order_id", order.ID),
			zap.Int("table", order.TableNumber),
			zap.Bool("replayed", replayed),
		)
		return nil
	}
}
