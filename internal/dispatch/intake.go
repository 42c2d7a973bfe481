package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

var intakeTracer = otel.Tracer("github.com/Additional-Code/fulfillment/dispatch")

// ActivityNotifier is told whenever work arrives.
type ActivityNotifier interface {
	NotifyActivity()
}

// Notifier broadcasts status changes.
type Notifier interface {
	Notify(order *entity.Order)
}

// PlaceRequest is the boundary input for a new order.
type PlaceRequest struct {
	TableNumber int
	MenuItemID  int
	Quantity    int
}

// Intake validates requests, builds orders and queues them for dispatch.
type Intake struct {
	catalog  catalog.Catalog
	queue    *PriorityQueue
	tracker  Notifier
	activity ActivityNotifier
	sink     journal.Sink
	logger   *zap.Logger

	mu     sync.RWMutex
	orders map[int64]*entity.Order
}

// IntakeParams defines dependencies for constructing Intake.
type IntakeParams struct {
	fx.In

	Catalog  catalog.Catalog
	Queue    *PriorityQueue
	Tracker  Notifier
	Activity ActivityNotifier
	Sink     journal.Sink
	Logger   *zap.Logger
}

// NewIntake wires an Intake.
func NewIntake(p IntakeParams) *Intake {
	sink := p.Sink
	if sink == nil {
		sink = journal.Discard
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Intake{
		catalog:  p.Catalog,
		queue:    p.Queue,
		tracker:  p.Tracker,
		activity: p.Activity,
		sink:     sink,
		logger:   logger,
		orders:   make(map[int64]*entity.Order),
	}
}

// Place rejects malformed requests before any order exists, then queues the new
// order and signals activity.
func (i *Intake) Place(ctx context.Context, req PlaceRequest) (*entity.Order, error) {
	_, span := intakeTracer.Start(ctx, "Intake.Place", trace.WithAttributes(
		attribute.Int("order.table", req.TableNumber),
		attribute.Int("order.menu_item_id", req.MenuItemID),
		attribute.Int("order.quantity", req.Quantity),
	))
	defer span.End()

	if req.TableNumber < 1 {
		return nil, errorbank.BadRequest("table number must be positive", errorbank.WithDetail("table_number", req.TableNumber))
	}
	if req.Quantity < 1 {
		return nil, errorbank.BadRequest("quantity must be at least 1", errorbank.WithDetail("quantity", req.Quantity))
	}
	item, ok := i.catalog.MenuItem(req.MenuItemID)
	if !ok {
		return nil, errorbank.NotFound("menu item not found", errorbank.WithDetail("menu_item_id", req.MenuItemID))
	}

	order, err := entity.NewOrder(req.TableNumber, item, req.Quantity)
	if err != nil {
		return nil, errorbank.BadRequest("invalid order", errorbank.WithCause(err))
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	i.mu.Lock()
	i.orders[order.ID] = order
	i.mu.Unlock()

	if i.tracker != nil {
		i.tracker.Notify(order)
	}
	i.sink.Log(journal.TopicOrder, fmt.Sprintf("order %d placed: table %d %s x%d", order.ID, order.TableNumber, item.Name, order.Quantity))

	i.queue.Push(order)
	if i.activity != nil {
		i.activity.NotifyActivity()
	}

	i.logger.Debug("order placed", zap.Int64("order_id", order.ID), zap.Int("table", order.TableNumber))
	return order, nil
}

// Reprioritize moves a placed order that is still waiting for dispatch.
func (i *Intake) Reprioritize(id int64, priority int) (*entity.Order, error) {
	order, ok := i.Order(id)
	if !ok {
		return nil, errorbank.NotFound("order not found", errorbank.WithDetail("id", id))
	}
	if !i.queue.Reprioritize(order, priority) {
		return nil, errorbank.Conflict("order already left the intake queue",
			errorbank.WithDetail("id", id), errorbank.WithDetail("status", order.Status().String()))
	}
	i.sink.Log(journal.TopicOrder, fmt.Sprintf("order %d reprioritized to %d", id, priority))
	return order, nil
}

// Order looks up a placed order.
func (i *Intake) Order(id int64) (*entity.Order, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	o, ok := i.orders[id]
	return o, ok
}

// Orders lists every placed order by id.
func (i *Intake) Orders() []*entity.Order {
	i.mu.RLock()
	out := make([]*entity.Order, 0, len(i.orders))
	for _, o := range i.orders {
		out = append(out, o)
	}
	i.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Pending is the global queue depth.
func (i *Intake) Pending() int {
	return i.queue.Len()
}
