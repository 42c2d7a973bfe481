package tracking

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/messaging"
)

var publisherTracer = otel.Tracer("github.com/Additional-Code/fulfillment/tracking")

// OrderStatusChangedEvent is published on the status topic for every transition.
type OrderStatusChangedEvent struct {
	EventID     string    `json:"event_id"`
	OrderID     int64     `json:"order_id"`
	TableNumber int       `json:"table_number"`
	MenuItemID  int       `json:"menu_item_id"`
	MenuItem    string    `json:"menu_item"`
	Quantity    int       `json:"quantity"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewStatusEvent converts a snapshot into its wire event.
func NewStatusEvent(snap entity.OrderSnapshot) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		EventID:     uuid.NewString(),
		OrderID:     snap.ID,
		TableNumber: snap.TableNumber,
		MenuItemID:  snap.ItemID,
		MenuItem:    snap.ItemName,
		Quantity:    snap.Quantity,
		Category:    snap.Category.String(),
		Status:      snap.Status.String(),
		OccurredAt:  snap.ObservedAt,
	}
}

// BusPublisher forwards transitions to the message bus off the caller's
// goroutine. When its buffer is full, events are dropped and counted.
type BusPublisher struct {
	client  messaging.Client
	topic   string
	logger  *zap.Logger
	enabled bool

	events  chan OrderStatusChangedEvent
	dropped atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PublisherParams defines dependencies for constructing BusPublisher.
type PublisherParams struct {
	fx.In

	Client messaging.Client
	Config config.Config
	Logger *zap.Logger
}

// NewBusPublisher builds a publisher for the configured status topic.
func NewBusPublisher(p PublisherParams) *BusPublisher {
	buffer := p.Config.Messaging.PublishBuffer
	if buffer <= 0 {
		buffer = 256
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusPublisher{
		client:  p.Client,
		topic:   p.Config.Messaging.Topics.Status,
		logger:  logger,
		enabled: p.Config.Messaging.Enabled,
		events:  make(chan OrderStatusChangedEvent, buffer),
	}
}

// Listen is the tracker listener.
func (b *BusPublisher) Listen(snap entity.OrderSnapshot) {
	if !b.enabled {
		return
	}
	select {
	case b.events <- NewStatusEvent(snap):
	default:
		b.dropped.Add(1)
	}
}

// Dropped counts events that did not fit the buffer.
func (b *BusPublisher) Dropped() int64 {
	return b.dropped.Load()
}

// Start launches the publishing goroutine.
func (b *BusPublisher) Start() {
	if !b.enabled || b.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go b.run(ctx)
}

// Stop publishes whatever is buffered and returns.
func (b *BusPublisher) Stop(ctx context.Context) error {
	if b.cancel == nil {
		return nil
	}
	b.cancel()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *BusPublisher) run(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.events:
			b.publish(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-b.events:
					b.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *BusPublisher) publish(ev OrderStatusChangedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ctx, span := publisherTracer.Start(ctx, "tracking.publish_status", trace.WithAttributes(
		attribute.String("messaging.topic", b.topic),
		attribute.Int64("order.id", ev.OrderID),
		attribute.String("order.status", ev.Status),
	))
	defer span.End()

	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("marshal status event", zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, b.topic, []byte(strconv.FormatInt(ev.OrderID, 10)), payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		b.logger.Warn("publish status event failed",
			zap.Int64("order_id", ev.OrderID),
			zap.String("status", ev.Status),
			zap.Error(err),
		)
	}
}

func registerBusPublisher(lc fx.Lifecycle, tracker *Tracker, publisher *BusPublisher) {
	var unsubscribe func()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			publisher.Start()
			unsubscribe = tracker.Subscribe(publisher.Listen)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if unsubscribe != nil {
				unsubscribe()
			}
			return publisher.Stop(ctx)
		},
	})
}
