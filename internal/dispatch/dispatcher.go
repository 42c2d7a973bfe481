package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/activity"
	"github.com/Additional-Code/fulfillment/internal/cache"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
	"github.com/Additional-Code/fulfillment/internal/tracking"
)

// Module provides the global queue, intake and the dispatch loop.
var Module = fx.Options(
	fx.Provide(
		NewPriorityQueue,
		NewIntake,
		NewDispatcher,
		func(store cache.Store, cfg config.Config) *Idempotency {
			return NewIdempotency(store, cfg.Intake.IdempotencyTTL)
		},
		func(t *tracking.Tracker) Notifier { return t },
		func(m *activity.Monitor) ActivityNotifier { return m },
		func(r *kitchen.Router) Router { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, d *Dispatcher) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				d.Start()
				return nil
			},
			OnStop: d.Stop,
		})
	}),
)

// Router forwards an order to its station.
type Router interface {
	Route(ctx context.Context, order *entity.Order) error
}

// Dispatcher moves orders from the global queue to the router on one goroutine.
type Dispatcher struct {
	queue    *PriorityQueue
	router   Router
	activity ActivityNotifier
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// DispatcherParams defines dependencies for constructing Dispatcher.
type DispatcherParams struct {
	fx.In

	Queue    *PriorityQueue
	Router   Router
	Activity ActivityNotifier
	Logger   *zap.Logger
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(p DispatcherParams) *Dispatcher {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: p.Queue, router: p.Router, activity: p.Activity, logger: logger}
}

// Start launches the loop. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.run(ctx, d.done)
	d.logger.Info("dispatcher started")
}

// Stop ends the loop and waits for it.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		order, err := d.queue.Take(ctx)
		if err != nil {
			return
		}
		if d.activity != nil {
			d.activity.NotifyActivity()
		}
		if err := d.router.Route(ctx, order); err != nil {
			// Shutdown interrupted a blocked hand-off; keep the order for the next run.
			d.queue.Push(order)
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			d.logger.Error("route order failed", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}
}
