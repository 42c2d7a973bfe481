package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/internal/messaging"
)

const maxBackoff = 30 * time.Second

// HandlerRegistration binds a bus topic to a handler.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Sink          journal.Sink `optional:"true"`
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Stats counts message outcomes since the engine was built.
type Stats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Poisoned  int64 `json:"poisoned"`
	Unrouted  int64 `json:"unrouted"`
}

// Engine consumes the intake topic with a fixed pool of consumers.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	sink     journal.Sink
	enabled  bool
	workers  int
	handlers map[string]messaging.Handler

	processed atomic.Int64
	failed    atomic.Int64
	poisoned  atomic.Int64
	unrouted  atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs the worker Engine.
func NewEngine(p Params) *Engine {
	handlers := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		handlers[r.Topic] = r.Handler
	}
	sink := p.Sink
	if sink == nil {
		sink = journal.Discard
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		client:   p.Client,
		logger:   logger,
		sink:     sink,
		enabled:  p.Config.Messaging.Enabled && p.Config.Messaging.Workers.Enabled,
		workers:  max(p.Config.Messaging.Workers.Concurrency, 1),
		handlers: handlers,
	}
}

// Module wires the engine into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return engine.Start() },
			OnStop:  engine.Stop,
		})
	}),
)

// Start launches the consumers. It is a no-op when disabled, without
// handlers, or already running.
func (e *Engine) Start() error {
	if !e.enabled {
		e.logger.Info("worker engine disabled")
		return nil
	}
	if len(e.handlers) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func(id int) {
			defer e.wg.Done()
			e.consumeLoop(runCtx, id)
		}(i)
	}

	e.logger.Info("worker engine started", zap.Int("workers", e.workers), zap.String("topic", e.client.Topic()))
	e.sink.Log(journal.TopicOrder, fmt.Sprintf("intake workers started (%d)", e.workers))
	return nil
}

// Stop cancels the consumers and waits for in-flight messages until ctx ends.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.logger.Info("worker engine stopped", zap.Any("stats", e.Stats()))
		return nil
	}
}

// Stats reports message outcome counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Processed: e.processed.Load(),
		Failed:    e.failed.Load(),
		Poisoned:  e.poisoned.Load(),
		Unrouted:  e.unrouted.Load(),
	}
}

// Dispatch routes one message to its topic handler. A panicking handler is
// reported as poison so the message is not redelivered forever.
func (e *Engine) Dispatch(ctx context.Context, msg messaging.Message) (err error) {
	handler, ok := e.handlers[msg.Topic]
	if !ok {
		e.unrouted.Add(1)
		e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("handler panicked", zap.String("topic", msg.Topic), zap.Any("panic", r))
			err = fmt.Errorf("%w: handler panic: %v", messaging.ErrPoison, r)
		}
		switch {
		case err == nil:
			e.processed.Add(1)
		case errors.Is(err, messaging.ErrPoison):
			e.poisoned.Add(1)
			e.sink.Log(journal.TopicOrder, fmt.Sprintf("discarded message on %s: %v", msg.Topic, err))
		default:
			e.failed.Add(1)
		}
	}()

	return handler(ctx, msg)
}

func (e *Engine) consumeLoop(ctx context.Context, workerID int) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			e.logger.Debug("processing message", zap.String("topic", msg.Topic), zap.Int("worker", workerID))
			return e.Dispatch(msgCtx, msg)
		})
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Int("worker", workerID), zap.Error(err))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
