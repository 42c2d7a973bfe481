package kitchen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/journal"
)

var stationTracer = otel.Tracer("github.com/Additional-Code/fulfillment/kitchen")

// Reserver deducts and returns ingredients.
type Reserver interface {
	Reserve(order *entity.Order) (inventory.Reservation, error)
	Release(res inventory.Reservation)
}

// Biller accumulates completed orders.
type Biller interface {
	AddCompletedOrder(order *entity.Order) error
}

// Notifier broadcasts status changes.
type Notifier interface {
	Notify(order *entity.Order)
}

// Deps are the collaborators every station shares.
type Deps struct {
	Inventory Reserver
	Billing   Biller
	Tracker   Notifier
	Sink      journal.Sink
	Logger    *zap.Logger
	Metrics   *Metrics
}

// State is a step of the station lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// Stats is a point-in-time view of a station.
type Stats struct {
	Name       string          `json:"name"`
	Category   entity.Category `json:"category"`
	State      string          `json:"state"`
	Workers    int             `json:"workers"`
	QueueDepth int             `json:"queue_depth"`
	Completed  int64           `json:"completed"`
	Rejected   int64           `json:"rejected"`
	Abandoned  int64           `json:"abandoned"`
	Crashed    int64           `json:"crashed_workers"`
	Chefs      []entity.Chef   `json:"chefs"`
}

// Station owns one category's queue and worker pool.
type Station struct {
	spec  StationSpec
	queue *Queue
	grace time.Duration
	deps  Deps

	lifecycle    sync.Mutex
	state        atomic.Int32
	acceptCancel context.CancelFunc
	cookCancel   context.CancelFunc
	wg           sync.WaitGroup

	chefsMu sync.RWMutex
	chefs   []entity.Chef

	completed atomic.Int64
	rejected  atomic.Int64
	abandoned atomic.Int64
	crashed   atomic.Int64
}

// NewStation builds a stopped station.
func NewStation(spec StationSpec, queueCapacity int, grace time.Duration, deps Deps) *Station {
	if spec.Workers < 1 {
		spec.Workers = 1
	}
	if spec.Name == "" {
		spec.Name = spec.Category.String()
	}
	if deps.Sink == nil {
		deps.Sink = journal.Discard
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics()
	}
	if grace < 0 {
		grace = 0
	}
	return &Station{
		spec:  spec,
		queue: NewQueue(queueCapacity),
		grace: grace,
		deps:  deps,
	}
}

func (s *Station) Name() string              { return s.spec.Name }
func (s *Station) Category() entity.Category { return s.spec.Category }
func (s *Station) QueueDepth() int           { return s.queue.Len() }
func (s *Station) State() State              { return State(s.state.Load()) }
func (s *Station) IsRunning() bool           { return s.State() == StateRunning }

// AcceptOrder enqueues the order. It only blocks when the queue is bounded and
// full. A stopped station keeps the order until it is started again.
func (s *Station) AcceptOrder(ctx context.Context, order *entity.Order) error {
	if err := s.queue.Put(ctx, order); err != nil {
		return err
	}
	s.deps.Sink.Log(journal.TopicStation, fmt.Sprintf("%s queued order %d", s.spec.Name, order.ID))
	return nil
}

// Start spins up the workers. It is a no-op unless the station is stopped.
func (s *Station) Start() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() != StateStopped {
		return
	}
	s.state.Store(int32(StateStarting))

	acceptCtx, acceptCancel := context.WithCancel(context.Background())
	cookCtx, cookCancel := context.WithCancel(context.Background())
	s.acceptCancel = acceptCancel
	s.cookCancel = cookCancel

	for i := 0; i < s.spec.Workers; i++ {
		s.wg.Add(1)
		go s.work(acceptCtx, cookCtx, i)
	}

	s.state.Store(int32(StateRunning))
	s.deps.Logger.Info("station started", zap.String("station", s.spec.Name), zap.Int("workers", s.spec.Workers))
	s.deps.Sink.Log(journal.TopicStation, s.spec.Name+" started")
}

// Stop stops taking new orders at once and gives in-flight cooks the grace
// period to finish before interrupting them. Queued orders stay queued for the
// next Start. It is a no-op unless running.
func (s *Station) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() != StateRunning {
		return
	}
	s.state.Store(int32(StateStopping))
	s.acceptCancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.grace)
	select {
	case <-done:
		timer.Stop()
	case <-timer.C:
		s.cookCancel()
		<-done
	}
	s.cookCancel()

	s.state.Store(int32(StateStopped))
	s.deps.Logger.Info("station stopped", zap.String("station", s.spec.Name))
	s.deps.Sink.Log(journal.TopicStation, s.spec.Name+" stopped")
}

// inFlight is the order a worker currently holds and what it reserved for it.
type inFlight struct {
	order    *entity.Order
	res      inventory.Reservation
	reserved bool
}

func (s *Station) work(acceptCtx, cookCtx context.Context, id int) {
	defer s.wg.Done()

	var held *inFlight
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.crashed.Add(1)
		s.deps.Logger.Error("station worker crashed",
			zap.String("station", s.spec.Name),
			zap.Int("worker", id),
			zap.String("panic", fmt.Sprint(r)),
		)
		s.deps.Sink.Log(journal.TopicStation, fmt.Sprintf("%s worker %d crashed: %v", s.spec.Name, id, r))
		if held != nil {
			s.dropInFlight(held)
		}
		if acceptCtx.Err() == nil {
			s.wg.Add(1)
			go s.work(acceptCtx, cookCtx, id)
		}
	}()

	for acceptCtx.Err() == nil {
		order, err := s.queue.Take(acceptCtx)
		if err != nil {
			return
		}
		held = &inFlight{order: order}
		s.process(cookCtx, held)
		held = nil
	}
}

// dropInFlight settles the order a crashed worker was holding: its
// reservation goes back and an order that never started cooking is rejected.
func (s *Station) dropInFlight(f *inFlight) {
	if f.reserved {
		s.deps.Inventory.Release(f.res)
	}
	switch f.order.Status() {
	case entity.StatusNew:
		if !s.transition(f.order, entity.StatusAccepted) {
			return
		}
		fallthrough
	case entity.StatusAccepted:
		if s.transition(f.order, entity.StatusRejected) {
			s.rejected.Add(1)
			s.deps.Metrics.orderRejected(context.Background(), s.spec.Category)
		}
	case entity.StatusInProgress:
		s.abandoned.Add(1)
		s.deps.Metrics.orderAbandoned(context.Background(), s.spec.Category)
	}
}

func (s *Station) process(ctx context.Context, f *inFlight) {
	order := f.order
	ctx, span := stationTracer.Start(ctx, "Station.process", trace.WithAttributes(
		attribute.String("station.category", s.spec.Category.String()),
		attribute.Int64("order.id", order.ID),
		attribute.Int("order.quantity", order.Quantity),
	))
	defer span.End()

	if !s.transition(order, entity.StatusAccepted) {
		span.SetStatus(codes.Error, "invalid transition")
		return
	}

	res, err := s.deps.Inventory.Reserve(order)
	if err != nil {
		s.transition(order, entity.StatusRejected)
		s.rejected.Add(1)
		s.deps.Metrics.orderRejected(ctx, s.spec.Category)
		span.SetAttributes(attribute.String("order.rejection", err.Error()))
		return
	}
	f.res, f.reserved = res, true

	if !s.transition(order, entity.StatusInProgress) {
		f.reserved = false
		s.deps.Inventory.Release(res)
		span.SetStatus(codes.Error, "invalid transition")
		return
	}

	cook := s.spec.Cook.Duration(order.Quantity)
	timer := time.NewTimer(cook)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		f.reserved = false
		s.deps.Inventory.Release(res)
		s.abandoned.Add(1)
		s.deps.Metrics.orderAbandoned(context.Background(), s.spec.Category)
		s.deps.Logger.Warn("order abandoned mid-cook",
			zap.String("station", s.spec.Name),
			zap.Int64("order_id", order.ID),
		)
		s.deps.Sink.Log(journal.TopicOrder, fmt.Sprintf("order %d abandoned by %s, ingredients released", order.ID, s.spec.Name))
		span.SetStatus(codes.Error, "abandoned")
		return
	}

	if !s.transition(order, entity.StatusCompleted) {
		span.SetStatus(codes.Error, "invalid transition")
		return
	}
	f.reserved = false
	s.completed.Add(1)
	s.deps.Metrics.orderCompleted(ctx, s.spec.Category, cook)

	if err := s.deps.Billing.AddCompletedOrder(order); err != nil {
		span.RecordError(err)
		s.deps.Logger.Error("billing completed order failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// transition moves the order and broadcasts before returning.
func (s *Station) transition(order *entity.Order, next entity.Status) bool {
	if err := order.SetStatus(next); err != nil {
		s.deps.Logger.Error("order transition refused", zap.String("station", s.spec.Name), zap.Error(err))
		s.deps.Sink.Log(journal.TopicOrder, err.Error())
		return false
	}
	if s.deps.Tracker != nil {
		s.deps.Tracker.Notify(order)
	}
	s.deps.Sink.Log(journal.TopicOrder, fmt.Sprintf("order %d %s at %s", order.ID, next, s.spec.Name))
	return true
}

// AssignChef adds chef unless a chef with the same id is already assigned.
func (s *Station) AssignChef(chef entity.Chef) bool {
	s.chefsMu.Lock()
	defer s.chefsMu.Unlock()
	for _, c := range s.chefs {
		if c.ID == chef.ID {
			return false
		}
	}
	s.chefs = append(s.chefs, chef)
	s.deps.Sink.Log(journal.TopicStation, fmt.Sprintf("chef %s assigned to %s", chef.Name, s.spec.Name))
	return true
}

// UnassignChef removes the chef with the given id.
func (s *Station) UnassignChef(id int) bool {
	s.chefsMu.Lock()
	defer s.chefsMu.Unlock()
	for i, c := range s.chefs {
		if c.ID == id {
			s.chefs = append(s.chefs[:i], s.chefs[i+1:]...)
			s.deps.Sink.Log(journal.TopicStation, fmt.Sprintf("chef %s left %s", c.Name, s.spec.Name))
			return true
		}
	}
	return false
}

func (s *Station) AssignedChefs() []entity.Chef {
	s.chefsMu.RLock()
	defer s.chefsMu.RUnlock()
	return append([]entity.Chef(nil), s.chefs...)
}

func (s *Station) Stats() Stats {
	return Stats{
		Name:       s.spec.Name,
		Category:   s.spec.Category,
		State:      s.State().String(),
		Workers:    s.spec.Workers,
		QueueDepth: s.queue.Len(),
		Completed:  s.completed.Load(),
		Rejected:   s.rejected.Load(),
		Abandoned:  s.abandoned.Load(),
		Crashed:    s.crashed.Load(),
		Chefs:      s.AssignedChefs(),
	}
}
