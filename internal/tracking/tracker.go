package tracking

import (
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// Module provides the tracker and the bus publisher subscribed to it.
var Module = fx.Options(
	fx.Provide(NewTracker, NewBusPublisher),
	fx.Invoke(registerBusPublisher),
)

// Listener observes status transitions. It is called synchronously on the
// goroutine that performed the transition and must return quickly.
type Listener func(entity.OrderSnapshot)

type subscription struct {
	id       uint64
	listener Listener
}

// Tracker fans status transitions out to listeners in registration order.
type Tracker struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewTracker builds an empty tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{logger: logger}
}

// Subscribe registers l and returns a function that removes it.
func (t *Tracker) Subscribe(l Listener) func() {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription{id: id, listener: l})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify snapshots the order and delivers it to every listener. A panicking
// listener is logged and skipped.
func (t *Tracker) Notify(order *entity.Order) {
	snap := order.Snapshot()

	t.mu.RLock()
	subs := t.subs
	t.mu.RUnlock()

	for _, s := range subs {
		t.deliver(s.listener, snap)
	}
}

func (t *Tracker) deliver(l Listener, snap entity.OrderSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("status listener panicked",
				zap.Int64("order_id", snap.ID),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	l(snap)
}

// Subscribers returns the number of registered listeners.
func (t *Tracker) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
