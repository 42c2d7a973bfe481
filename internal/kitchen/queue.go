package kitchen

import (
	"context"
	"sync"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// Queue is a FIFO of orders waiting for a station worker. A capacity of zero
// means unbounded; otherwise Put blocks while the queue is full.
type Queue struct {
	capacity int

	mu      sync.Mutex
	items   []*entity.Order
	changed chan struct{}
}

// NewQueue builds an empty queue.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{capacity: capacity, changed: make(chan struct{})}
}

// broadcast wakes every waiter. Callers hold mu.
func (q *Queue) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Put appends o, waiting for room when the queue is bounded.
func (q *Queue) Put(ctx context.Context, o *entity.Order) error {
	for {
		q.mu.Lock()
		if q.capacity == 0 || len(q.items) < q.capacity {
			q.items = append(q.items, o)
			q.broadcast()
			q.mu.Unlock()
			return nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Take removes the oldest order, waiting until one is available. A done ctx
// never pops an order, even when one is waiting.
func (q *Queue) Take(ctx context.Context) (*entity.Order, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			o := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.broadcast()
			q.mu.Unlock()
			return o, nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len is the number of waiting orders.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
