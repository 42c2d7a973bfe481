package supply

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

type orderHeap []entity.SupplierOrder

func (h orderHeap) Len() int           { return len(h) }
func (h orderHeap) Less(i, j int) bool { return h[i].ReadyAt.Before(h[j].ReadyAt) }
func (h orderHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *orderHeap) Push(x any)        { *h = append(*h, x.(entity.SupplierOrder)) }
func (h *orderHeap) Pop() any {
	old := *h
	n := len(old)
	o := old[n-1]
	*h = old[:n-1]
	return o
}

// DelayQueue releases supplier orders once their ReadyAt has passed, earliest first.
type DelayQueue struct {
	now func() time.Time

	mu      sync.Mutex
	items   orderHeap
	changed chan struct{}
}

// NewDelayQueue builds an empty queue.
func NewDelayQueue() *DelayQueue {
	return &DelayQueue{now: time.Now, changed: make(chan struct{})}
}

// Put schedules o.
func (q *DelayQueue) Put(o entity.SupplierOrder) {
	q.mu.Lock()
	heap.Push(&q.items, o)
	close(q.changed)
	q.changed = make(chan struct{})
	q.mu.Unlock()
}

// Take waits until the earliest order is due and removes it.
func (q *DelayQueue) Take(ctx context.Context) (entity.SupplierOrder, error) {
	for {
		q.mu.Lock()
		var timer *time.Timer
		var due <-chan time.Time
		if q.items.Len() > 0 {
			wait := q.items[0].ReadyAt.Sub(q.now())
			if wait <= 0 {
				o := heap.Pop(&q.items).(entity.SupplierOrder)
				q.mu.Unlock()
				return o, nil
			}
			timer = time.NewTimer(wait)
			due = timer.C
		}
		changed := q.changed
		q.mu.Unlock()

		select {
		case <-changed:
		case <-due:
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return entity.SupplierOrder{}, ctx.Err()
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Len is the number of scheduled orders.
func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Snapshot lists scheduled orders, earliest first.
func (q *DelayQueue) Snapshot() []entity.SupplierOrder {
	q.mu.Lock()
	out := append([]entity.SupplierOrder(nil), q.items...)
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ReadyAt.Before(out[j].ReadyAt) })
	return out
}
