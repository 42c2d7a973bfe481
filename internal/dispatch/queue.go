package dispatch

import (
	"container/heap"
	"context"
	"sync"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// Less orders the global queue: higher priority first, then earlier creation,
// then lower id.
func Less(a, b *entity.Order) bool {
	pa, pb := a.Priority(), b.Priority()
	if pa != pb {
		return pa > pb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

type orderHeap []*entity.Order

func (h orderHeap) Len() int           { return len(h) }
func (h orderHeap) Less(i, j int) bool { return Less(h[i], h[j]) }
func (h orderHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *orderHeap) Push(x any)        { *h = append(*h, x.(*entity.Order)) }
func (h *orderHeap) Pop() any {
	old := *h
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return o
}

// PriorityQueue is the unbounded global intake queue.
type PriorityQueue struct {
	mu      sync.Mutex
	items   orderHeap
	changed chan struct{}
}

// NewPriorityQueue builds an empty queue.
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{changed: make(chan struct{})}
}

// Push never blocks.
func (q *PriorityQueue) Push(o *entity.Order) {
	q.mu.Lock()
	heap.Push(&q.items, o)
	close(q.changed)
	q.changed = make(chan struct{})
	q.mu.Unlock()
}

// Take removes the highest-ranked order, waiting until one is available.
func (q *PriorityQueue) Take(ctx context.Context) (*entity.Order, error) {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			o := heap.Pop(&q.items).(*entity.Order)
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

// Reprioritize changes the priority of a queued order and restores the heap.
// It reports false, leaving the order untouched, when o is not waiting here.
func (q *PriorityQueue) Reprioritize(o *entity.Order, priority int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, queued := range q.items {
		if queued == o {
			o.SetPriority(priority)
			heap.Fix(&q.items, i)
			return true
		}
	}
	return false
}

// Len is the number of waiting orders.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
