package entity

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var orderSeq atomic.Int64

// ErrInvalidOrder is returned when an order cannot be constructed from its inputs.
var ErrInvalidOrder = errors.New("invalid order")

// Order is one placed request for Quantity units of a menu item at a table.
// Identity and request fields are immutable; category, priority and status are
// guarded by the order's own lock.
type Order struct {
	ID          int64
	TableNumber int
	Item        *MenuItem
	Quantity    int
	CreatedAt   time.Time

	mu       sync.RWMutex
	category Category
	priority int
	status   Status
}

// NewOrder assigns the next process-wide id and stamps the creation time.
func NewOrder(table int, item *MenuItem, quantity int) (*Order, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: menu item is required", ErrInvalidOrder)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidOrder, quantity)
	}
	if table < 1 {
		return nil, fmt.Errorf("%w: table number must be positive, got %d", ErrInvalidOrder, table)
	}
	return &Order{
		ID:          orderSeq.Add(1),
		TableNumber: table,
		Item:        item,
		Quantity:    quantity,
		CreatedAt:   time.Now(),
		category:    ParseCategory(item.Category),
		priority:    quantity,
		status:      StatusNew,
	}, nil
}

// Status returns the current lifecycle status.
func (o *Order) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// SetStatus moves the order one step along the lifecycle.
func (o *Order) SetStatus(next Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.status.CanTransition(next) {
		return fmt.Errorf("%w: order %d %s -> %s", ErrInvalidTransition, o.ID, o.status, next)
	}
	o.status = next
	return nil
}

// Category returns the routing category; CategoryUnknown until classified.
func (o *Order) Category() Category {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.category
}

// SetCategory records the category the router resolved.
func (o *Order) SetCategory(c Category) {
	o.mu.Lock()
	o.category = c
	o.mu.Unlock()
}

// Priority is the intake ordering score; it defaults to the quantity.
func (o *Order) Priority() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.priority
}

// SetPriority overrides the intake ordering score. Only call it before the
// order is queued; a queued order is reprioritized through its queue.
func (o *Order) SetPriority(p int) {
	o.mu.Lock()
	o.priority = p
	o.mu.Unlock()
}

// Line is the billable line the order contributes to its table.
func (o *Order) Line() BillLine {
	return BillLine{ItemID: o.Item.ID, Name: o.Item.Name, UnitPrice: o.Item.Price, Quantity: o.Quantity}
}

// OrderSnapshot is an immutable view of an order handed to observers.
type OrderSnapshot struct {
	ID          int64     `json:"id"`
	TableNumber int       `json:"table_number"`
	ItemID      int       `json:"menu_item_id"`
	ItemName    string    `json:"menu_item"`
	Quantity    int       `json:"quantity"`
	Category    Category  `json:"category"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Snapshot captures the order's current state.
func (o *Order) Snapshot() OrderSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return OrderSnapshot{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		ItemID:      o.Item.ID,
		ItemName:    o.Item.Name,
		Quantity:    o.Quantity,
		Category:    o.category,
		Status:      o.status,
		CreatedAt:   o.CreatedAt,
		ObservedAt:  time.Now(),
	}
}

func (o *Order) String() string {
	return fmt.Sprintf("Order#%d table=%d %s x%d", o.ID, o.TableNumber, o.Item.Name, o.Quantity)
}
