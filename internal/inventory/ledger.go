package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/journal"
)

// Module provides the ledger to Fx.
var Module = fx.Provide(New)

// Reservation failures. Reserve wraps them with the offending ingredient.
var (
	ErrMissingIngredient  = errors.New("ingredient not stocked")
	ErrExpiredIngredient  = errors.New("ingredient expired")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidReservation = errors.New("order has no menu item")
)

// RecipeSource resolves a dish to its recipe.
type RecipeSource interface {
	RecipeFor(dish string) (*entity.Recipe, bool)
}

// Reservation records what a successful Reserve deducted.
type Reservation struct {
	OrderID    int64
	Quantities map[string]int
}

// Empty reports whether the reservation deducted nothing.
func (r Reservation) Empty() bool {
	return len(r.Quantities) == 0
}

// Ledger tracks ingredient stock. All reads and writes go through one lock so
// multi-ingredient reservations are atomic.
type Ledger struct {
	recipes RecipeSource
	sink    journal.Sink
	now     func() time.Time

	mu               sync.Mutex
	items            map[string]*entity.InventoryItem
	thresholds       map[string]int
	reorder          map[string]int
	defaultThreshold int
	defaultReorder   int
}

// Params defines dependencies for constructing Ledger.
type Params struct {
	fx.In

	Config  config.Config
	Catalog catalog.Catalog
	Sink    journal.Sink
}

// New wires a Ledger from configuration.
func New(p Params) *Ledger {
	return NewLedger(p.Catalog, p.Sink, p.Config.Inventory.DefaultThreshold, p.Config.Inventory.DefaultReorderQty)
}

// NewLedger builds an empty ledger. recipes and sink may be nil.
func NewLedger(recipes RecipeSource, sink journal.Sink, defaultThreshold, defaultReorder int) *Ledger {
	if sink == nil {
		sink = journal.Discard
	}
	if defaultThreshold < 0 {
		defaultThreshold = 5
	}
	if defaultReorder <= 0 {
		defaultReorder = 20
	}
	return &Ledger{
		recipes:          recipes,
		sink:             sink,
		now:              time.Now,
		items:            make(map[string]*entity.InventoryItem),
		thresholds:       make(map[string]int),
		reorder:          make(map[string]int),
		defaultThreshold: defaultThreshold,
		defaultReorder:   defaultReorder,
	}
}

// AddOrRestock creates the item or adds to it. Expiry only ever moves later.
func (l *Ledger) AddOrRestock(name string, quantity int, expiry time.Time) {
	key := entity.NormalizeName(name)
	if key == "" {
		return
	}
	if quantity < 0 {
		quantity = 0
	}

	l.mu.Lock()
	item, ok := l.items[key]
	if !ok {
		item = &entity.InventoryItem{Name: key, Expiry: expiry}
		l.items[key] = item
	} else if expiry.After(item.Expiry) {
		item.Expiry = expiry
	}
	item.Quantity += quantity
	total := item.Quantity
	l.mu.Unlock()

	l.sink.Log(journal.TopicInventory, fmt.Sprintf("restocked %s +%d (now %d)", key, quantity, total))
}

// Requirements returns the scaled ingredient needs for an order: the item's own
// recipe, else the catalog recipe for the item, else one unit of the item itself.
func (l *Ledger) Requirements(order *entity.Order) map[string]int {
	recipe := order.Item.Recipe
	if recipe == nil && l.recipes != nil {
		recipe, _ = l.recipes.RecipeFor(order.Item.Key())
	}
	if recipe == nil {
		return map[string]int{order.Item.Key(): order.Quantity}
	}
	return recipe.Scaled(order.Quantity)
}

// ReserveForOrder deducts everything the order needs or nothing at all.
func (l *Ledger) ReserveForOrder(order *entity.Order) bool {
	_, err := l.Reserve(order)
	return err == nil
}

// Reserve is ReserveForOrder with the deducted quantities and the failure reason.
func (l *Ledger) Reserve(order *entity.Order) (Reservation, error) {
	if order == nil || order.Item == nil {
		return Reservation{}, ErrInvalidReservation
	}
	needs := l.Requirements(order)
	names := make([]string, 0, len(needs))
	for name := range needs {
		names = append(names, name)
	}
	sort.Strings(names)

	l.mu.Lock()
	now := l.now()
	for _, name := range names {
		item, ok := l.items[name]
		var err error
		switch {
		case !ok:
			err = ErrMissingIngredient
		case item.Expired(now):
			err = ErrExpiredIngredient
		case item.Quantity < needs[name]:
			err = ErrInsufficientStock
		}
		if err != nil {
			l.mu.Unlock()
			l.sink.Log(journal.TopicInventory, fmt.Sprintf("reservation failed for order %d: %s: %v", order.ID, name, err))
			return Reservation{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	for _, name := range names {
		l.items[name].Quantity -= needs[name]
	}
	l.mu.Unlock()

	l.sink.Log(journal.TopicInventory, fmt.Sprintf("reserved %v for order %d", needs, order.ID))
	return Reservation{OrderID: order.ID, Quantities: needs}, nil
}

// Release returns reserved quantities. Ingredients removed since the
// reservation (expired and purged) are not recreated.
func (l *Ledger) Release(res Reservation) {
	if res.Empty() {
		return
	}
	l.mu.Lock()
	for name, qty := range res.Quantities {
		if item, ok := l.items[name]; ok {
			item.Quantity += qty
		}
	}
	l.mu.Unlock()

	l.sink.Log(journal.TopicInventory, fmt.Sprintf("released %v from order %d", res.Quantities, res.OrderID))
}

// PurgeExpired removes every expired item and returns the removed names.
func (l *Ledger) PurgeExpired() []string {
	l.mu.Lock()
	now := l.now()
	var removed []string
	for name, item := range l.items {
		if item.Expired(now) {
			delete(l.items, name)
			removed = append(removed, name)
		}
	}
	l.mu.Unlock()

	sort.Strings(removed)
	for _, name := range removed {
		l.sink.Log(journal.TopicInventory, "purged expired "+name)
	}
	return removed
}

// LowStock returns items whose quantity is at or below their threshold.
func (l *Ledger) LowStock() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int)
	for name, item := range l.items {
		if item.Quantity <= l.thresholdLocked(name) {
			out[name] = item.Quantity
		}
	}
	return out
}

// SetThreshold overrides the low-stock threshold for one item.
func (l *Ledger) SetThreshold(name string, threshold int) {
	if threshold < 0 {
		threshold = 0
	}
	l.mu.Lock()
	l.thresholds[entity.NormalizeName(name)] = threshold
	l.mu.Unlock()
}

// SetReorderQuantity overrides how much the supply chain orders for one item.
func (l *Ledger) SetReorderQuantity(name string, quantity int) {
	if quantity <= 0 {
		return
	}
	l.mu.Lock()
	l.reorder[entity.NormalizeName(name)] = quantity
	l.mu.Unlock()
}

func (l *Ledger) Threshold(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.thresholdLocked(entity.NormalizeName(name))
}

func (l *Ledger) ReorderQuantity(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if qty, ok := l.reorder[entity.NormalizeName(name)]; ok {
		return qty
	}
	return l.defaultReorder
}

func (l *Ledger) thresholdLocked(key string) int {
	if t, ok := l.thresholds[key]; ok {
		return t
	}
	return l.defaultThreshold
}

// Quantity returns the current stock, zero for unknown items.
func (l *Ledger) Quantity(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if item, ok := l.items[entity.NormalizeName(name)]; ok {
		return item.Quantity
	}
	return 0
}

// StockLevel is a point-in-time view of one item.
type StockLevel struct {
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Expiry    time.Time `json:"expiry"`
	Expired   bool      `json:"expired"`
	Threshold int       `json:"threshold"`
	Reorder   int       `json:"reorder_quantity"`
	Low       bool      `json:"low"`
}

// Snapshot lists every item ordered by name.
func (l *Ledger) Snapshot() []StockLevel {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	out := make([]StockLevel, 0, len(l.items))
	for name, item := range l.items {
		threshold := l.thresholdLocked(name)
		reorder := l.defaultReorder
		if qty, ok := l.reorder[name]; ok {
			reorder = qty
		}
		out = append(out, StockLevel{
			Name:      name,
			Quantity:  item.Quantity,
			Expiry:    item.Expiry,
			Expired:   item.Expired(now),
			Threshold: threshold,
			Reorder:   reorder,
			Low:       item.Quantity <= threshold,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
