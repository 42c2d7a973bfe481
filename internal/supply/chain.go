package supply

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/journal"
)

// Module provides the supply chain and runs its loops with the app.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, c *Chain) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				c.Start()
				return nil
			},
			OnStop: c.Stop,
		})
	}),
)

// Stock is the slice of the inventory ledger the chain needs.
type Stock interface {
	AddOrRestock(name string, quantity int, expiry time.Time)
	PurgeExpired() []string
	LowStock() map[string]int
	ReorderQuantity(name string) int
}

// Chain turns low-stock signals into delayed restocks.
type Chain struct {
	stock  Stock
	queue  *DelayQueue
	cfg    config.Supply
	sink   journal.Sink
	logger *zap.Logger
	now    func() time.Time
	jitter func(n int64) int64

	mu          sync.Mutex
	outstanding map[string]int

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Params defines dependencies for constructing Chain.
type Params struct {
	fx.In

	Config    config.Config
	Inventory *inventory.Ledger
	Sink      journal.Sink
	Logger    *zap.Logger
}

// New wires a Chain from configuration.
func New(p Params) *Chain {
	return NewChain(p.Inventory, p.Config.Supply, p.Sink, p.Logger)
}

// NewChain builds a stopped chain.
func NewChain(stock Stock, cfg config.Supply, sink journal.Sink, logger *zap.Logger) *Chain {
	if sink == nil {
		sink = journal.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 3 * time.Second
	}
	if cfg.ShelfLife <= 0 {
		cfg.ShelfLife = 24 * time.Hour
	}
	if cfg.LeadMax < cfg.LeadMin {
		cfg.LeadMax = cfg.LeadMin
	}
	return &Chain{
		stock:       stock,
		queue:       NewDelayQueue(),
		cfg:         cfg,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
		jitter:      rand.Int64N,
		outstanding: make(map[string]int),
	}
}

func (c *Chain) leadTime() time.Duration {
	lead := c.cfg.LeadMin
	if span := c.cfg.LeadMax - c.cfg.LeadMin; span > 0 {
		lead += time.Duration(c.jitter(int64(span) + 1))
	}
	return lead
}

// PlaceOrder schedules a restock after a random lead time.
func (c *Chain) PlaceOrder(ingredient string, quantity int) entity.SupplierOrder {
	now := c.now()
	order := entity.SupplierOrder{
		Ingredient: entity.NormalizeName(ingredient),
		Quantity:   quantity,
		PlacedAt:   now,
		ReadyAt:    now.Add(c.leadTime()),
	}

	c.mu.Lock()
	c.outstanding[order.Ingredient]++
	c.mu.Unlock()
	c.queue.Put(order)

	c.sink.Log(journal.TopicSupply, fmt.Sprintf("ordered %d %s, due %s", quantity, order.Ingredient, order.ReadyAt.Format(time.RFC3339)))
	return order
}

// RunCycle purges expired stock and orders the reorder quantity of every low
// ingredient that has nothing on the way.
func (c *Chain) RunCycle() []entity.SupplierOrder {
	c.stock.PurgeExpired()
	low := c.stock.LowStock()

	names := make([]string, 0, len(low))
	for name := range low {
		names = append(names, name)
	}
	sort.Strings(names)

	var placed []entity.SupplierOrder
	for _, name := range names {
		if c.hasOutstanding(name) {
			continue
		}
		placed = append(placed, c.PlaceOrder(name, c.stock.ReorderQuantity(name)))
	}
	return placed
}

func (c *Chain) hasOutstanding(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding[name] > 0
}

// Pending lists undelivered supplier orders, earliest first.
func (c *Chain) Pending() []entity.SupplierOrder {
	return c.queue.Snapshot()
}

func (c *Chain) deliver(order entity.SupplierOrder) {
	c.stock.AddOrRestock(order.Ingredient, order.Quantity, c.now().Add(c.cfg.ShelfLife))

	c.mu.Lock()
	if c.outstanding[order.Ingredient] <= 1 {
		delete(c.outstanding, order.Ingredient)
	} else {
		c.outstanding[order.Ingredient]--
	}
	c.mu.Unlock()

	c.sink.Log(journal.TopicSupply, fmt.Sprintf("delivered %d %s", order.Quantity, order.Ingredient))
}

// Start launches the delivery and monitor loops.
func (c *Chain) Start() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(2)
	go c.deliveryLoop(ctx)
	go c.monitorLoop(ctx)
	c.logger.Info("supply chain started", zap.Duration("monitor_interval", c.cfg.MonitorInterval))
}

// Stop ends both loops. Scheduled orders stay queued.
func (c *Chain) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.lifecycle.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.logger.Info("supply chain stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chain) deliveryLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		order, err := c.queue.Take(ctx)
		if err != nil {
			return
		}
		c.deliver(order)
	}
}

func (c *Chain) monitorLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if placed := c.RunCycle(); len(placed) > 0 {
				c.logger.Debug("supply orders placed", zap.Int("count", len(placed)))
			}
		}
	}
}
