package supply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
)

func fastSupply() config.Supply {
	return config.Supply{
		LeadMin:         10 * time.Millisecond,
		LeadMax:         20 * time.Millisecond,
		ShelfLife:       time.Hour,
		MonitorInterval: time.Hour,
	}
}

func TestDelayQueueReleasesEarliestFirst(t *testing.T) {
	q := NewDelayQueue()
	now := time.Now()
	q.Put(entity.SupplierOrder{Ingredient: "late", ReadyAt: now.Add(40 * time.Millisecond)})
	q.Put(entity.SupplierOrder{Ingredient: "early", ReadyAt: now.Add(10 * time.Millisecond)})

	first, err := q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "early", first.Ingredient)
	assert.False(t, time.Now().Before(first.ReadyAt))

	second, err := q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", second.Ingredient)
}

func TestDelayQueueWakesForEarlierInsert(t *testing.T) {
	q := NewDelayQueue()
	q.Put(entity.SupplierOrder{Ingredient: "slow", ReadyAt: time.Now().Add(time.Hour)})
	go func() {
		time.Sleep(5 * time.Millisecond)
		q.Put(entity.SupplierOrder{Ingredient: "fast", ReadyAt: time.Now()})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	o, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fast", o.Ingredient)
	assert.Equal(t, 1, q.Len())
}

func TestDelayQueueTakeCancels(t *testing.T) {
	q := NewDelayQueue()
	q.Put(entity.SupplierOrder{Ingredient: "x", ReadyAt: time.Now().Add(time.Hour)})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlaceOrderLeadTimeWithinWindow(t *testing.T) {
	c := NewChain(inventory.NewLedger(nil, nil, 5, 20), config.Supply{LeadMin: 2 * time.Second, LeadMax: 5 * time.Second}, nil, nil)
	for i := 0; i < 50; i++ {
		o := c.PlaceOrder("Cheese", 20)
		lead := o.ReadyAt.Sub(o.PlacedAt)
		assert.GreaterOrEqual(t, lead, 2*time.Second)
		assert.LessOrEqual(t, lead, 5*time.Second)
		assert.Equal(t, "cheese", o.Ingredient)
	}
	assert.Len(t, c.Pending(), 50)
}

func TestLowStockTriggersSingleRestock(t *testing.T) {
	ledger := inventory.NewLedger(nil, nil, 5, 20)
	ledger.AddOrRestock("cheese", 3, time.Now().Add(time.Hour))
	ledger.AddOrRestock("dough", 50, time.Now().Add(time.Hour))

	c := NewChain(ledger, fastSupply(), nil, nil)

	placed := c.RunCycle()
	require.Len(t, placed, 1)
	assert.Equal(t, "cheese", placed[0].Ingredient)
	assert.Equal(t, 20, placed[0].Quantity)

	assert.Empty(t, c.RunCycle(), "cheese already has an order on the way")
	assert.Len(t, c.Pending(), 1)

	c.Start()
	defer c.Stop(context.Background())
	require.Eventually(t, func() bool { return ledger.Quantity("cheese") == 23 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, c.Pending())

	assert.Empty(t, c.RunCycle(), "restocked above threshold")
}

func TestRunCyclePurgesExpiredStock(t *testing.T) {
	ledger := inventory.NewLedger(nil, nil, 5, 20)
	ledger.AddOrRestock("milk", 30, time.Now().Add(-time.Minute))
	c := NewChain(ledger, fastSupply(), nil, nil)

	assert.Empty(t, c.RunCycle())
	assert.Empty(t, ledger.Snapshot())
}

func TestChainStartStopIdempotent(t *testing.T) {
	c := NewChain(inventory.NewLedger(nil, nil, 5, 20), fastSupply(), nil, nil)
	c.Start()
	c.Start()
	require.NoError(t, c.Stop(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
}
