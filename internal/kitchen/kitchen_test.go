package kitchen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
)

type fakeInventory struct {
	fail      bool
	panicNext atomic.Bool
	reserved  atomic.Int64
	released  atomic.Int64
}

func (f *fakeInventory) Reserve(order *entity.Order) (inventory.Reservation, error) {
	if f.panicNext.CompareAndSwap(true, false) {
		panic("corrupted ledger")
	}
	if f.fail {
		return inventory.Reservation{}, inventory.ErrInsufficientStock
	}
	f.reserved.Add(1)
	return inventory.Reservation{OrderID: order.ID, Quantities: map[string]int{"x": order.Quantity}}, nil
}

func (f *fakeInventory) Release(inventory.Reservation) { f.released.Add(1) }

type fakeBilling struct {
	mu     sync.Mutex
	billed []int64
}

func (f *fakeBilling) AddCompletedOrder(order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.billed = append(f.billed, order.ID)
	return nil
}

func (f *fakeBilling) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.billed)
}

type statusRecorder struct {
	mu   sync.Mutex
	seen map[int64][]entity.Status
}

func (r *statusRecorder) Notify(order *entity.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[int64][]entity.Status)
	}
	r.seen[order.ID] = append(r.seen[order.ID], order.Status())
}

func (r *statusRecorder) statuses(id int64) []entity.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.Status(nil), r.seen[id]...)
}

var burger = &entity.MenuItem{ID: 3, Name: "Veg Burger", Price: decimal.NewFromInt(120), Category: "grill"}

func newOrder(t *testing.T, item *entity.MenuItem, qty int) *entity.Order {
	t.Helper()
	o, err := entity.NewOrder(1, item, qty)
	require.NoError(t, err)
	return o
}

func newTestStation(workers int, cook CookProfile, grace time.Duration, inv *fakeInventory, bill *fakeBilling, rec *statusRecorder) *Station {
	return NewStation(StationSpec{Name: "Grill", Category: entity.CategoryGrill, Workers: workers, Cook: cook}, 0, grace,
		Deps{Inventory: inv, Billing: bill, Tracker: rec})
}

func TestQueueIsFIFO(t *testing.T) {
	q := NewQueue(0)
	ctx := context.Background()
	a, b := newOrder(t, burger, 1), newOrder(t, burger, 1)
	require.NoError(t, q.Put(ctx, a))
	require.NoError(t, q.Put(ctx, b))

	got, err := q.Take(ctx)
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, 1, q.Len())
}

func TestBoundedQueueBlocksUntilSpace(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Put(ctx, newOrder(t, burger, 1)))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Put(short, newOrder(t, burger, 1)), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- q.Put(ctx, newOrder(t, burger, 2)) }()
	_, err := q.Take(ctx)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, 1, q.Len())
}

func TestQueueTakeIsCancelable(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := q.Take(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueTakeWithDoneContextLeavesOrders(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Put(context.Background(), newOrder(t, burger, 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Take(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, q.Len())
}

func TestCookProfileDuration(t *testing.T) {
	p := CookProfile{Base: time.Second, PerUnit: 700 * time.Millisecond}
	assert.Equal(t, 2400*time.Millisecond, p.Duration(2))
	assert.Equal(t, 1700*time.Millisecond, p.Duration(0))
}

func TestKeywordClassifier(t *testing.T) {
	k := NewKeywordClassifier()
	tests := []struct {
		item *entity.MenuItem
		want entity.Category
	}{
		{&entity.MenuItem{Name: "Anything", Category: "dessert"}, entity.CategoryDessert},
		{&entity.MenuItem{Name: "Pepperoni Pizza"}, entity.CategoryGrill},
		{&entity.MenuItem{Name: "Iced Tea"}, entity.CategoryColdBeverage},
		{&entity.MenuItem{Name: "Masala Tea"}, entity.CategoryHotBeverage},
		{&entity.MenuItem{Name: "Chocolate Cake"}, entity.CategoryDessert},
		{&entity.MenuItem{Name: "Mango Smoothie"}, entity.CategoryColdBeverage},
		{&entity.MenuItem{Name: "Mystery Plate", Category: "weird"}, entity.CategoryGrill},
		{nil, entity.CategoryGrill},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, k.Classify(tc.item))
	}
}

func TestStationCompletesAndBills(t *testing.T) {
	inv, bill, rec := &fakeInventory{}, &fakeBilling{}, &statusRecorder{}
	st := newTestStation(2, CookProfile{PerUnit: time.Millisecond}, time.Second, inv, bill, rec)
	st.Start()
	defer st.Stop()

	o := newOrder(t, burger, 2)
	require.NoError(t, st.AcceptOrder(context.Background(), o))

	require.Eventually(t, func() bool { return bill.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []entity.Status{entity.StatusAccepted, entity.StatusInProgress, entity.StatusCompleted}, rec.statuses(o.ID))
	assert.Equal(t, int64(1), st.Stats().Completed)
}

func TestStationRejectsWithoutBilling(t *testing.T) {
	inv, bill, rec := &fakeInventory{fail: true}, &fakeBilling{}, &statusRecorder{}
	st := newTestStation(1, CookProfile{}, time.Second, inv, bill, rec)
	st.Start()
	defer st.Stop()

	o := newOrder(t, burger, 1)
	require.NoError(t, st.AcceptOrder(context.Background(), o))

	require.Eventually(t, func() bool { return o.Status() == entity.StatusRejected }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []entity.Status{entity.StatusAccepted, entity.StatusRejected}, rec.statuses(o.ID))
	assert.Zero(t, bill.count())
	assert.Equal(t, int64(1), st.Stats().Rejected)
}

func TestStationLifecycleIsIdempotent(t *testing.T) {
	st := newTestStation(3, CookProfile{}, 0, &fakeInventory{}, &fakeBilling{}, &statusRecorder{})
	assert.Equal(t, StateStopped, st.State())

	st.Stop()
	st.Start()
	st.Start()
	assert.True(t, st.IsRunning())

	st.Stop()
	st.Stop()
	assert.Equal(t, StateStopped, st.State())
	assert.False(t, st.IsRunning())

	st.Start()
	assert.True(t, st.IsRunning())
	st.Stop()
}

func TestStoppedStationKeepsQueuedOrders(t *testing.T) {
	bill := &fakeBilling{}
	st := newTestStation(1, CookProfile{}, time.Second, &fakeInventory{}, bill, &statusRecorder{})
	require.NoError(t, st.AcceptOrder(context.Background(), newOrder(t, burger, 1)))
	assert.Equal(t, 1, st.QueueDepth())

	st.Start()
	defer st.Stop()
	assert.Eventually(t, func() bool { return bill.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopAbandonsCookAfterGraceAndReleases(t *testing.T) {
	inv, bill, rec := &fakeInventory{}, &fakeBilling{}, &statusRecorder{}
	st := newTestStation(1, CookProfile{Base: time.Hour}, 20*time.Millisecond, inv, bill, rec)
	st.Start()

	o := newOrder(t, burger, 1)
	require.NoError(t, st.AcceptOrder(context.Background(), o))
	require.Eventually(t, func() bool { return o.Status() == entity.StatusInProgress }, time.Second, 5*time.Millisecond)

	start := time.Now()
	st.Stop()
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, entity.StatusInProgress, o.Status())
	assert.Equal(t, int64(1), inv.released.Load())
	assert.Equal(t, int64(1), st.Stats().Abandoned)
	assert.Zero(t, bill.count())
}

func TestStopWaitsForCooksWithinGrace(t *testing.T) {
	inv, bill := &fakeInventory{}, &fakeBilling{}
	st := newTestStation(1, CookProfile{Base: 30 * time.Millisecond}, time.Second, inv, bill, &statusRecorder{})
	st.Start()

	o := newOrder(t, burger, 1)
	require.NoError(t, st.AcceptOrder(context.Background(), o))
	require.Eventually(t, func() bool { return o.Status() == entity.StatusInProgress }, time.Second, time.Millisecond)

	st.Stop()
	assert.Equal(t, entity.StatusCompleted, o.Status())
	assert.Equal(t, 1, bill.count())
	assert.Zero(t, inv.released.Load())
}

func TestWorkerPanicIsIsolated(t *testing.T) {
	inv, bill := &fakeInventory{}, &fakeBilling{}
	inv.panicNext.Store(true)
	st := newTestStation(2, CookProfile{}, time.Second, inv, bill, &statusRecorder{})
	st.Start()
	defer st.Stop()

	ctx := context.Background()
	require.NoError(t, st.AcceptOrder(ctx, newOrder(t, burger, 1)))
	require.NoError(t, st.AcceptOrder(ctx, newOrder(t, burger, 1)))

	assert.Eventually(t, func() bool { return bill.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), st.Stats().Crashed)
}

func TestCrashedWorkerIsReplacedAndRejectsHeldOrder(t *testing.T) {
	inv, bill, rec := &fakeInventory{}, &fakeBilling{}, &statusRecorder{}
	inv.panicNext.Store(true)
	st := newTestStation(1, CookProfile{}, time.Second, inv, bill, rec)
	st.Start()
	defer st.Stop()

	ctx := context.Background()
	held := newOrder(t, burger, 1)
	next := newOrder(t, burger, 1)
	require.NoError(t, st.AcceptOrder(ctx, held))
	require.NoError(t, st.AcceptOrder(ctx, next))

	require.Eventually(t, func() bool { return next.Status() == entity.StatusCompleted }, time.Second, 5*time.Millisecond)
	assert.Equal(t, entity.StatusRejected, held.Status())
	assert.Equal(t, []entity.Status{entity.StatusAccepted, entity.StatusRejected}, rec.statuses(held.ID))
	assert.True(t, st.IsRunning())

	stats := st.Stats()
	assert.Equal(t, int64(1), stats.Crashed)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, 1, bill.count())
}

func TestStopLeavesBacklogForRestart(t *testing.T) {
	inv, bill, rec := &fakeInventory{}, &fakeBilling{}, &statusRecorder{}
	st := newTestStation(1, CookProfile{Base: time.Hour}, 20*time.Millisecond, inv, bill, rec)
	st.Start()

	ctx := context.Background()
	cooking := newOrder(t, burger, 1)
	require.NoError(t, st.AcceptOrder(ctx, cooking))
	require.Eventually(t, func() bool { return cooking.Status() == entity.StatusInProgress }, time.Second, time.Millisecond)

	backlog := make([]*entity.Order, 5)
	for i := range backlog {
		backlog[i] = newOrder(t, burger, 1)
		require.NoError(t, st.AcceptOrder(ctx, backlog[i]))
	}

	st.Stop()
	assert.Equal(t, 5, st.QueueDepth())
	assert.Equal(t, int64(1), st.Stats().Abandoned)
	for _, o := range backlog {
		assert.Equal(t, entity.StatusNew, o.Status())
	}

	st.spec.Cook = CookProfile{}
	st.Start()
	defer st.Stop()
	require.Eventually(t, func() bool { return bill.count() == 5 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, st.QueueDepth())
	assert.Equal(t, entity.StatusInProgress, cooking.Status())
}

func TestStopWithinGraceBillsOnlyInFlight(t *testing.T) {
	bill := &fakeBilling{}
	st := newTestStation(1, CookProfile{Base: 20 * time.Millisecond}, time.Second, &fakeInventory{}, bill, &statusRecorder{})
	st.Start()

	ctx := context.Background()
	first := newOrder(t, burger, 1)
	require.NoError(t, st.AcceptOrder(ctx, first))
	require.Eventually(t, func() bool { return first.Status() == entity.StatusInProgress }, time.Second, time.Millisecond)
	for range 5 {
		require.NoError(t, st.AcceptOrder(ctx, newOrder(t, burger, 1)))
	}

	st.Stop()
	assert.Equal(t, 1, bill.count())
	assert.Equal(t, 5, st.QueueDepth())
}

func TestChefAssignmentDeduplicates(t *testing.T) {
	st := newTestStation(1, CookProfile{}, 0, &fakeInventory{}, &fakeBilling{}, &statusRecorder{})
	assert.True(t, st.AssignChef(entity.Chef{ID: 1, Name: "Asha"}))
	assert.False(t, st.AssignChef(entity.Chef{ID: 1, Name: "Asha again"}))
	assert.True(t, st.AssignChef(entity.Chef{ID: 2, Name: "Ravi"}))
	assert.Len(t, st.AssignedChefs(), 2)

	assert.True(t, st.UnassignChef(1))
	assert.False(t, st.UnassignChef(1))
	assert.Equal(t, []entity.Chef{{ID: 2, Name: "Ravi"}}, st.AssignedChefs())
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	var stations []*Station
	for _, c := range entity.Categories {
		stations = append(stations, NewStation(StationSpec{Category: c}, 0, 0, Deps{Inventory: &fakeInventory{}, Billing: &fakeBilling{}}))
	}
	r, err := NewRouter(NewKeywordClassifier(), stations, entity.CategoryGrill, nil, nil)
	require.NoError(t, err)
	return r
}

func TestRouterUsesDeclaredCategory(t *testing.T) {
	r := newTestRouter(t)
	cake := &entity.MenuItem{ID: 14, Name: "Chocolate Cake", Category: "dessert"}
	o := newOrder(t, cake, 1)

	require.NoError(t, r.Route(context.Background(), o))
	st, ok := r.Station(entity.CategoryDessert)
	require.True(t, ok)
	assert.Equal(t, 1, st.QueueDepth())
	assert.Equal(t, entity.CategoryDessert, o.Category())
}

func TestRouterClassifiesAndWritesBack(t *testing.T) {
	r := newTestRouter(t)
	lemonade := &entity.MenuItem{ID: 8, Name: "Lemonade"}
	o := newOrder(t, lemonade, 1)
	assert.Equal(t, entity.CategoryUnknown, o.Category())

	require.NoError(t, r.Route(context.Background(), o))
	assert.Equal(t, entity.CategoryColdBeverage, o.Category())
}

func TestRouterFallsBackWhenClassifierMisses(t *testing.T) {
	grill := NewStation(StationSpec{Category: entity.CategoryGrill}, 0, 0, Deps{})
	classifier := ClassifierFunc(func(*entity.MenuItem) entity.Category { return entity.CategoryDessert })
	r, err := NewRouter(classifier, []*Station{grill}, entity.CategoryGrill, nil, nil)
	require.NoError(t, err)

	o := newOrder(t, &entity.MenuItem{ID: 1, Name: "Cake"}, 1)
	require.NoError(t, r.Route(context.Background(), o))
	assert.Equal(t, entity.CategoryGrill, o.Category())
	assert.Equal(t, 1, grill.QueueDepth())
}

func TestNewRouterValidatesTable(t *testing.T) {
	a := NewStation(StationSpec{Category: entity.CategoryGrill}, 0, 0, Deps{})
	b := NewStation(StationSpec{Category: entity.CategoryGrill}, 0, 0, Deps{})
	_, err := NewRouter(nil, []*Station{a, b}, entity.CategoryGrill, nil, nil)
	assert.Error(t, err)

	_, err = NewRouter(nil, []*Station{a}, entity.CategoryDessert, nil, nil)
	assert.True(t, errors.Is(err, ErrNoFallback))
}

func TestRouterStartAllStopAll(t *testing.T) {
	r := newTestRouter(t)
	r.StartAll()
	for _, st := range r.Stations() {
		assert.True(t, st.IsRunning())
	}
	r.StopAll()
	assert.False(t, r.AnyRunning())
}
