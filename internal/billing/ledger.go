package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/journal"
)

// Module provides the ledger to Fx.
var Module = fx.Provide(New)

var (
	ErrNotCompleted    = errors.New("only completed orders can be billed")
	ErrNoBill          = errors.New("no bill for table")
	ErrAlreadyPaid     = errors.New("bill already paid")
	ErrPaymentDeclined = errors.New("payment declined")
)

type tab struct {
	mu      sync.Mutex
	current *entity.Bill
	history []entity.Bill
}

// Ledger keeps one open tab per table. Each table is guarded by its own lock so
// billing different tables never contends.
type Ledger struct {
	sink        journal.Sink
	now         func() time.Time
	declineRate float64

	mu   sync.RWMutex
	tabs map[int]*tab
}

// Params defines dependencies for constructing Ledger.
type Params struct {
	fx.In

	Config config.Config
	Sink   journal.Sink
}

// New wires a Ledger from configuration.
func New(p Params) *Ledger {
	l := NewLedger(p.Sink)
	l.declineRate = p.Config.Billing.CardDeclineRate
	return l
}

// NewLedger builds an empty ledger. sink may be nil.
func NewLedger(sink journal.Sink) *Ledger {
	if sink == nil {
		sink = journal.Discard
	}
	return &Ledger{
		sink: sink,
		now:  time.Now,
		tabs: make(map[int]*tab),
	}
}

// Method resolves a payment method using the configured card decline rate.
func (l *Ledger) Method(name string) (PaymentMethod, error) {
	return MethodByName(name, l.declineRate)
}

func (l *Ledger) tabFor(table int, create bool) *tab {
	l.mu.RLock()
	t, ok := l.tabs[table]
	l.mu.RUnlock()
	if ok || !create {
		return t
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok = l.tabs[table]; !ok {
		t = &tab{}
		l.tabs[table] = t
	}
	return t
}

// AddCompletedOrder adds the order's line to its table's open bill, opening one
// if needed.
func (l *Ledger) AddCompletedOrder(order *entity.Order) error {
	if order == nil || order.Status() != entity.StatusCompleted {
		return ErrNotCompleted
	}
	line := order.Line()
	t := l.tabFor(order.TableNumber, true)

	t.mu.Lock()
	if t.current == nil {
		t.current = &entity.Bill{TableNumber: order.TableNumber, OpenedAt: l.now()}
	}
	bill := t.current
	merged := false
	for i := range bill.Lines {
		if bill.Lines[i].ItemID == line.ItemID {
			bill.Lines[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		bill.Lines = append(bill.Lines, line)
	}
	bill.OrderIDs = append(bill.OrderIDs, order.ID)
	total := bill.Total()
	t.mu.Unlock()

	l.sink.Log(journal.TopicBilling, fmt.Sprintf("table %d billed %s x%d (total %s)", order.TableNumber, line.Name, line.Quantity, total.StringFixed(2)))
	return nil
}

// Settle charges the table's open bill. Concurrent settlements of the same table
// are serialized and at most one succeeds.
func (l *Ledger) Settle(ctx context.Context, table int, method PaymentMethod) error {
	t := l.tabFor(table, false)
	if t == nil {
		return ErrNoBill
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		if len(t.history) > 0 {
			return ErrAlreadyPaid
		}
		return ErrNoBill
	}

	bill := t.current
	total := bill.Total()
	if err := method.Pay(ctx, total); err != nil {
		l.sink.Log(journal.TopicBilling, fmt.Sprintf("table %d payment via %s failed: %v", table, method.Name(), err))
		return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
	}

	bill.Paid = true
	bill.PaidVia = method.Name()
	bill.PaidAt = l.now()
	t.history = append(t.history, *bill)
	t.current = nil

	l.sink.Log(journal.TopicBilling, fmt.Sprintf("table %d paid %s via %s", table, total.StringFixed(2), method.Name()))
	return nil
}

// Bill returns the table's open bill, or its most recently paid one.
func (l *Ledger) Bill(table int) (entity.Bill, bool) {
	t := l.tabFor(table, false)
	if t == nil {
		return entity.Bill{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return t.current.Clone(), true
	}
	if n := len(t.history); n > 0 {
		return t.history[n-1].Clone(), true
	}
	return entity.Bill{}, false
}

// Bills lists every open bill ordered by table.
func (l *Ledger) Bills() []entity.Bill {
	l.mu.RLock()
	tables := make([]*tab, 0, len(l.tabs))
	for _, t := range l.tabs {
		tables = append(tables, t)
	}
	l.mu.RUnlock()

	out := make([]entity.Bill, 0, len(tables))
	for _, t := range tables {
		t.mu.Lock()
		if t.current != nil {
			out = append(out, t.current.Clone())
		}
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out
}

// History lists the table's paid bills, oldest first.
func (l *Ledger) History(table int) []entity.Bill {
	t := l.tabFor(table, false)
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]entity.Bill, 0, len(t.history))
	for _, b := range t.history {
		out = append(out, b.Clone())
	}
	return out
}
