package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillLine accumulates one menu item within a table's tab.
type BillLine struct {
	ItemID    int
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Amount is unit price times quantity.
func (l BillLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Bill is a table's tab.
type Bill struct {
	TableNumber int
	Lines       []BillLine
	OrderIDs    []int64
	Paid        bool
	PaidVia     string
	PaidAt      time.Time
	OpenedAt    time.Time
}

// Total sums every line amount.
func (b Bill) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(line.Amount())
	}
	return total
}

// Clone returns a deep copy safe to hand to other goroutines.
func (b Bill) Clone() Bill {
	out := b
	out.Lines = append([]BillLine(nil), b.Lines...)
	out.OrderIDs = append([]int64(nil), b.OrderIDs...)
	return out
}
