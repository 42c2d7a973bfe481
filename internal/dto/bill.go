package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// SettleRequest is the HTTP body for POST /bills/:table/settle.
type SettleRequest struct {
	Method string `json:"method"`
}

// BillLineResponse is one aggregated line of a bill.
type BillLineResponse struct {
	MenuItemID int             `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
}

// BillResponse represents a table's tab.
type BillResponse struct {
	TableNumber int                `json:"table_number"`
	Lines       []BillLineResponse `json:"lines"`
	OrderIDs    []int64            `json:"order_ids"`
	Total       decimal.Decimal    `json:"total"`
	Paid        bool               `json:"paid"`
	PaidVia     string             `json:"paid_via,omitempty"`
	PaidAt      *time.Time         `json:"paid_at,omitempty"`
	OpenedAt    time.Time          `json:"opened_at"`
}

// FromBill maps a bill snapshot.
func FromBill(b entity.Bill) BillResponse {
	lines := make([]BillLineResponse, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, BillLineResponse{
			MenuItemID: l.ItemID,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
			Amount:     l.Amount(),
		})
	}
	out := BillResponse{
		TableNumber: b.TableNumber,
		Lines:       lines,
		OrderIDs:    append([]int64{}, b.OrderIDs...),
		Total:       b.Total(),
		Paid:        b.Paid,
		PaidVia:     b.PaidVia,
		OpenedAt:    b.OpenedAt,
	}
	if b.Paid {
		at := b.PaidAt
		out.PaidAt = &at
	}
	return out
}
