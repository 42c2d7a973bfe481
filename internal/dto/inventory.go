package dto

import (
	"time"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// RestockRequest is the HTTP body for POST /inventory/restock. A zero Expiry
// keeps the existing expiry.
type RestockRequest struct {
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Expiry   time.Time `json:"expiry"`
}

// RulesRequest is the HTTP body for PUT /inventory/:name/rules. Nil fields are
// left unchanged.
type RulesRequest struct {
	Threshold       *int `json:"threshold"`
	ReorderQuantity *int `json:"reorder_quantity"`
}

// SupplierOrderResponse is one pending restock.
type SupplierOrderResponse struct {
	Ingredient string    `json:"ingredient"`
	Quantity   int       `json:"quantity"`
	PlacedAt   time.Time `json:"placed_at"`
	ReadyAt    time.Time `json:"ready_at"`
}

// FromSupplierOrder maps a scheduled restock.
func FromSupplierOrder(o entity.SupplierOrder) SupplierOrderResponse {
	return SupplierOrderResponse{Ingredient: o.Ingredient, Quantity: o.Quantity, PlacedAt: o.PlacedAt, ReadyAt: o.ReadyAt}
}

// ChefRequest is the HTTP body for POST /stations/:category/chefs.
type ChefRequest struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
