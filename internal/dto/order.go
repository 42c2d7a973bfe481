package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

// PlaceOrderRequest is the HTTP body for POST /orders.
type PlaceOrderRequest struct {
	TableNumber int `json:"table_number"`
	MenuItemID  int `json:"menu_item_id"`
	Quantity    int `json:"quantity"`
}

// PriorityRequest is the HTTP body for PUT /orders/:id/priority.
type PriorityRequest struct {
	Priority int `json:"priority"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID          int64           `json:"id"`
	TableNumber int             `json:"table_number"`
	MenuItemID  int             `json:"menu_item_id"`
	MenuItem    string          `json:"menu_item"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Priority    int             `json:"priority"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Amount      decimal.Decimal `json:"amount"`
}

// FromOrder maps a live order onto its response shape.
func FromOrder(o *entity.Order) OrderResponse {
	snap := o.Snapshot()
	return OrderResponse{
		ID:          snap.ID,
		TableNumber: snap.TableNumber,
		MenuItemID:  snap.ItemID,
		MenuItem:    snap.ItemName,
		Quantity:    snap.Quantity,
		Category:    snap.Category.String(),
		Priority:    o.Priority(),
		Status:      snap.Status.String(),
		CreatedAt:   snap.CreatedAt,
		Amount:      o.Line().Amount(),
	}
}

// MenuItemResponse is one entry of GET /menu.
type MenuItemResponse struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
	Ingredients map[string]int  `json:"ingredients,omitempty"`
}

// FromMenuItem maps a catalog item, folding in the recipe when one is known.
func FromMenuItem(item *entity.MenuItem, recipe *entity.Recipe) MenuItemResponse {
	out := MenuItemResponse{ID: item.ID, Name: item.Name, Price: item.Price, Category: item.Category}
	if recipe != nil {
		out.Ingredients = recipe.Scaled(1)
	}
	return out
}
