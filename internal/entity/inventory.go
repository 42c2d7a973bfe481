package entity

import "time"

// InventoryItem is one ingredient's stock level.
type InventoryItem struct {
	Name     string
	Quantity int
	Expiry   time.Time
}

// Expired reports whether the item can no longer be reserved.
func (i InventoryItem) Expired(now time.Time) bool {
	return now.After(i.Expiry)
}

// SupplierOrder is a scheduled restock.
type SupplierOrder struct {
	Ingredient string
	Quantity   int
	PlacedAt   time.Time
	ReadyAt    time.Time
}
