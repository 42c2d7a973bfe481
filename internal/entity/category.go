package entity

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// Category identifies the kind of station that prepares an order.
type Category string

const (
	CategoryUnknown      Category = ""
	CategoryGrill        Category = "GRILL"
	CategoryDessert      Category = "DESSERT"
	CategoryHotBeverage  Category = "HOT_BEVERAGE"
	CategoryColdBeverage Category = "COLD_BEVERAGE"
)

// Categories lists every station category in routing-table order.
var Categories = []Category{
	CategoryGrill,
	CategoryDessert,
	CategoryHotBeverage,
	CategoryColdBeverage,
}

var categoryAliases = map[string]Category{
	"BEVERAGE": CategoryColdBeverage,
	"DRINK":    CategoryColdBeverage,
	"COLD":     CategoryColdBeverage,
	"HOT":      CategoryHotBeverage,
	"MAIN":     CategoryGrill,
	"SWEET":    CategoryDessert,
}

// ParseCategory normalises a free-form label ("hot beverage", "HotBeverage",
// "cold-beverage") onto the enumeration. Unrecognised labels yield CategoryUnknown.
func ParseCategory(label string) Category {
	label = strings.TrimSpace(label)
	if label == "" {
		return CategoryUnknown
	}
	key := strcase.ToScreamingSnake(label)
	for _, c := range Categories {
		if Category(key) == c {
			return c
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryUnknown
}

// Known reports whether c is one of the station categories.
func (c Category) Known() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	if c == CategoryUnknown {
		return "UNKNOWN"
	}
	return string(c)
}
