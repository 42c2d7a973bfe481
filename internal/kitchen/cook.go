package kitchen

import (
	"time"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
)

// CookProfile is the simulated preparation time for a category.
type CookProfile struct {
	Base    time.Duration
	PerUnit time.Duration
}

// Duration is Base plus PerUnit for every unit ordered.
func (p CookProfile) Duration(quantity int) time.Duration {
	if quantity < 1 {
		quantity = 1
	}
	return p.Base + time.Duration(quantity)*p.PerUnit
}

// StationSpec describes one station to build.
type StationSpec struct {
	Name     string
	Category entity.Category
	Workers  int
	Cook     CookProfile
}

// SpecsFromConfig returns one spec per category, in routing-table order.
func SpecsFromConfig(cfg config.Kitchen) []StationSpec {
	build := func(name string, c entity.Category, st config.Station) StationSpec {
		return StationSpec{
			Name:     name,
			Category: c,
			Workers:  st.Workers,
			Cook:     CookProfile{Base: st.CookBase, PerUnit: st.CookPerUnit},
		}
	}
	return []StationSpec{
		build("Grill Station", entity.CategoryGrill, cfg.Grill),
		build("Dessert Station", entity.CategoryDessert, cfg.Dessert),
		build("Hot Beverage Station", entity.CategoryHotBeverage, cfg.HotBeverage),
		build("Cold Beverage Station", entity.CategoryColdBeverage, cfg.ColdBeverage),
	}
}
