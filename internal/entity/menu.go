package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Recipe maps ingredient names to the quantity needed for one serving.
type Recipe struct {
	Dish        string
	Ingredients map[string]int
}

// NewRecipe copies the ingredient table and normalises its keys.
func NewRecipe(dish string, ingredients map[string]int) *Recipe {
	normalised := make(map[string]int, len(ingredients))
	for name, qty := range ingredients {
		normalised[NormalizeName(name)] += qty
	}
	return &Recipe{Dish: dish, Ingredients: normalised}
}

// Scaled returns the total quantity per ingredient for the given number of servings.
func (r *Recipe) Scaled(servings int) map[string]int {
	if servings < 1 {
		servings = 1
	}
	out := make(map[string]int, len(r.Ingredients))
	for name, qty := range r.Ingredients {
		out[name] = qty * servings
	}
	return out
}

// MenuItem is an immutable catalog entry.
type MenuItem struct {
	ID        int
	Name      string
	Price     decimal.Decimal
	Category  string
	Recipe    *Recipe
	Calories  int
	Allergens []string
}

// Key is the normalised lookup key for recipes and single-ingredient stock.
func (m *MenuItem) Key() string {
	return NormalizeName(m.Name)
}

// NormalizeName lower-cases and trims an ingredient or dish name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
