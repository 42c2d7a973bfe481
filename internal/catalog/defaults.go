package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/fulfillment/internal/entity"
)

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Default returns the house menu.
func Default() *Static {
	recipes := []*entity.Recipe{
		entity.NewRecipe("margherita pizza", map[string]int{"dough": 1, "tomato_sauce": 1, "cheese": 1, "toppings": 1}),
		entity.NewRecipe("pepperoni pizza", map[string]int{"dough": 1, "tomato_sauce": 1, "cheese": 1, "pepperoni": 3}),
		entity.NewRecipe("veg burger", map[string]int{"bun": 1, "patty": 1, "cheese": 1, "lettuce": 1}),
		entity.NewRecipe("chicken burger", map[string]int{"bun": 1, "patty_chicken": 1, "cheese": 1, "lettuce": 1}),
		entity.NewRecipe("cheesy pasta", map[string]int{"pasta": 1, "tomato_sauce": 1, "cheese": 1}),
		entity.NewRecipe("french fries", map[string]int{"potato": 3, "salt": 1, "oil": 1}),
		entity.NewRecipe("garlic bread", map[string]int{"bread": 2, "garlic": 1, "butter": 1}),
		entity.NewRecipe("lemonade", map[string]int{"lemon": 2, "sugar": 1, "water": 1}),
		entity.NewRecipe("iced tea", map[string]int{"tea_leaves": 1, "sugar": 1, "water": 1, "ice": 3}),
		entity.NewRecipe("mango smoothie", map[string]int{"mango": 1, "milk": 1, "sugar": 1}),
		entity.NewRecipe("espresso", map[string]int{"coffee_beans": 1, "water": 1}),
		entity.NewRecipe("cappuccino", map[string]int{"coffee_beans": 1, "milk": 1, "water": 1}),
		entity.NewRecipe("hot chocolate", map[string]int{"cocoa": 1, "milk": 1, "sugar": 1}),
		entity.NewRecipe("chocolate cake", map[string]int{"flour": 1, "sugar": 1, "egg": 1, "cream": 1}),
		entity.NewRecipe("pancakes", map[string]int{"pancake_batter": 1, "egg": 1, "milk": 1}),
	}

	items := []*entity.MenuItem{
		{ID: 1, Name: "Margherita Pizza", Price: price("220"), Category: "grill", Calories: 850, Allergens: []string{"gluten", "dairy"}},
		{ID: 2, Name: "Pepperoni Pizza", Price: price("260"), Category: "grill", Calories: 980, Allergens: []string{"gluten", "dairy"}},
		{ID: 3, Name: "Veg Burger", Price: price("120"), Category: "grill", Calories: 540, Allergens: []string{"gluten", "dairy"}},
		{ID: 4, Name: "Chicken Burger", Price: price("150"), Category: "grill", Calories: 620, Allergens: []string{"gluten", "dairy"}},
		{ID: 5, Name: "Cheesy Pasta", Price: price("150"), Category: "grill", Calories: 700, Allergens: []string{"gluten", "dairy"}},
		{ID: 6, Name: "French Fries", Price: price("90"), Calories: 365},
		{ID: 7, Name: "Garlic Bread", Price: price("80"), Calories: 300, Allergens: []string{"gluten", "dairy"}},
		{ID: 8, Name: "Lemonade", Price: price("60"), Category: "cold beverage", Calories: 120},
		{ID: 9, Name: "Iced Tea", Price: price("70"), Category: "cold beverage", Calories: 90},
		{ID: 10, Name: "Mango Smoothie", Price: price("110"), Calories: 250, Allergens: []string{"dairy"}},
		{ID: 11, Name: "Espresso", Price: price("90"), Category: "hot beverage", Calories: 5},
		{ID: 12, Name: "Cappuccino", Price: price("120"), Category: "hot beverage", Calories: 110, Allergens: []string{"dairy"}},
		{ID: 13, Name: "Hot Chocolate", Price: price("130"), Category: "hot beverage", Calories: 190, Allergens: []string{"dairy"}},
		{ID: 14, Name: "Chocolate Cake", Price: price("140"), Category: "dessert", Calories: 450, Allergens: []string{"gluten", "dairy", "egg"}},
		{ID: 15, Name: "Pancakes", Price: price("110"), Calories: 350, Allergens: []string{"gluten", "dairy", "egg"}},
		{ID: 16, Name: "Gulab Jamun", Price: price("80"), Category: "dessert", Calories: 300, Allergens: []string{"dairy"}},
	}

	return NewStatic(items, recipes)
}
