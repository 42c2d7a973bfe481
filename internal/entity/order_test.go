package entity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem() *MenuItem {
	return &MenuItem{ID: 7, Name: "Veg Burger", Price: decimal.RequireFromString("120.50"), Category: "grill"}
}

func TestNewOrderAssignsIncreasingIDs(t *testing.T) {
	first, err := NewOrder(1, testItem(), 1)
	require.NoError(t, err)
	second, err := NewOrder(1, testItem(), 2)
	require.NoError(t, err)

	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, StatusNew, first.Status())
	assert.Equal(t, CategoryGrill, first.Category())
	assert.Equal(t, 2, second.Priority())
}

func TestNewOrderValidatesInput(t *testing.T) {
	_, err := NewOrder(1, nil, 1)
	assert.True(t, errors.Is(err, ErrInvalidOrder))

	_, err = NewOrder(1, testItem(), 0)
	assert.True(t, errors.Is(err, ErrInvalidOrder))

	_, err = NewOrder(0, testItem(), 1)
	assert.True(t, errors.Is(err, ErrInvalidOrder))
}

func TestOrderStatusMachine(t *testing.T) {
	order, err := NewOrder(3, testItem(), 1)
	require.NoError(t, err)

	assert.ErrorIs(t, order.SetStatus(StatusInProgress), ErrInvalidTransition, "cannot skip ACCEPTED")
	require.NoError(t, order.SetStatus(StatusAccepted))
	require.NoError(t, order.SetStatus(StatusInProgress))
	assert.ErrorIs(t, order.SetStatus(StatusRejected), ErrInvalidTransition)
	require.NoError(t, order.SetStatus(StatusCompleted))
	assert.True(t, order.Status().Terminal())
	assert.ErrorIs(t, order.SetStatus(StatusAccepted), ErrInvalidTransition)
}

func TestOrderRejectedIsTerminal(t *testing.T) {
	order, err := NewOrder(3, testItem(), 1)
	require.NoError(t, err)
	require.NoError(t, order.SetStatus(StatusAccepted))
	require.NoError(t, order.SetStatus(StatusRejected))
	assert.ErrorIs(t, order.SetStatus(StatusInProgress), ErrInvalidTransition)
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"GRILL":         CategoryGrill,
		"grill":         CategoryGrill,
		"hot beverage":  CategoryHotBeverage,
		"HotBeverage":   CategoryHotBeverage,
		"cold-beverage": CategoryColdBeverage,
		"Beverage":      CategoryColdBeverage,
		"Dessert":       CategoryDessert,
		"":              CategoryUnknown,
		"sushi":         CategoryUnknown,
	}
	for label, want := range cases {
		assert.Equal(t, want, ParseCategory(label), label)
	}
}

func TestBillTotal(t *testing.T) {
	bill := Bill{Lines: []BillLine{
		{UnitPrice: decimal.RequireFromString("0.10"), Quantity: 3},
		{UnitPrice: decimal.RequireFromString("2.25"), Quantity: 2},
	}}
	assert.True(t, decimal.RequireFromString("4.80").Equal(bill.Total()))
}

func TestRecipeScaled(t *testing.T) {
	r := NewRecipe("Lemonade", map[string]int{" Lemon ": 2, "sugar": 1})
	assert.Equal(t, map[string]int{"lemon": 6, "sugar": 3}, r.Scaled(3))
	assert.Equal(t, map[string]int{"lemon": 2, "sugar": 1}, r.Scaled(0))
}
