package billing

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownMethod is returned by MethodByName for unsupported payment methods.
var ErrUnknownMethod = errors.New("unknown payment method")

// PaymentMethod charges a bill total.
type PaymentMethod interface {
	Name() string
	Pay(ctx context.Context, amount decimal.Decimal) error
}

// Cash always succeeds.
type Cash struct{}

func (Cash) Name() string { return "CASH" }

func (Cash) Pay(ctx context.Context, _ decimal.Decimal) error { return ctx.Err() }

// UPI always succeeds.
type UPI struct{}

func (UPI) Name() string { return "UPI" }

func (UPI) Pay(ctx context.Context, _ decimal.Decimal) error { return ctx.Err() }

// Card declines with probability DeclineRate.
type Card struct {
	DeclineRate float64
	roll        func() float64
}

// NewCard builds a Card that draws from the global random source.
func NewCard(declineRate float64) Card {
	return Card{DeclineRate: declineRate, roll: rand.Float64}
}

func (Card) Name() string { return "CARD" }

func (c Card) Pay(ctx context.Context, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	roll := c.roll
	if roll == nil {
		roll = rand.Float64
	}
	if roll() < c.DeclineRate {
		return fmt.Errorf("card declined for %s", amount.StringFixed(2))
	}
	return nil
}

// MethodByName resolves CASH, UPI or CARD, case-insensitively.
func MethodByName(name string, cardDeclineRate float64) (PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CASH":
		return Cash{}, nil
	case "UPI":
		return UPI{}, nil
	case "CARD":
		return NewCard(cardDeclineRate), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}
