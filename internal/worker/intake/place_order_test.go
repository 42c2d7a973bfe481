package intake

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/cache"
	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/messaging"
)

func newHandler() (messaging.Handler, *dispatch.Intake, *dispatch.PriorityQueue) {
	q := dispatch.NewPriorityQueue()
	in := dispatch.NewIntake(dispatch.IntakeParams{Catalog: catalog.Default(), Queue: q})
	keys := dispatch.NewIdempotency(cache.NewMemory(time.Minute), time.Minute)
	return Handle(in, keys, zap.NewNop()), in, q
}

func encode(t *testing.T, cmd PlaceOrderCommand) messaging.Message {
	t.Helper()
	body, err := json.Marshal(cmd)
	require.NoError(t, err)
	return messaging.Message{Topic: "orders.intake", Value: body}
}

func TestHandlePlacesOrderOnce(t *testing.T) {
	h, in, q := newHandler()
	msg := encode(t, PlaceOrderCommand{RequestID: "r-1", TableNumber: 4, MenuItemID: 2, Quantity: 3})

	require.NoError(t, h(context.Background(), msg))
	require.NoError(t, h(context.Background(), msg))

	assert.Equal(t, 1, q.Len())
	require.Len(t, in.Orders(), 1)
	assert.Equal(t, 4, in.Orders()[0].TableNumber)
}

func TestHandleKeyFallsBackToMessageKey(t *testing.T) {
	h, _, q := newHandler()
	msg := encode(t, PlaceOrderCommand{TableNumber: 1, MenuItemID: 1, Quantity: 1})
	msg.Key = []byte("bus-key")

	require.NoError(t, h(context.Background(), msg))
	require.NoError(t, h(context.Background(), msg))
	assert.Equal(t, 1, q.Len())
}

func TestHandleMarksBadCommandsPoison(t *testing.T) {
	h, _, q := newHandler()

	err := h(context.Background(), messaging.Message{Value: []byte("{not json")})
	assert.ErrorIs(t, err, messaging.ErrPoison)

	err = h(context.Background(), encode(t, PlaceOrderCommand{RequestID: "r-9", TableNumber: 1, MenuItemID: 404, Quantity: 1}))
	assert.ErrorIs(t, err, messaging.ErrPoison)

	err = h(context.Background(), encode(t, PlaceOrderCommand{TableNumber: 0, MenuItemID: 1, Quantity: 1}))
	assert.ErrorIs(t, err, messaging.ErrPoison)
	assert.Zero(t, q.Len())
}
