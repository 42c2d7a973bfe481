package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Additional-Code/fulfillment/internal/cache"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

const (
	idempotencyPrefix = "idempotency:"
	inFlightMarker    = "pending"
)

// Idempotency makes Place safe to retry under a caller-chosen request key.
// The key maps to the placed order id for ttl.
type Idempotency struct {
	store cache.Store
	ttl   time.Duration

	mu sync.Mutex
}

// NewIdempotency wraps a cache store.
func NewIdempotency(store cache.Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Place places req once per key. A repeated key returns the original order and
// replayed=true; the order is nil when it was placed by another process. An
// empty key always places.
func (k *Idempotency) Place(ctx context.Context, in *Intake, key string, req PlaceRequest) (*entity.Order, bool, error) {
	if key == "" || k.store == nil {
		order, err := in.Place(ctx, req)
		return order, false, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	cacheKey := idempotencyPrefix + key
	claimed, err := k.store.SetNX(ctx, cacheKey, []byte(inFlightMarker), k.ttl)
	if err != nil {
		return nil, false, errorbank.Internal("idempotency store unavailable", errorbank.WithCause(err))
	}
	if !claimed {
		return k.replay(ctx, in, cacheKey, key)
	}

	order, err := in.Place(ctx, req)
	if err != nil {
		// release the claim so a corrected retry can succeed
		_ = k.store.Delete(ctx, cacheKey)
		return nil, false, err
	}
	if err := k.store.Set(ctx, cacheKey, []byte(strconv.FormatInt(order.ID, 10)), k.ttl); err != nil {
		return order, false, errorbank.Internal("record idempotency key", errorbank.WithCause(err))
	}
	return order, false, nil
}

func (k *Idempotency) replay(ctx context.Context, in *Intake, cacheKey, key string) (*entity.Order, bool, error) {
	raw, err := k.store.Get(ctx, cacheKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, errorbank.Conflict("request expired while in flight", errorbank.WithDetail("request_id", key))
	}
	if err != nil {
		return nil, false, errorbank.Internal("idempotency store unavailable", errorbank.WithCause(err))
	}
	if string(raw) == inFlightMarker {
		return nil, false, errorbank.Conflict("request already in flight", errorbank.WithDetail("request_id", key))
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, false, errorbank.Internal(fmt.Sprintf("corrupt idempotency entry %q", raw))
	}
	order, _ := in.Order(id)
	return order, true, nil
}
