package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/journal"
)

// ErrNoFallback is returned when the fallback category has no station.
var ErrNoFallback = errors.New("fallback category has no station")

// Router classifies orders and forwards them to the station for their category.
// The category table is fixed at construction.
type Router struct {
	classifier Classifier
	byCategory map[entity.Category]*Station
	stations   []*Station
	fallback   *Station
	sink       journal.Sink
	logger     *zap.Logger
}

// NewRouter indexes stations by category. Each category may appear once.
func NewRouter(classifier Classifier, stations []*Station, fallback entity.Category, sink journal.Sink, logger *zap.Logger) (*Router, error) {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if sink == nil {
		sink = journal.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byCategory := make(map[entity.Category]*Station, len(stations))
	for _, st := range stations {
		if _, dup := byCategory[st.Category()]; dup {
			return nil, fmt.Errorf("duplicate station for category %s", st.Category())
		}
		byCategory[st.Category()] = st
	}
	fb, ok := byCategory[fallback]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFallback, fallback)
	}
	return &Router{
		classifier: classifier,
		byCategory: byCategory,
		stations:   append([]*Station(nil), stations...),
		fallback:   fb,
		sink:       sink,
		logger:     logger,
	}, nil
}

// Route resolves the order's category when it is unset or unknown, records it on
// the order and hands the order to that station.
func (r *Router) Route(ctx context.Context, order *entity.Order) error {
	category := order.Category()
	st, ok := r.byCategory[category]
	if !ok {
		category = r.classifier.Classify(order.Item)
		if st, ok = r.byCategory[category]; !ok {
			st = r.fallback
		}
		order.SetCategory(st.Category())
	}

	if err := st.AcceptOrder(ctx, order); err != nil {
		return err
	}
	r.sink.Log(journal.TopicOrder, fmt.Sprintf("order %d routed to %s", order.ID, st.Name()))
	return nil
}

// Station returns the station for c.
func (r *Router) Station(c entity.Category) (*Station, bool) {
	st, ok := r.byCategory[c]
	return st, ok
}

// Stations lists every station in construction order.
func (r *Router) Stations() []*Station {
	return append([]*Station(nil), r.stations...)
}

// StartAll starts every station.
func (r *Router) StartAll() {
	for _, st := range r.stations {
		st.Start()
	}
}

// StopAll stops every station concurrently and waits for all of them.
func (r *Router) StopAll() {
	var wg sync.WaitGroup
	for _, st := range r.stations {
		wg.Add(1)
		go func(st *Station) {
			defer wg.Done()
			st.Stop()
		}(st)
	}
	wg.Wait()
}

// AnyRunning reports whether at least one station is running.
func (r *Router) AnyRunning() bool {
	for _, st := range r.stations {
		if st.IsRunning() {
			return true
		}
	}
	return false
}
