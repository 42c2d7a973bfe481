package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
)

// Module seeds stock and staff before the kitchen starts taking orders.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, s *Seeder) {
		if !cfg.Inventory.SeedOnStart {
			return
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				s.Inventory()
				s.Chefs(DefaultChefs)
				return nil
			},
		})
	}),
)

// DefaultChefs is the starting roster.
var DefaultChefs = []entity.Chef{
	{ID: 1, Name: "Asha"},
	{ID: 2, Name: "Marco"},
	{ID: 3, Name: "Lin"},
	{ID: 4, Name: "Tomás"},
}

// Stock is the inventory surface the seeder fills.
type Stock interface {
	AddOrRestock(name string, quantity int, expiry time.Time)
}

// Seeder fills an empty kitchen with starting stock and chefs.
type Seeder struct {
	catalog   catalog.Catalog
	stock     Stock
	stations  []*kitchen.Station
	cfg       config.Inventory
	sink      journal.Sink
	logger    *zap.Logger
	now       func() time.Time
	quantityN func(n int) int
}

// Params defines dependencies for the Seeder.
type Params struct {
	fx.In

	Config    config.Config
	Catalog   catalog.Catalog
	Inventory *inventory.Ledger
	Router    *kitchen.Router
	Sink      journal.Sink
	Logger    *zap.Logger
}

// New constructs a Seeder from the Fx graph.
func New(p Params) *Seeder {
	return NewSeeder(p.Catalog, p.Inventory, p.Router.Stations(), p.Config.Inventory, p.Sink, p.Logger)
}

// NewSeeder builds a Seeder over explicit collaborators.
func NewSeeder(c catalog.Catalog, stock Stock, stations []*kitchen.Station, cfg config.Inventory, sink journal.Sink, logger *zap.Logger) *Seeder {
	if sink == nil {
		sink = journal.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		catalog:   c,
		stock:     stock,
		stations:  stations,
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
		quantityN: rand.IntN,
	}
}

// Inventory stocks every ingredient the menu can consume with a random quantity
// in [SeedMinQty, SeedMaxQty] and a shared expiry. It returns the number of
// ingredients stocked.
func (s *Seeder) Inventory() int {
	expiry := s.now().Add(s.cfg.SeedShelfLife)
	names := catalog.Ingredients(s.catalog)
	span := s.cfg.SeedMaxQty - s.cfg.SeedMinQty + 1
	for _, name := range names {
		qty := s.cfg.SeedMinQty
		if span > 1 {
			qty += s.quantityN(span)
		}
		s.stock.AddOrRestock(name, qty, expiry)
	}

	s.sink.Log(journal.TopicInventory, fmt.Sprintf("seeded %d ingredients (expiry %s)", len(names), expiry.Format(time.RFC3339)))
	s.logger.Info("seeded inventory", zap.Int("count", len(names)))
	return len(names)
}

// Chefs deals chefs across stations in routing order.
func (s *Seeder) Chefs(chefs []entity.Chef) {
	if len(s.stations) == 0 {
		return
	}
	for i, chef := range chefs {
		st := s.stations[i%len(s.stations)]
		if st.AssignChef(chef) {
			s.logger.Debug("chef assigned", zap.String("chef", chef.Name), zap.String("station", st.Name()))
		}
	}
}
