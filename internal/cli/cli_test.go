package cli

import (
	"bytes"
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/fulfillment/internal/billing"
	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"start", "worker", "migrate", "menu", "simulate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPrintMenu(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMenu(&buf, catalog.Default()))

	out := buf.String()
	assert.Contains(t, out, "Margherita Pizza")
	assert.Contains(t, out, "COLD_BEVERAGE")
	assert.Contains(t, out, "gulab jamun")
}

func TestRunSimulationDrainsAndSettles(t *testing.T) {
	cat := catalog.Default()
	stock := inventory.NewLedger(cat, nil, 5, 20)
	for _, name := range catalog.Ingredients(cat) {
		stock.AddOrRestock(name, 1000, time.Now().Add(time.Hour))
	}
	bills := billing.NewLedger(nil)

	var stations []*kitchen.Station
	for _, spec := range kitchen.SpecsFromConfig(config.Kitchen{}) {
		stations = append(stations, kitchen.NewStation(spec, 0, time.Second, kitchen.Deps{Inventory: stock, Billing: bills}))
	}
	router, err := kitchen.NewRouter(nil, stations, entity.CategoryGrill, nil, nil)
	require.NoError(t, err)
	router.StartAll()
	t.Cleanup(router.StopAll)

	q := dispatch.NewPriorityQueue()
	in := dispatch.NewIntake(dispatch.IntakeParams{Catalog: cat, Queue: q})
	d := dispatch.NewDispatcher(dispatch.DispatcherParams{Queue: q, Router: router})
	d.Start()
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	report, err := runSimulation(context.Background(), in, bills, cat.Menu(), simulation{
		Orders:  30,
		Tables:  3,
		MaxQty:  2,
		Method:  "cash",
		Timeout: 5 * time.Second,
		Poll:    5 * time.Millisecond,
		rng:     rand.New(rand.NewPCG(7, 7)),
	})
	require.NoError(t, err)

	assert.Equal(t, 30, report.Placed)
	assert.Equal(t, 30, report.Completed)
	assert.Zero(t, report.Rejected)

	expected := decimal.Zero
	for _, o := range in.Orders() {
		expected = expected.Add(o.Line().Amount())
	}
	paid := decimal.Zero
	for _, amount := range report.Paid {
		paid = paid.Add(amount)
	}
	assert.True(t, expected.Equal(paid), "paid %s, expected %s", paid, expected)
	assert.Empty(t, bills.Bills())

	var buf bytes.Buffer
	require.NoError(t, report.print(&buf))
	assert.Contains(t, buf.String(), "completed 30")
}
