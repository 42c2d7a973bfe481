package app

import (
	"strings"

	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/journal"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
	"github.com/Additional-Code/fulfillment/internal/observability"
	"github.com/Additional-Code/fulfillment/internal/supply"
)

type gauge struct {
	name string
	desc string
	fn   func() int64
}

// registerGauges exports queue depths sampled at scrape time.
func registerGauges(obs *observability.Manager, in *dispatch.Intake, router *kitchen.Router, chain *supply.Chain, rec *journal.Recorder) error {
	gauges := []gauge{
		{"dispatch.pending", "orders waiting for a station", func() int64 { return int64(in.Pending()) }},
		{"supply.pending", "undelivered supplier orders", func() int64 { return int64(len(chain.Pending())) }},
		{"journal.dropped", "journal entries never persisted", rec.Dropped},
	}
	for _, st := range router.Stations() {
		gauges = append(gauges, gauge{
			name: "kitchen.queue." + strings.ToLower(st.Category().String()),
			desc: "orders queued at " + st.Name(),
			fn:   func() int64 { return int64(st.QueueDepth()) },
		})
	}

	for _, g := range gauges {
		if err := obs.Gauge(g.name, g.desc, g.fn); err != nil {
			return err
		}
	}
	return nil
}
