package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/fulfillment/internal/app"
	"github.com/Additional-Code/fulfillment/internal/billing"
	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/entity"
)

type simulation struct {
	Orders  int
	Tables  int
	MaxQty  int
	Method  string
	Timeout time.Duration
	Poll    time.Duration
	rng     *rand.Rand
}

type simulationReport struct {
	Placed    int
	Completed int
	Rejected  int
	Unsettled int
	Paid      map[int]decimal.Decimal
	Declined  []int
}

func newSimulateCmd() *cobra.Command {
	sim := simulation{Poll: 50 * time.Millisecond}
	var seed uint64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the kitchen in-process against a burst of random orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			sim.rng = rand.New(rand.NewPCG(seed, seed>>1))

			var (
				in    *dispatch.Intake
				bills *billing.Ledger
				cat   catalog.Catalog
			)
			opts := fx.Options(app.Core, fx.Populate(&in, &bills, &cat))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				report, err := runSimulation(ctx, in, bills, cat.Menu(), sim)
				if err != nil {
					return err
				}
				return report.print(cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().IntVar(&sim.Orders, "orders", 20, "Number of orders to place")
	cmd.Flags().IntVar(&sim.Tables, "tables", 5, "Number of tables ordering")
	cmd.Flags().IntVar(&sim.MaxQty, "max-qty", 3, "Largest quantity per order")
	cmd.Flags().StringVar(&sim.Method, "pay", "CASH", "Payment method used to settle every table (CASH, UPI, CARD)")
	cmd.Flags().DurationVar(&sim.Timeout, "timeout", time.Minute, "How long to wait for the kitchen to drain")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	return cmd
}

// runSimulation places random orders, waits for every one to finish and then
// settles each table.
func runSimulation(ctx context.Context, in *dispatch.Intake, bills *billing.Ledger, menu []*entity.MenuItem, sim simulation) (simulationReport, error) {
	report := simulationReport{Paid: make(map[int]decimal.Decimal)}
	if len(menu) == 0 {
		return report, errors.New("menu is empty")
	}
	if sim.Tables < 1 || sim.MaxQty < 1 {
		return report, errors.New("tables and max-qty must be positive")
	}
	if sim.rng == nil {
		sim.rng = rand.New(rand.NewPCG(1, 2))
	}

	placed := make([]*entity.Order, 0, sim.Orders)
	for i := 0; i < sim.Orders; i++ {
		item := menu[sim.rng.IntN(len(menu))]
		order, err := in.Place(ctx, dispatch.PlaceRequest{
			TableNumber: 1 + sim.rng.IntN(sim.Tables),
			MenuItemID:  item.ID,
			Quantity:    1 + sim.rng.IntN(sim.MaxQty),
		})
		if err != nil {
			return report, fmt.Errorf("place order %d: %w", i+1, err)
		}
		placed = append(placed, order)
	}
	report.Placed = len(placed)

	waitCtx, cancel := context.WithTimeout(ctx, sim.Timeout)
	defer cancel()
	if err := waitTerminal(waitCtx, placed, sim.Poll); err != nil {
		return report, err
	}
	for _, o := range placed {
		if o.Status() == entity.StatusCompleted {
			report.Completed++
		} else {
			report.Rejected++
		}
	}

	method, err := bills.Method(sim.Method)
	if err != nil {
		return report, err
	}
	for _, bill := range bills.Bills() {
		if err := bills.Settle(ctx, bill.TableNumber, method); err != nil {
			if errors.Is(err, billing.ErrPaymentDeclined) {
				report.Declined = append(report.Declined, bill.TableNumber)
				report.Unsettled++
				continue
			}
			return report, err
		}
		report.Paid[bill.TableNumber] = bill.Total()
	}
	return report, nil
}

func waitTerminal(ctx context.Context, orders []*entity.Order, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		done := true
		for _, o := range orders {
			if !o.Status().Terminal() {
				done = false
				break
			}
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("kitchen did not drain: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r simulationReport) print(w io.Writer) error {
	fmt.Fprintf(w, "placed %d, completed %d, rejected %d\n", r.Placed, r.Completed, r.Rejected)

	tables := make([]int, 0, len(r.Paid))
	for t := range r.Paid {
		tables = append(tables, t)
	}
	sort.Ints(tables)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tPAID")
	grand := decimal.Zero
	for _, t := range tables {
		fmt.Fprintf(tw, "%d\t%s\n", t, r.Paid[t].StringFixed(2))
		grand = grand.Add(r.Paid[t])
	}
	fmt.Fprintf(tw, "total\t%s\n", grand.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(r.Declined) > 0 {
		fmt.Fprintf(w, "declined tables: %v\n", r.Declined)
	}
	return nil
}
