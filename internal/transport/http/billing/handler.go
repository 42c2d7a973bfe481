package billing

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/fulfillment/internal/billing"
	"github.com/Additional-Code/fulfillment/internal/dto"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/fulfillment/transport/http/billing")

// Handler exposes table bills and settlement.
type Handler struct {
	ledger *billing.Ledger
}

// NewHandler constructs a billing Handler.
func NewHandler(ledger *billing.Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/bills")
	g.GET("", h.list)
	g.GET("/:table", h.get)
	g.POST("/:table/settle", h.settle)
}

func (h *Handler) list(c echo.Context) error {
	bills := h.ledger.Bills()
	out := make([]dto.BillResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, dto.FromBill(b))
	}
	return response.New(c).WithData(out).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	table, err := tableParam(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	bill, ok := h.ledger.Bill(table)
	if !ok {
		return b.WithError(errorbank.NotFound("no bill for table", errorbank.WithDetail("table_number", table))).Build()
	}
	return b.WithData(dto.FromBill(bill)).WithMeta("paid_bills", len(h.ledger.History(table))).Build()
}

func (h *Handler) settle(c echo.Context) error {
	b := response.New(c)
	table, err := tableParam(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.SettleRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	method, err := h.ledger.Method(payload.Method)
	if err != nil {
		return b.WithError(errorbank.BadRequest("unsupported payment method", errorbank.WithDetail("method", payload.Method))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "bills.settle", trace.WithAttributes(
		attribute.Int("bill.table", table),
		attribute.String("bill.method", method.Name()),
	))
	defer span.End()

	if err := h.ledger.Settle(ctx, table, method); err != nil {
		span.RecordError(err)
		return b.WithError(settleError(table, err)).Build()
	}

	paid := h.ledger.History(table)
	var last entity.Bill
	if n := len(paid); n > 0 {
		last = paid[n-1]
	}
	return b.WithData(dto.FromBill(last)).Build()
}

func settleError(table int, err error) error {
	detail := errorbank.WithDetail("table_number", table)
	switch {
	case errors.Is(err, billing.ErrNoBill):
		return errorbank.NotFound("no open bill for table", detail)
	case errors.Is(err, billing.ErrAlreadyPaid):
		return errorbank.Conflict("bill already paid", detail)
	case errors.Is(err, billing.ErrPaymentDeclined):
		return errorbank.PaymentRequired("payment declined", detail, errorbank.WithCause(err))
	default:
		return err
	}
}

func tableParam(c echo.Context) (int, error) {
	table, err := strconv.Atoi(c.Param("table"))
	if err != nil || table < 1 {
		return 0, errorbank.BadRequest("invalid table number", errorbank.WithDetail("table", c.Param("table")))
	}
	return table, nil
}
