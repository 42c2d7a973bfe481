package inventory

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/dto"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/inventory"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/internal/supply"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

// Handler exposes stock levels, manual restocks and the supplier pipeline.
type Handler struct {
	ledger    *inventory.Ledger
	chain     *supply.Chain
	shelfLife time.Duration
	now       func() time.Time
}

// NewHandler constructs an inventory Handler.
func NewHandler(ledger *inventory.Ledger, chain *supply.Chain, cfg config.Config) *Handler {
	return &Handler{ledger: ledger, chain: chain, shelfLife: cfg.Supply.ShelfLife, now: time.Now}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/inventory")
	g.GET("", h.list)
	g.POST("/restock", h.restock)
	g.PUT("/:name/rules", h.rules)
	e.GET("/supply/pending", h.pending)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)
	lowOnly, _ := strconv.ParseBool(c.QueryParam("low"))

	levels := h.ledger.Snapshot()
	if lowOnly {
		filtered := levels[:0]
		for _, lvl := range levels {
			if lvl.Low {
				filtered = append(filtered, lvl)
			}
		}
		levels = filtered
	}
	return b.WithData(levels).Build()
}

func (h *Handler) restock(c echo.Context) error {
	b := response.New(c)

	var payload dto.RestockRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	name := entity.NormalizeName(payload.Name)
	if name == "" {
		return b.WithError(errorbank.BadRequest("ingredient name is required")).Build()
	}
	if payload.Quantity < 1 {
		return b.WithError(errorbank.BadRequest("quantity must be at least 1", errorbank.WithDetail("quantity", payload.Quantity))).Build()
	}
	expiry := payload.Expiry
	if expiry.IsZero() {
		expiry = h.now().Add(h.shelfLife)
	}

	h.ledger.AddOrRestock(name, payload.Quantity, expiry)
	return b.WithStatus(http.StatusOK).WithData(map[string]any{
		"name":     name,
		"quantity": h.ledger.Quantity(name),
	}).Build()
}

func (h *Handler) rules(c echo.Context) error {
	b := response.New(c)

	name := entity.NormalizeName(strings.ReplaceAll(c.Param("name"), "+", " "))
	if name == "" {
		return b.WithError(errorbank.BadRequest("ingredient name is required")).Build()
	}
	var payload dto.RulesRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Threshold == nil && payload.ReorderQuantity == nil {
		return b.WithError(errorbank.BadRequest("threshold or reorder_quantity is required")).Build()
	}
	if payload.Threshold != nil {
		if *payload.Threshold < 0 {
			return b.WithError(errorbank.Unprocessable("threshold must not be negative")).Build()
		}
		h.ledger.SetThreshold(name, *payload.Threshold)
	}
	if payload.ReorderQuantity != nil {
		if *payload.ReorderQuantity < 1 {
			return b.WithError(errorbank.Unprocessable("reorder_quantity must be positive")).Build()
		}
		h.ledger.SetReorderQuantity(name, *payload.ReorderQuantity)
	}

	return b.WithData(map[string]any{
		"name":             name,
		"threshold":        h.ledger.Threshold(name),
		"reorder_quantity": h.ledger.ReorderQuantity(name),
	}).Build()
}

func (h *Handler) pending(c echo.Context) error {
	orders := h.chain.Pending()
	out := make([]dto.SupplierOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, dto.FromSupplierOrder(o))
	}
	return response.New(c).WithData(out).Build()
}
