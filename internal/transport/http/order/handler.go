package order

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/fulfillment/internal/catalog"
	"github.com/Additional-Code/fulfillment/internal/dispatch"
	"github.com/Additional-Code/fulfillment/internal/dto"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/fulfillment/transport/http/order")

// IdempotencyHeader carries the client's retry key on POST /orders.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes the menu and order intake over HTTP.
type Handler struct {
	catalog catalog.Catalog
	intake  *dispatch.Intake
	keys    *dispatch.Idempotency
}

// NewHandler constructs an order Handler.
func NewHandler(c catalog.Catalog, in *dispatch.Intake, keys *dispatch.Idempotency) *Handler {
	return &Handler{catalog: c, intake: in, keys: keys}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/menu", h.menu)
	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.PUT("/:id/priority", h.reprioritize)
}

func (h *Handler) menu(c echo.Context) error {
	items := h.catalog.Menu()
	out := make([]dto.MenuItemResponse, 0, len(items))
	for _, item := range items {
		recipe := item.Recipe
		if recipe == nil {
			recipe, _ = h.catalog.RecipeFor(item.Name)
		}
		out = append(out, dto.FromMenuItem(item, recipe))
	}
	return response.New(c).WithData(out).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	status := strings.ToUpper(c.QueryParam("status"))
	orders := h.intake.Orders()
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status().String() != status {
			continue
		}
		out = append(out, dto.FromOrder(o))
	}
	return b.WithData(out).WithMeta("pending", h.intake.Pending()).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	_, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, ok := h.intake.Order(id)
	if !ok {
		return b.WithError(errorbank.NotFound("order not found", errorbank.WithDetail("id", id))).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.PlaceOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	key := c.Request().Header.Get(IdempotencyHeader)
	req := dispatch.PlaceRequest{TableNumber: payload.TableNumber, MenuItemID: payload.MenuItemID, Quantity: payload.Quantity}
	order, replayed, err := h.keys.Place(ctx, h.intake, key, req)
	if err != nil {
		span.RecordError(err)
		return b.WithError(err).Build()
	}
	if order == nil {
		return b.WithStatus(http.StatusAccepted).WithMeta("replayed", true).Build()
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID), attribute.Bool("order.replayed", replayed))

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	return b.WithStatus(status).WithData(dto.FromOrder(order)).WithMeta("replayed", replayed).Build()
}

func (h *Handler) reprioritize(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}
	var payload dto.PriorityRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	order, err := h.intake.Reprioritize(id, payload.Priority)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}
