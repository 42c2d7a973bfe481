package kitchen

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/fulfillment/internal/activity"
	"github.com/Additional-Code/fulfillment/internal/dto"
	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

// Handler exposes station state and chef assignment.
type Handler struct {
	router  *kitchen.Router
	monitor *activity.Monitor
}

// NewHandler constructs a kitchen Handler.
func NewHandler(router *kitchen.Router, monitor *activity.Monitor) *Handler {
	return &Handler{router: router, monitor: monitor}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/stations")
	g.GET("", h.list)
	g.POST("/:category/chefs", h.assign)
	g.DELETE("/:category/chefs/:id", h.unassign)
}

func (h *Handler) list(c echo.Context) error {
	stations := h.router.Stations()
	out := make([]kitchen.Stats, 0, len(stations))
	for _, st := range stations {
		out = append(out, st.Stats())
	}
	b := response.New(c).WithData(out)
	if h.monitor != nil {
		b = b.WithMeta("paused", h.monitor.Paused()).WithMeta("last_activity", h.monitor.LastActivity())
	}
	return b.Build()
}

func (h *Handler) assign(c echo.Context) error {
	b := response.New(c)
	st, err := h.station(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.ChefRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.ID < 1 || payload.Name == "" {
		return b.WithError(errorbank.BadRequest("chef id and name are required")).Build()
	}
	if !st.AssignChef(entity.Chef{ID: payload.ID, Name: payload.Name}) {
		return b.WithError(errorbank.Conflict("chef already assigned", errorbank.WithDetail("id", payload.ID))).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(st.Stats()).Build()
}

func (h *Handler) unassign(c echo.Context) error {
	b := response.New(c)
	st, err := h.station(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid chef id", errorbank.WithCause(err))).Build()
	}
	if !st.UnassignChef(id) {
		return b.WithError(errorbank.NotFound("chef not assigned", errorbank.WithDetail("id", id))).Build()
	}
	return b.WithData(st.Stats()).Build()
}

func (h *Handler) station(c echo.Context) (*kitchen.Station, error) {
	category := entity.ParseCategory(c.Param("category"))
	st, ok := h.router.Station(category)
	if !ok {
		return nil, errorbank.NotFound("unknown station", errorbank.WithDetail("category", c.Param("category")))
	}
	return st, nil
}
