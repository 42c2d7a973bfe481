package journal

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/fulfillment/internal/entity"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Recent serves the in-process journal ring.
type Recent interface {
	Recent(topic string, n int) []entity.JournalEntry
	Dropped() int64
}

// Archive serves persisted journal entries.
type Archive interface {
	Enabled() bool
	ListByTopic(ctx context.Context, topic string, limit int) ([]entity.JournalEntry, error)
}

// Handler exposes the activity journal.
type Handler struct {
	recent  Recent
	archive Archive
}

// NewHandler constructs a journal Handler. archive may be nil.
func NewHandler(recent Recent, archive Archive) *Handler {
	return &Handler{recent: recent, archive: archive}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/journal", h.list)
}

// list serves ?topic=&limit=; source=db reads the database mirror instead of
// the ring.
func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	topic := strings.ToLower(strings.TrimSpace(c.QueryParam("topic")))
	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return b.WithError(errorbank.BadRequest("limit must be a positive integer", errorbank.WithDetail("limit", raw))).Build()
		}
		limit = min(n, maxLimit)
	}

	if c.QueryParam("source") == "db" {
		if h.archive == nil || !h.archive.Enabled() {
			return b.WithError(errorbank.Unavailable("journal database is not configured")).Build()
		}
		entries, err := h.archive.ListByTopic(c.Request().Context(), topic, limit)
		if err != nil {
			return b.WithError(errorbank.Internal("read journal", errorbank.WithCause(err))).Build()
		}
		return b.WithData(entries).WithMeta("source", "db").Build()
	}

	return b.WithData(h.recent.Recent(topic, limit)).
		WithMeta("source", "memory").
		WithMeta("dropped", h.recent.Dropped()).
		Build()
}
