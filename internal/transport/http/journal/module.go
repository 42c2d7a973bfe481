package journal

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/fulfillment/internal/journal"
	repojournal "github.com/Additional-Code/fulfillment/internal/repository/journal"
)

// Module wires the journal handler.
var Module = fx.Options(
	fx.Provide(func(r *journal.Recorder, repo *repojournal.Repository) *Handler {
		return NewHandler(r, repo)
	}),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)
