package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/observability"
	"github.com/Additional-Code/fulfillment/internal/presentation/http/response"
	"github.com/Additional-Code/fulfillment/pkg/errorbank"
)

// Module exposes the HTTP server lifecycle to Fx.
var Module = fx.Module("http_server",
	fx.Provide(NewEcho),
	fx.Invoke(Run),
)

// Health reports kitchen liveness for /health.
type Health interface {
	Paused() bool
	LastActivity() time.Time
}

// Params collects dependencies for the Echo router.
type Params struct {
	fx.In

	Config        config.Config
	Observability *observability.Manager
	Logger        *zap.Logger
	Health        Health `optional:"true"`
}

// NewEcho configures the Echo router with request ids, panic recovery and
// tracing.
func NewEcho(p Params) *echo.Echo {
	cfg, obs, logger := p.Config, p.Observability, p.Logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			c.Echo().DefaultHTTPErrorHandler(err, c)
			return
		}
		logger.Error("http request failed", zap.String("path", c.Path()), zap.Error(err))
		_ = response.New(c).WithError(errorbank.From(err)).Build()
	}

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if obs != nil && obs.TracingEnabled() {
		e.Use(otelecho.Middleware(cfg.Observability.ServiceName))
	}

	e.GET("/health", func(c echo.Context) error {
		body := map[string]any{"status": "ok"}
		if p.Health != nil {
			body["paused"] = p.Health.Paused()
			body["last_activity"] = p.Health.LastActivity()
		}
		return c.JSON(http.StatusOK, body)
	})

	if obs != nil && obs.MetricsEnabled() && obs.MetricsHandler() != nil {
		e.GET(cfg.Observability.PrometheusPath, echo.WrapHandler(obs.MetricsHandler()))
	}

	return e
}

// Run starts the HTTP server and ties it to the Fx lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, e *echo.Echo, logger *zap.Logger) {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting HTTP server", zap.String("addr", addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
