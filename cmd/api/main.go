package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/fulfillment/internal/app"
)

// main serves the HTTP and gRPC surfaces over the kitchen pipeline.
func main() {
	fx.New(
		app.HTTP,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	).Run()
}
