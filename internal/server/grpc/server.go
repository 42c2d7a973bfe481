package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/fulfillment/internal/activity"
	"github.com/Additional-Code/fulfillment/internal/config"
	"github.com/Additional-Code/fulfillment/internal/kitchen"
)

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, NewKitchenHealth),
	fx.Invoke(Run),
)

// NewServer builds a gRPC server with logging and panic recovery interceptors.
func NewServer(logger *zap.Logger, kh *KitchenHealth) *grpc.Server {
	unary := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc handler panicked", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
			if err != nil {
				logger.Warn("grpc unary call finished", zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start)), zap.Error(err))
			} else {
				logger.Debug("grpc unary call finished", zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start)))
			}
		}()
		return handler(ctx, req)
	}

	stream := func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		duration := time.Since(start)
		if err != nil {
			logger.Warn("grpc stream call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration), zap.Error(err))
		} else {
			logger.Debug("grpc stream call finished", zap.String("method", info.FullMethod), zap.Duration("duration", duration))
		}
		return err
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
	healthpb.RegisterHealthServer(server, kh.Server())
	return server
}

// ServiceName is the health service name for a station category.
func ServiceName(c fmt.Stringer) string {
	return "station." + c.String()
}

// Pausable is the idle monitor surface the health service follows.
type Pausable interface {
	Subscribe(fn func(paused bool))
}

// KitchenHealth mirrors station state into grpc.health.v1. The overall
// service ("") and every station are NOT_SERVING while the kitchen is paused.
type KitchenHealth struct {
	server   *health.Server
	services []string
}

// NewKitchenHealth registers one health entry per station and follows the monitor.
func NewKitchenHealth(router *kitchen.Router, monitor *activity.Monitor) *KitchenHealth {
	return newKitchenHealth(router.Stations(), monitor)
}

func newKitchenHealth(stations []*kitchen.Station, monitor Pausable) *KitchenHealth {
	kh := &KitchenHealth{server: health.NewServer(), services: []string{""}}
	for _, st := range stations {
		kh.services = append(kh.services, ServiceName(st.Category()))
	}
	kh.set(healthpb.HealthCheckResponse_NOT_SERVING)
	if monitor != nil {
		monitor.Subscribe(func(paused bool) {
			if paused {
				kh.set(healthpb.HealthCheckResponse_NOT_SERVING)
				return
			}
			kh.set(healthpb.HealthCheckResponse_SERVING)
		})
	}
	return kh
}

// Server is the grpc.health.v1 implementation.
func (kh *KitchenHealth) Server() *health.Server { return kh.server }

// Serving marks every service SERVING.
func (kh *KitchenHealth) Serving() { kh.set(healthpb.HealthCheckResponse_SERVING) }

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (kh *KitchenHealth) Shutdown() { kh.server.Shutdown() }

func (kh *KitchenHealth) set(s healthpb.HealthCheckResponse_ServingStatus) {
	for _, name := range kh.services {
		kh.server.SetServingStatus(name, s)
	}
}

// Run binds the gRPC server to the configured host/port and manages lifecycle.
func Run(lc fx.Lifecycle, cfg config.Config, server *grpc.Server, kh *KitchenHealth, logger *zap.Logger) {
	if !cfg.GRPC.Enabled {
		logger.Info("gRPC server disabled")
		return
	}
	addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	var listener net.Listener

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			listener = ln
			kh.Serving()
			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Fatal("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			kh.Shutdown()
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				if listener != nil {
					_ = listener.Close()
				}
				return nil
			}
		},
	})
}
