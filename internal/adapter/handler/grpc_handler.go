package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/rl1809/stock-tracker/internal/config"
)

// GRPCHandler serves the standard health service for the inventory process.
type GRPCHandler struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewGRPCHandler(logger *zap.Logger) *GRPCHandler {
	h := &GRPCHandler{
		health: health.NewServer(),
		logger: logger,
	}

	h.server = grpc.NewServer(grpc.ChainUnaryInterceptor(h.logUnary))
	healthpb.RegisterHealthServer(h.server, h.health)
	reflection.Register(h.server)

	h.health.SetServingStatus(config.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

func (h *GRPCHandler) Server() *grpc.Server {
	return h.server
}

// Shutdown marks every service NOT_SERVING and drains in-flight calls.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

func (h *GRPCHandler) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)

	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.Duration("duration", time.Since(start)),
		zap.String("code", status.Code(err).String()),
	}
	if err != nil {
		h.logger.Warn("grpc call failed", append(fields, zap.Error(err))...)
	} else {
		h.logger.Debug("grpc call", fields...)
	}
	return resp, err
}
