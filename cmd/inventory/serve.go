package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/adapter/handler"
	"github.com/rl1809/stock-tracker/internal/config"
	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/core/service"
	"github.com/rl1809/stock-tracker/internal/platform/logging"
	"github.com/rl1809/stock-tracker/internal/platform/tracing"
	"github.com/rl1809/stock-tracker/internal/port"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the inventory over HTTP and gRPC",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, os.Stdout)
}

// serve runs the HTTP and gRPC servers until ctx is done. Every resource is
// released on return, including the early error paths, in reverse order of
// acquisition.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, traceOut io.Writer) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	tp, shutdownTracing, err := tracing.Setup(ctx, cfg, traceOut)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to shutdown tracing", zap.Error(err))
		}
		logger.Info("connections closed")
	}()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(); err != nil {
			logger.Error("failed to close repository", zap.Error(err))
		}
	}()

	publisher := newPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to close publisher", zap.Error(err))
		}
	}()

	inventory := service.NewInventoryService(repo, logger,
		service.WithTracer(tp.Tracer(config.ServiceName)),
		service.WithEventQueue(cfg.QueueSize),
	)
	if err := inventory.Load(ctx, cfg.Snapshot); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, inventory.Events(), publisher, logger)
		}(i)
	}
	logger.Info("started event workers", zap.Int("count", cfg.WorkerCount))
	defer func() {
		inventory.Close()
		wg.Wait()
		logger.Info("workers stopped")
	}()

	// Start gRPC server
	grpcHandler := handler.NewGRPCHandler(logger)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcHandler.Server().Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Start HTTP server
	httpHandler := handler.NewHTTPHandler(inventory, logger, cfg.Snapshot, cfg.LowStockThreshold)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Router(),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcHandler.Shutdown()
	logger.Info("gRPC server stopped")

	// No requests are in flight any more, so the store can be saved directly
	if err := inventory.Save(shutdownCtx, cfg.Snapshot); err != nil {
		logger.Error("failed to save snapshot on shutdown", zap.Error(err))
	}
	return nil
}

func workerLoop(id int, queue <-chan domain.StockEvent, publisher port.EventPublisher, logger *zap.Logger) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), config.PublishTimeout)

		if err := publisher.Publish(ctx, event); err != nil {
			logger.Error("failed to publish stock event",
				zap.Int("worker", id),
				zap.String("event_id", event.ID),
				zap.String("item", event.Item),
				zap.Error(err),
			)
		}

		cancel()
	}
}
