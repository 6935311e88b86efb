package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/stock-tracker/internal/adapter/messaging"
	"github.com/rl1809/stock-tracker/internal/adapter/storage"
	"github.com/rl1809/stock-tracker/internal/config"
	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/core/service"
)

// Mock EventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.StockEvent
	fail   map[string]bool
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.StockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail[event.Item] {
		return errors.New("broker unavailable")
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func TestWorkerLoop_PublishesEvents(t *testing.T) {
	publisher := &mockPublisher{fail: map[string]bool{"cursed": true}}
	inventory := service.NewInventoryService(storage.NewFileAdapter(), zap.NewNop(), service.WithEventQueue(100))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, inventory.Events(), publisher, zap.NewNop())
		}(i)
	}

	inventory.Add("apple", 10, nil)
	inventory.Add("cursed", 1, nil)
	inventory.Remove("apple", 10)

	inventory.Close()
	wg.Wait()

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(publisher.events))
	}
	for _, e := range publisher.events {
		if e.Item != "apple" {
			t.Errorf("unexpected event: %+v", e)
		}
	}
}

func TestOpenRepository_File(t *testing.T) {
	cfg := config.Default()

	repo, closeRepo, err := openRepository(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeRepo()

	if _, ok := repo.(*storage.FileAdapter); !ok {
		t.Errorf("expected file adapter, got %T", repo)
	}
}

func TestOpenRepository_Redis(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = config.BackendRedis
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	repo, closeRepo, err := openRepository(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer closeRepo()

	// Full flow: mutate, save to Redis, reload into a fresh store
	inventory := service.NewInventoryService(repo, zap.NewNop())
	inventory.Add("integration-item", 7, nil)
	if err := inventory.Save(ctx, "integration-test"); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := service.NewInventoryService(repo, zap.NewNop())
	if err := reloaded.Load(ctx, "integration-test"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Quantity("integration-item") != 7 {
		t.Errorf("expected 7, got %d", reloaded.Quantity("integration-item"))
	}

	repo.(*storage.RedisAdapter).Delete(ctx, "integration-test")
}

func TestNewPublisher(t *testing.T) {
	cfg := config.Default()
	if _, ok := newPublisher(cfg, zap.NewNop()).(*messaging.LogPublisher); !ok {
		t.Error("expected log publisher without a broker")
	}

	cfg.KafkaBroker = "localhost:9092"
	p := newPublisher(cfg, zap.NewNop())
	defer p.Close()
	if _, ok := p.(*messaging.KafkaPublisher); !ok {
		t.Errorf("expected kafka publisher, got %T", p)
	}
}

func newServeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Snapshot = filepath.Join(t.TempDir(), "inventory.json")
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.WorkerCount = 2
	return cfg
}

func TestServe_LoadFailureReleasesResources(t *testing.T) {
	cfg := newServeConfig(t)
	if err := os.WriteFile(cfg.Snapshot, []byte("not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	core, logs := observer.New(zapcore.InfoLevel)

	err := serve(context.Background(), cfg, zap.New(core), io.Discard)
	if err == nil {
		t.Fatal("expected load error")
	}
	if logs.FilterMessage("started event workers").Len() != 0 {
		t.Error("workers should not start when the snapshot cannot be loaded")
	}
	if logs.FilterMessage("connections closed").Len() != 1 {
		t.Error("expected connections to be closed on the error path")
	}
}

func TestServe_ListenFailureReleasesResources(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := newServeConfig(t)
	cfg.GRPCAddr = busy.Addr().String()
	core, logs := observer.New(zapcore.InfoLevel)

	if err := serve(context.Background(), cfg, zap.New(core), io.Discard); err == nil {
		t.Fatal("expected listen error")
	}
	if logs.FilterMessage("started event workers").Len() != 0 {
		t.Error("workers should not start when the gRPC port is taken")
	}
	if logs.FilterMessage("connections closed").Len() != 1 {
		t.Error("expected connections to be closed on the error path")
	}
}

func TestServe_ShutdownSavesSnapshot(t *testing.T) {
	cfg := newServeConfig(t)
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, zap.New(core), io.Discard)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	if _, err := os.Stat(cfg.Snapshot); err != nil {
		t.Errorf("expected snapshot written on shutdown: %v", err)
	}
	for _, msg := range []string{"workers stopped", "connections closed"} {
		if logs.FilterMessage(msg).Len() != 1 {
			t.Errorf("expected %q to be logged once", msg)
		}
	}
}
