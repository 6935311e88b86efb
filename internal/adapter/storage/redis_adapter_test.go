package storage

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/port"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisAdapter_RoundTrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup
	adapter.Delete(ctx, "test-snapshot")
	defer adapter.Delete(ctx, "test-snapshot")

	snapshot := domain.Snapshot{
		{Item: "orange", Quantity: 5},
		{Item: "apple", Quantity: 8},
	}

	if err := adapter.Save(ctx, "test-snapshot", snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := adapter.Load(ctx, "test-snapshot")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, snapshot) {
		t.Errorf("expected %v, got %v", snapshot, got)
	}

	// Verify the stored document
	raw, _ := client.Get(ctx, "inventory:test-snapshot").Result()
	want := "{\n    \"orange\": 5,\n    \"apple\": 8\n}\n"
	if raw != want {
		t.Errorf("expected %q, got %q", want, raw)
	}
}

func TestRedisAdapter_Overwrite(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	defer adapter.Delete(ctx, "overwrite-snapshot")

	adapter.Save(ctx, "overwrite-snapshot", domain.Snapshot{{Item: "stale", Quantity: 1}})
	if err := adapter.Save(ctx, "overwrite-snapshot", domain.Snapshot{{Item: "fresh", Quantity: 2}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := adapter.Load(ctx, "overwrite-snapshot")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Item != "fresh" {
		t.Errorf("expected only fresh, got %v", got)
	}
}

func TestRedisAdapter_NotFound(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	// Setup - ensure key doesn't exist
	adapter.Delete(ctx, "nonexistent")

	_, err := adapter.Load(ctx, "nonexistent")
	if !errors.Is(err, port.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got: %v", err)
	}
}

func TestRedisAdapter_Malformed(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	defer adapter.Delete(ctx, "malformed")

	client.Set(ctx, "inventory:malformed", "not json", 0)

	_, err := adapter.Load(ctx, "malformed")
	if !errors.Is(err, ErrMalformedSnapshot) {
		t.Errorf("expected ErrMalformedSnapshot, got: %v", err)
	}
}
