package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/port"
)

const snapshotKeyPrefix = "inventory:"

// RedisAdapter stores each snapshot as the same JSON document the file
// backend writes, under inventory:<name>.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	key := snapshotKeyPrefix + name

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", port.ErrSnapshotNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return decodeSnapshot(data)
}

func (r *RedisAdapter) Save(ctx context.Context, name string, snapshot domain.Snapshot) error {
	key := snapshotKeyPrefix + name

	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *RedisAdapter) Delete(ctx context.Context, name string) error {
	return r.client.Del(ctx, snapshotKeyPrefix+name).Err()
}
