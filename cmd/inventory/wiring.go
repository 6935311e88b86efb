package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/adapter/messaging"
	"github.com/rl1809/stock-tracker/internal/adapter/storage"
	"github.com/rl1809/stock-tracker/internal/config"
	"github.com/rl1809/stock-tracker/internal/port"
)

// openRepository connects the configured snapshot backend. The returned
// function releases its connections.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.SnapshotRepository, func() error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 10,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisAdapter(rdb), rdb.Close, nil

	case config.BackendMySQL, config.BackendPostgres:
		dsn := cfg.MySQLDSN
		if cfg.Backend == config.BackendPostgres {
			dsn = cfg.PostgresDSN
		}

		db, err := sql.Open(cfg.Backend, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Backend, err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping %s: %w", cfg.Backend, err)
		}

		adapter := storage.NewSQLAdapter(db, storage.Dialect(cfg.Backend))
		if err := adapter.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to database", zap.String("backend", cfg.Backend))
		return adapter, db.Close, nil

	default:
		return storage.NewFileAdapter(), func() error { return nil }, nil
	}
}

func newPublisher(cfg *config.Config, logger *zap.Logger) port.EventPublisher {
	if cfg.KafkaBroker == "" {
		return messaging.NewLogPublisher(logger)
	}
	logger.Info("publishing stock events to kafka",
		zap.String("broker", cfg.KafkaBroker),
		zap.String("topic", cfg.KafkaTopic),
	)
	return messaging.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
}
