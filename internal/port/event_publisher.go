package port

import (
	"context"

	"github.com/rl1809/stock-tracker/internal/core/domain"
)

type EventPublisher interface {
	// Publish delivers a single stock event downstream
	Publish(ctx context.Context, event domain.StockEvent) error

	Close() error
}
