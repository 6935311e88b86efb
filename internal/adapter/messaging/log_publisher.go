package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/core/domain"
)

// LogPublisher is used when no broker is configured: events only go to the log.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.StockEvent) error {
	p.logger.Info("stock event",
		zap.String("event_id", event.ID),
		zap.String("action", string(event.Action)),
		zap.String("item", event.Item),
		zap.Int("delta", event.Delta),
		zap.Int("quantity", event.Quantity),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
