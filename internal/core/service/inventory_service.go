package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/port"
)

var ErrItemNotFound = errors.New("item not found")

const (
	DefaultSnapshot  = "inventory.json"
	DefaultThreshold = 5

	logEntryTimeLayout      = "2006-01-02 15:04:05.000000"
	logEntryWholeTimeLayout = "2006-01-02 15:04:05"
)

// InventoryService holds the item -> quantity mapping and every operation on
// it. It is not safe for concurrent use; callers serialize access.
type InventoryService struct {
	repo       port.SnapshotRepository
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	stock      *orderedmap.OrderedMap[string, int]
	eventQueue chan domain.StockEvent
}

type Option func(*InventoryService)

func WithTracer(tracer trace.Tracer) Option {
	return func(s *InventoryService) {
		s.tracer = tracer
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *InventoryService) {
		s.now = now
	}
}

// WithEventQueue makes the service emit a StockEvent for every successful
// mutation into a buffered channel of the given size. See Events.
func WithEventQueue(size int) Option {
	return func(s *InventoryService) {
		s.eventQueue = make(chan domain.StockEvent, size)
	}
}

func NewInventoryService(repo port.SnapshotRepository, logger *zap.Logger, opts ...Option) *InventoryService {
	s := &InventoryService{
		repo:   repo,
		logger: logger,
		tracer: noop.NewTracerProvider().Tracer(""),
		now:    time.Now,
		stock:  orderedmap.New[string, int](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add increments the quantity of item by qty and returns log with a new entry
// appended. Any string is a valid item name, the empty one included; type
// checks on untyped input happen in domain.ParseMutation. Negative quantities
// are accepted, and an item whose total drops to zero or below is removed.
func (s *InventoryService) Add(item string, qty int, log []string) []string {
	current, _ := s.stock.Get(item)
	total := current + qty

	action := domain.StockActionAdded
	if total <= 0 {
		s.stock.Delete(item)
		action = domain.StockActionDeleted
	} else {
		s.stock.Set(item, total)
	}

	log = append(log, fmt.Sprintf("%s: Added %d of %s", formatLogTime(s.now()), qty, item))
	s.logger.Info("added stock", zap.String("item", item), zap.Int("quantity", qty))

	s.enqueue(action, item, qty, max(total, 0))
	return log
}

// Remove decrements the quantity of item by qty, dropping the item once it
// reaches zero or below. Unknown items are logged and otherwise ignored.
func (s *InventoryService) Remove(item string, qty int) {
	if err := s.remove(item, qty); err != nil {
		s.logger.Warn("item not found in stock", zap.String("item", item), zap.Error(err))
		return
	}

	s.logger.Info("removed stock", zap.String("item", item), zap.Int("quantity", qty))
}

func (s *InventoryService) remove(item string, qty int) error {
	current, ok := s.stock.Get(item)
	if !ok {
		return ErrItemNotFound
	}

	total := current - qty
	if total <= 0 {
		s.stock.Delete(item)
		s.enqueue(domain.StockActionDeleted, item, -qty, 0)
		return nil
	}

	s.stock.Set(item, total)
	s.enqueue(domain.StockActionRemoved, item, -qty, total)
	return nil
}

// Quantity returns the stored quantity of item, or 0 if it is not tracked.
func (s *InventoryService) Quantity(item string) int {
	qty, _ := s.stock.Get(item)
	return qty
}

// ListBelow returns the items whose quantity is strictly less than threshold,
// in insertion order.
func (s *InventoryService) ListBelow(threshold int) []string {
	items := make([]string, 0)
	for pair := s.stock.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value < threshold {
			items = append(items, pair.Key)
		}
	}
	return items
}

// Contains reports whether item is tracked.
func (s *InventoryService) Contains(item string) bool {
	_, ok := s.stock.Get(item)
	return ok
}

func (s *InventoryService) Len() int {
	return s.stock.Len()
}

// Snapshot copies the current content of the store.
func (s *InventoryService) Snapshot() domain.Snapshot {
	snapshot := make(domain.Snapshot, 0, s.stock.Len())
	for pair := s.stock.Oldest(); pair != nil; pair = pair.Next() {
		snapshot = append(snapshot, domain.StockLevel{Item: pair.Key, Quantity: pair.Value})
	}
	return snapshot
}

// Load replaces the whole store with the snapshot saved under name. A missing
// snapshot resets the store to empty; any other failure is returned and the
// store is left untouched.
func (s *InventoryService) Load(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.load")
	defer span.End()

	span.SetAttributes(attribute.String("snapshot.name", name))

	snapshot, err := s.repo.Load(ctx, name)
	if errors.Is(err, port.ErrSnapshotNotFound) {
		s.logger.Warn("snapshot not found, starting with empty stock", zap.String("snapshot", name))
		s.stock = orderedmap.New[string, int]()
		span.SetAttributes(attribute.Int("inventory.items", 0))
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return fmt.Errorf("load snapshot %s: %w", name, err)
	}

	stock := orderedmap.New[string, int]()
	for _, lvl := range snapshot {
		stock.Set(lvl.Item, lvl.Quantity)
	}
	s.stock = stock

	span.SetAttributes(attribute.Int("inventory.items", stock.Len()))
	s.logger.Info("inventory loaded", zap.String("snapshot", name), zap.Int("items", stock.Len()))
	return nil
}

// Save writes the whole store under name, overwriting any previous snapshot.
func (s *InventoryService) Save(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.save")
	defer span.End()

	snapshot := s.Snapshot()
	span.SetAttributes(
		attribute.String("snapshot.name", name),
		attribute.Int("inventory.items", len(snapshot)),
	)

	if err := s.repo.Save(ctx, name, snapshot); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}

	s.logger.Info("inventory saved", zap.String("snapshot", name), zap.Int("items", len(snapshot)))
	return nil
}

// Report writes one "<item> -> <qty>" line per item under an "Items Report:" header.
func (s *InventoryService) Report(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "Items Report:"); err != nil {
		return err
	}
	for pair := s.stock.Oldest(); pair != nil; pair = pair.Next() {
		if _, err := fmt.Fprintf(w, "%s -> %d\n", pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// formatLogTime prints t with microseconds, leaving the fraction out entirely
// when it is zero.
func formatLogTime(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(logEntryWholeTimeLayout)
	}
	return t.Format(logEntryTimeLayout)
}

// Events returns the stock event queue, nil unless WithEventQueue was given.
func (s *InventoryService) Events() <-chan domain.StockEvent {
	return s.eventQueue
}

func (s *InventoryService) Close() {
	if s.eventQueue != nil {
		close(s.eventQueue)
	}
}

func (s *InventoryService) enqueue(action domain.StockAction, item string, delta, quantity int) {
	if s.eventQueue == nil {
		return
	}

	event := domain.StockEvent{
		ID:       uuid.NewString(),
		Action:   action,
		Item:     item,
		Delta:    delta,
		Quantity: quantity,
		At:       s.now(),
	}

	// mutations never wait on the publishers
	select {
	case s.eventQueue <- event:
	default:
		s.logger.Warn("event queue full, dropping stock event",
			zap.String("item", item),
			zap.String("action", string(action)),
		)
	}
}
