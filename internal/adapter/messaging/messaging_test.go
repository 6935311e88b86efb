package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rl1809/stock-tracker/internal/core/domain"
)

func testEvent() domain.StockEvent {
	return domain.StockEvent{
		ID:       "evt-1",
		Action:   domain.StockActionRemoved,
		Item:     "apple",
		Delta:    -2,
		Quantity: 8,
		At:       time.Date(2025, 10, 17, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewMessage(t *testing.T) {
	msg, err := newMessage(testEvent())
	if err != nil {
		t.Fatalf("newMessage: %v", err)
	}

	if string(msg.Key) != "apple" {
		t.Errorf("expected key apple, got %s", msg.Key)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[1].Value) != "removed" {
		t.Errorf("unexpected headers: %v", msg.Headers)
	}

	var decoded domain.StockEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := testEvent()
	if decoded.ID != want.ID || decoded.Item != want.Item || decoded.Delta != want.Delta || !decoded.At.Equal(want.At) {
		t.Errorf("expected %+v, got %+v", want, decoded)
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	if err := p.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	entries := logs.FilterMessage("stock event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["item"] != "apple" {
		t.Errorf("unexpected fields: %v", entries[0].ContextMap())
	}
}
