package domain

import "time"

type StockAction string

const (
	StockActionAdded   StockAction = "added"
	StockActionRemoved StockAction = "removed"
	StockActionDeleted StockAction = "deleted" // quantity dropped to zero or below
)

// StockEvent describes a completed mutation of the store.
type StockEvent struct {
	ID       string      `json:"id"`
	Action   StockAction `json:"action"`
	Item     string      `json:"item"`
	Delta    int         `json:"delta"`
	Quantity int         `json:"quantity"`
	At       time.Time   `json:"at"`
}
