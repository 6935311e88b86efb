package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidItem     = errors.New("item must be a string")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// StockLevel is the quantity held for a single item.
type StockLevel struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Snapshot is the full content of a store, in insertion order.
type Snapshot []StockLevel

// Get returns the quantity recorded for item and whether it is present.
func (s Snapshot) Get(item string) (int, bool) {
	for _, lvl := range s {
		if lvl.Item == item {
			return lvl.Quantity, true
		}
	}
	return 0, false
}

// Mutation is a validated add or remove request.
type Mutation struct {
	Item     string
	Quantity int
}

// ParseMutation type-checks an item/quantity pair decoded from an untyped
// source such as a JSON body decoded with UseNumber. Any string is a valid
// item, the empty one included. The quantity must be an integer: floats,
// booleans and numeric strings are rejected.
func ParseMutation(item, quantity any) (Mutation, error) {
	name, ok := item.(string)
	if !ok {
		return Mutation{}, fmt.Errorf("%w: %T", ErrInvalidItem, item)
	}

	qty, err := toInt(quantity)
	if err != nil {
		return Mutation{}, err
	}

	return Mutation{Item: name, Quantity: qty}, nil
}

func toInt(v any) (int, error) {
	switch q := v.(type) {
	case int:
		return q, nil
	case int32:
		return int(q), nil
	case int64:
		if q > math.MaxInt || q < math.MinInt {
			return 0, fmt.Errorf("%w: %d out of range", ErrInvalidQuantity, q)
		}
		return int(q), nil
	case json.Number:
		n, err := q.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, q.String())
		}
		return toInt(n)
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidQuantity, v)
	}
}
