// Package book implements the in-memory, per-symbol limit order book: price
// levels, the matching engine, and the trade/delta/snapshot records it
// produces.
package book

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side identifies which side of the book an order rests on or crosses into.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

// OrderType distinguishes resting limit orders from immediate-or-discard
// market orders.
type OrderType int

const (
	// Limit orders trade at their limit price or better and rest on the
	// book when they can't fully cross.
	LimitOrder OrderType = iota
	// Market orders trade against whatever liquidity is available and are
	// never inserted into the book.
	MarketOrder
)

// Order is an admitted command to buy or sell some quantity of the symbol.
// Price is ignored for Market orders but preserved on the record for
// auditing. Quantity is mutated in place as the order is matched; it never
// goes negative and an order is removed once it reaches zero.
type Order struct {
	ID        uuid.UUID
	UserID    uint64
	OrderType OrderType
	Side      Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp time.Time
}

// Trade is an immutable record of one match between a taker and a maker.
type Trade struct {
	ID           uuid.UUID
	TakerOrderID uuid.UUID
	MakerOrderID uuid.UUID
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Timestamp    time.Time
}

// DeltaAction describes how a price level's aggregate changed.
type DeltaAction int

const (
	DeltaNew DeltaAction = iota
	DeltaUpdate
	DeltaDelete
)

func (a DeltaAction) String() string {
	switch a {
	case DeltaNew:
		return "New"
	case DeltaUpdate:
		return "Update"
	case DeltaDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Delta describes the post-mutation aggregate quantity at one price level.
// Consumers that apply deltas in receipt order can reconstruct the
// aggregate book without ever seeing a Trade.
type Delta struct {
	Action      DeltaAction
	Side        Side
	Price       decimal.Decimal
	NewQuantity decimal.Decimal
}

// SnapshotLevel is one row of a Snapshot: a price and its aggregate
// resting quantity.
type SnapshotLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Snapshot is a consistent, best-first view of both sides of the book at
// an instant. It never mutates book state, and apart from Timestamp (the
// wall-clock time it was taken) it is a pure function of that state.
type Snapshot struct {
	Symbol          string
	Bids            []SnapshotLevel
	Asks            []SnapshotLevel
	LastTradedPrice *decimal.Decimal
	Timestamp       time.Time
}
