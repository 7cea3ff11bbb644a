package broker

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"matchbook/internal/book"
)

// The wire types below mirror spec §6.3 exactly: decimal fields travel as
// strings so precision survives JSON round-tripping through the broker.

type tradeWire struct {
	ID           uuid.UUID `json:"id"`
	TakerOrderID uuid.UUID `json:"taker_order_id"`
	MakerOrderID uuid.UUID `json:"maker_order_id"`
	Price        string    `json:"price"`
	Quantity     string    `json:"quantity"`
	Timestamp    time.Time `json:"timestamp"`
}

func toTradeWire(t book.Trade) tradeWire {
	return tradeWire{
		ID:           t.ID,
		TakerOrderID: t.TakerOrderID,
		MakerOrderID: t.MakerOrderID,
		Price:        t.Price.String(),
		Quantity:     t.Quantity.String(),
		Timestamp:    t.Timestamp,
	}
}

type deltaWire struct {
	Action      string `json:"action"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	NewQuantity string `json:"new_quantity"`
}

func deltaActionWire(a book.DeltaAction) string {
	switch a {
	case book.DeltaNew:
		return "New"
	case book.DeltaDelete:
		return "Delete"
	default:
		return "Update"
	}
}

func sideWire(s book.Side) string {
	if s == book.Buy {
		return "Buy"
	}
	return "Sell"
}

func toDeltaWire(d book.Delta) deltaWire {
	return deltaWire{
		Action:      deltaActionWire(d.Action),
		Side:        sideWire(d.Side),
		Price:       d.Price.String(),
		NewQuantity: d.NewQuantity.String(),
	}
}

type snapshotLevelWire struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

type snapshotWire struct {
	Symbol          string              `json:"symbol"`
	Bids            []snapshotLevelWire `json:"bids"`
	Asks            []snapshotLevelWire `json:"asks"`
	LastTradedPrice *string             `json:"last_traded_price"`
	Timestamp       time.Time           `json:"timestamp"`
}

func toSnapshotWire(s book.Snapshot) snapshotWire {
	wire := snapshotWire{
		Symbol:    s.Symbol,
		Bids:      make([]snapshotLevelWire, len(s.Bids)),
		Asks:      make([]snapshotLevelWire, len(s.Asks)),
		Timestamp: s.Timestamp,
	}
	for i, lvl := range s.Bids {
		wire.Bids[i] = snapshotLevelWire{Price: lvl.Price.String(), Quantity: lvl.Quantity.String()}
	}
	for i, lvl := range s.Asks {
		wire.Asks[i] = snapshotLevelWire{Price: lvl.Price.String(), Quantity: lvl.Quantity.String()}
	}
	if s.LastTradedPrice != nil {
		str := s.LastTradedPrice.String()
		wire.LastTradedPrice = &str
	}
	return wire
}

// sortedSetScore computes the materialized-book sorted-set score for a
// price per spec §6.4: negative for bids (so ZRANGE best-first matches
// descending price), positive for asks.
func sortedSetScore(side book.Side, price decimal.Decimal) float64 {
	f, _ := price.Float64()
	if side == book.Buy {
		return -f
	}
	return f
}

// sortedSetMember formats the "<price>:<aggregate_quantity>" member string.
func sortedSetMember(price, quantity decimal.Decimal) string {
	return price.String() + ":" + quantity.String()
}
