package book

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

var (
	// ErrOrderNotFound is returned by CancelOrder when the id is unknown.
	ErrOrderNotFound = errors.New("book: order not found")
	// ErrInconsistentBook is returned by CancelOrder when an order is
	// indexed but is not actually resting at its recorded side/price. This
	// is a defensive error: it signals an I1 invariant violation rather
	// than ordinary caller misuse.
	ErrInconsistentBook = errors.New("book: order indexed but not resting at recorded price")
)

type levelTree = btree.BTreeG[*PriceLevel]

// indexEntry is what the order-id index remembers about a resting order so
// cancellation doesn't have to search both sides of the book.
type indexEntry struct {
	side  Side
	price decimal.Decimal
}

// OrderBook is the matching engine for one symbol: two price-indexed sides
// of resting orders plus an id index, implementing price-time priority
// matching for limit and market orders and cancellation. Every exported
// method assumes the caller already holds exclusive access (see
// internal/processor) — OrderBook itself does no locking.
type OrderBook struct {
	Symbol string

	bids *levelTree // highest price first
	asks *levelTree // lowest price first

	index map[uuid.UUID]indexEntry

	lastTradedPrice *decimal.Decimal
}

// New constructs an empty order book for symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price.GreaterThan(b.Price)
		}),
		asks: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price.LessThan(b.Price)
		}),
		index: make(map[uuid.UUID]indexEntry),
	}
}

// sideTree returns the tree an order of this side rests on.
func (book *OrderBook) sideTree(side Side) *levelTree {
	if side == Buy {
		return book.bids
	}
	return book.asks
}

// opposingTree returns the tree a taker of this side crosses into.
func (book *OrderBook) opposingTree(side Side) *levelTree {
	if side == Buy {
		return book.asks
	}
	return book.bids
}

// crosses reports whether a resting level at levelPrice on the opposing
// side still crosses with a limit taker of the given side and limit price.
func crosses(side Side, limitPrice, levelPrice decimal.Decimal) bool {
	if side == Buy {
		return levelPrice.LessThanOrEqual(limitPrice)
	}
	return levelPrice.GreaterThanOrEqual(limitPrice)
}

// AddOrder admits order into the book, dispatching by OrderType, and
// returns the trades and deltas it produced. A zero (or negative) quantity
// is a silent no-op. After AddOrder returns, invariants I1-I8 hold.
func (book *OrderBook) AddOrder(order Order) ([]Trade, []Delta) {
	if !order.Quantity.IsPositive() {
		return nil, nil
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now().UTC()
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	switch order.OrderType {
	case MarketOrder:
		return book.addMarket(&order)
	default:
		return book.addLimit(&order)
	}
}

func (book *OrderBook) newTrade(taker, maker *Order, qty decimal.Decimal, tradePrice decimal.Decimal) Trade {
	trade := Trade{
		ID:           uuid.New(),
		TakerOrderID: taker.ID,
		MakerOrderID: maker.ID,
		Price:        tradePrice,
		Quantity:     qty,
		Timestamp:    time.Now().UTC(),
	}
	book.lastTradedPrice = &trade.Price
	return trade
}

// addLimit implements spec §4.2.1.
func (book *OrderBook) addLimit(order *Order) ([]Trade, []Delta) {
	book.index[order.ID] = indexEntry{side: order.Side, price: order.Price}

	var trades []Trade
	var deltas []Delta

	opposing := book.opposingTree(order.Side)
	for order.Quantity.IsPositive() {
		best, ok := opposing.MinMut()
		if !ok || !crosses(order.Side, order.Price, best.Price) {
			break
		}

		levelTrades := best.matchAgainst(order, best.Price, func(taker, maker *Order, qty decimal.Decimal) Trade {
			return book.newTrade(taker, maker, qty, best.Price)
		})
		trades = append(trades, levelTrades...)

		if best.empty() {
			opposing.Delete(best)
			deltas = append(deltas, Delta{Action: DeltaDelete, Side: opposingSide(order.Side), Price: best.Price})
		} else {
			deltas = append(deltas, Delta{Action: DeltaUpdate, Side: opposingSide(order.Side), Price: best.Price, NewQuantity: best.TotalQuantity})
		}
	}

	if order.Quantity.IsPositive() {
		own := book.sideTree(order.Side)
		lvl, existed := own.GetMut(newPriceLevel(order.Price))
		if existed {
			lvl.append(order)
			deltas = append(deltas, Delta{Action: DeltaUpdate, Side: order.Side, Price: lvl.Price, NewQuantity: lvl.TotalQuantity})
		} else {
			lvl = newPriceLevel(order.Price)
			lvl.append(order)
			own.Set(lvl)
			deltas = append(deltas, Delta{Action: DeltaNew, Side: order.Side, Price: lvl.Price, NewQuantity: lvl.TotalQuantity})
		}
	} else {
		delete(book.index, order.ID)
	}

	return trades, deltas
}

// addMarket implements spec §4.2.2: no price gating, never rests, residual
// discarded silently.
func (book *OrderBook) addMarket(order *Order) ([]Trade, []Delta) {
	var trades []Trade
	var deltas []Delta

	opposing := book.opposingTree(order.Side)
	for order.Quantity.IsPositive() {
		best, ok := opposing.MinMut()
		if !ok {
			break
		}

		levelTrades := best.matchAgainst(order, best.Price, func(taker, maker *Order, qty decimal.Decimal) Trade {
			return book.newTrade(taker, maker, qty, best.Price)
		})
		trades = append(trades, levelTrades...)

		if best.empty() {
			opposing.Delete(best)
			deltas = append(deltas, Delta{Action: DeltaDelete, Side: opposingSide(order.Side), Price: best.Price})
		} else {
			deltas = append(deltas, Delta{Action: DeltaUpdate, Side: opposingSide(order.Side), Price: best.Price, NewQuantity: best.TotalQuantity})
		}
	}

	// Residual, if any, is discarded: market orders never rest (I6).
	return trades, deltas
}

func opposingSide(side Side) Side {
	if side == Buy {
		return Sell
	}
	return Buy
}

// CancelOrder removes a resting order from the book. Returns the removed
// order (with its remaining quantity) and at most one delta for the
// affected level.
func (book *OrderBook) CancelOrder(id uuid.UUID) (Order, []Delta, error) {
	entry, ok := book.index[id]
	if !ok {
		return Order{}, nil, ErrOrderNotFound
	}
	delete(book.index, id)

	tree := book.sideTree(entry.side)
	lvl, ok := tree.GetMut(newPriceLevel(entry.price))
	if !ok {
		return Order{}, nil, ErrInconsistentBook
	}

	removed := lvl.remove(func(o *Order) bool { return o.ID == id })
	if removed == nil {
		return Order{}, nil, ErrInconsistentBook
	}

	var deltas []Delta
	if lvl.empty() {
		tree.Delete(lvl)
		deltas = append(deltas, Delta{Action: DeltaDelete, Side: entry.side, Price: entry.price})
	} else {
		deltas = append(deltas, Delta{Action: DeltaUpdate, Side: entry.side, Price: entry.price, NewQuantity: lvl.TotalQuantity})
	}

	return *removed, deltas, nil
}

// Snapshot returns a consistent, best-first view of both sides. It never
// mutates book state.
func (book *OrderBook) Snapshot() Snapshot {
	snap := Snapshot{
		Symbol:          book.Symbol,
		LastTradedPrice: book.lastTradedPrice,
		Timestamp:       time.Now().UTC(),
	}

	book.bids.Scan(func(lvl *PriceLevel) bool {
		snap.Bids = append(snap.Bids, SnapshotLevel{Price: lvl.Price, Quantity: lvl.TotalQuantity})
		return true
	})
	book.asks.Scan(func(lvl *PriceLevel) bool {
		snap.Asks = append(snap.Asks, SnapshotLevel{Price: lvl.Price, Quantity: lvl.TotalQuantity})
		return true
	})

	return snap
}

// LastTradedPrice returns the price of the most recent trade produced by
// this book, or false if no trade has occurred yet.
func (book *OrderBook) LastTradedPrice() (decimal.Decimal, bool) {
	if book.lastTradedPrice == nil {
		return decimal.Decimal{}, false
	}
	return *book.lastTradedPrice, true
}

// BestBidAsk returns the current best bid and ask prices, if they exist.
// Used by the I8 crossed-book check in tests and by the processor's
// best-bid/best-ask gauges.
func (book *OrderBook) BestBidAsk() (bid, ask decimal.Decimal, haveBid, haveAsk bool) {
	if lvl, ok := book.bids.Min(); ok {
		bid, haveBid = lvl.Price, true
	}
	if lvl, ok := book.asks.Min(); ok {
		ask, haveAsk = lvl.Price, true
	}
	return
}

// Depth reports the number of distinct resting price levels on each side.
func (book *OrderBook) Depth() (bidLevels, askLevels int) {
	return book.bids.Len(), book.asks.Len()
}
