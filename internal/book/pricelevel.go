package book

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of resting orders at one price, plus a cached
// aggregate quantity so the book never has to re-sum it.
type PriceLevel struct {
	Price         decimal.Decimal
	Orders        []*Order
	TotalQuantity decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:         price,
		TotalQuantity: decimal.Zero,
	}
}

// append pushes an order to the tail of the level and bumps the aggregate.
func (lvl *PriceLevel) append(order *Order) {
	lvl.Orders = append(lvl.Orders, order)
	lvl.TotalQuantity = lvl.TotalQuantity.Add(order.Quantity)
}

// matchAgainst consumes resting orders from the head of the level against
// taker, trading at tradePrice (the maker's price — price improvement
// accrues to the taker), until the taker is exhausted or the level empties.
// Fully consumed makers are popped from the head. Returns the trades
// produced in maker order.
func (lvl *PriceLevel) matchAgainst(taker *Order, tradePrice decimal.Decimal, newTrade func(taker, maker *Order, qty decimal.Decimal) Trade) []Trade {
	var trades []Trade

	consumed := 0
	for consumed < len(lvl.Orders) && taker.Quantity.IsPositive() {
		maker := lvl.Orders[consumed]

		qty := taker.Quantity
		if maker.Quantity.LessThan(qty) {
			qty = maker.Quantity
		}

		taker.Quantity = taker.Quantity.Sub(qty)
		maker.Quantity = maker.Quantity.Sub(qty)
		lvl.TotalQuantity = lvl.TotalQuantity.Sub(qty)

		trades = append(trades, newTrade(taker, maker, qty))

		if maker.Quantity.IsZero() {
			consumed++
		}
	}

	if consumed > 0 {
		lvl.Orders = lvl.Orders[consumed:]
	}

	return trades
}

// remove splices the order with the given id out of the level's FIFO,
// decrementing the aggregate. Returns the removed order, or nil if no such
// order is resting at this level.
func (lvl *PriceLevel) remove(id func(*Order) bool) *Order {
	for i, o := range lvl.Orders {
		if !id(o) {
			continue
		}
		lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
		lvl.TotalQuantity = lvl.TotalQuantity.Sub(o.Quantity)
		return o
	}
	return nil
}

// empty reports whether the level has no resting orders and should be
// dropped from its side map.
func (lvl *PriceLevel) empty() bool {
	return len(lvl.Orders) == 0
}
