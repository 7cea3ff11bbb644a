package book

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers -----------------------------------------------------------

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func limitOrder(side Side, price, qty string) Order {
	return Order{
		ID:        uuid.New(),
		OrderType: LimitOrder,
		Side:      side,
		Price:     d(price),
		Quantity:  d(qty),
	}
}

func marketOrder(side Side, qty string) Order {
	return Order{
		ID:        uuid.New(),
		OrderType: MarketOrder,
		Side:      side,
		Quantity:  d(qty),
	}
}

func assertBestBidAskNonCrossed(t *testing.T, ob *OrderBook) {
	t.Helper()
	bid, ask, haveBid, haveAsk := ob.BestBidAsk()
	if haveBid && haveAsk {
		assert.True(t, bid.LessThan(ask), "crossed book: bid %s >= ask %s", bid, ask)
	}
}

// --- Scenario 1: simple cross -------------------------------------------

func TestSimpleCross(t *testing.T) {
	ob := New("BTC_USD")

	_, deltas := ob.AddOrder(limitOrder(Sell, "100", "10"))
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaNew, deltas[0].Action)

	trades, deltas := ob.AddOrder(limitOrder(Buy, "100", "10"))
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("100")))
	assert.True(t, trades[0].Quantity.Equal(d("10")))

	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaDelete, deltas[0].Action)
	assert.Equal(t, Sell, deltas[0].Side)

	snap := ob.Snapshot()
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)

	ltp, ok := ob.LastTradedPrice()
	require.True(t, ok)
	assert.True(t, ltp.Equal(d("100")))

	assertBestBidAskNonCrossed(t, ob)
}

// --- Scenario 2: price improvement --------------------------------------

func TestPriceImprovement(t *testing.T) {
	ob := New("BTC_USD")

	ob.AddOrder(limitOrder(Sell, "105", "10"))
	trades, deltas := ob.AddOrder(limitOrder(Buy, "110", "15"))

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("105")), "taker should get the maker's (better) price")
	assert.True(t, trades[0].Quantity.Equal(d("10")))

	require.Len(t, deltas, 2)
	assert.Equal(t, DeltaDelete, deltas[0].Action)
	assert.Equal(t, Sell, deltas[0].Side)
	assert.Equal(t, DeltaNew, deltas[1].Action)
	assert.Equal(t, Buy, deltas[1].Side)
	assert.True(t, deltas[1].NewQuantity.Equal(d("5")))

	snap := ob.Snapshot()
	require.Len(t, snap.Bids, 1)
	assert.True(t, snap.Bids[0].Price.Equal(d("110")))
	assert.True(t, snap.Bids[0].Quantity.Equal(d("5")))
	assert.Empty(t, snap.Asks)

	ltp, _ := ob.LastTradedPrice()
	assert.True(t, ltp.Equal(d("105")))
}

// --- Scenario 3: sweep multiple levels -----------------------------------

func TestSweepMultipleLevels(t *testing.T) {
	ob := New("BTC_USD")

	ob.AddOrder(limitOrder(Sell, "100", "5"))
	ob.AddOrder(limitOrder(Sell, "101", "5"))
	ob.AddOrder(limitOrder(Sell, "102", "5"))

	trades, deltas := ob.AddOrder(limitOrder(Buy, "102", "12"))

	require.Len(t, trades, 3)
	assert.True(t, trades[0].Price.Equal(d("100")))
	assert.True(t, trades[0].Quantity.Equal(d("5")))
	assert.True(t, trades[1].Price.Equal(d("101")))
	assert.True(t, trades[1].Quantity.Equal(d("5")))
	assert.True(t, trades[2].Price.Equal(d("102")))
	assert.True(t, trades[2].Quantity.Equal(d("2")))

	require.Len(t, deltas, 3)
	assert.Equal(t, DeltaDelete, deltas[0].Action)
	assert.Equal(t, DeltaDelete, deltas[1].Action)
	assert.Equal(t, DeltaUpdate, deltas[2].Action)
	assert.True(t, deltas[2].NewQuantity.Equal(d("3")))

	ltp, _ := ob.LastTradedPrice()
	assert.True(t, ltp.Equal(d("102")))
}

// --- Scenario 4: FIFO at a price level ------------------------------------

func TestFIFOAtPriceLevel(t *testing.T) {
	ob := New("BTC_USD")

	first := limitOrder(Sell, "100", "5")
	ob.AddOrder(first)
	time.Sleep(time.Millisecond)
	second := limitOrder(Sell, "100", "5")
	ob.AddOrder(second)

	trades, _ := ob.AddOrder(limitOrder(Buy, "100", "7"))

	require.Len(t, trades, 2)
	assert.Equal(t, first.ID, trades[0].MakerOrderID)
	assert.True(t, trades[0].Quantity.Equal(d("5")))
	assert.Equal(t, second.ID, trades[1].MakerOrderID)
	assert.True(t, trades[1].Quantity.Equal(d("2")))

	snap := ob.Snapshot()
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Quantity.Equal(d("3")))
}

// --- Scenario 5: cancel after partial fill --------------------------------

func TestCancelAfterPartialFill(t *testing.T) {
	ob := New("BTC_USD")

	sell := limitOrder(Sell, "100", "15")
	ob.AddOrder(sell)

	trades, _ := ob.AddOrder(limitOrder(Buy, "100", "10"))
	require.Len(t, trades, 1)

	removed, deltas, err := ob.CancelOrder(sell.ID)
	require.NoError(t, err)
	assert.True(t, removed.Quantity.Equal(d("5")))
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaDelete, deltas[0].Action)

	snap := ob.Snapshot()
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)
}

// --- Scenario 6: market order with insufficient liquidity -----------------

func TestMarketOrderInsufficientLiquidity(t *testing.T) {
	ob := New("BTC_USD")

	ob.AddOrder(limitOrder(Sell, "100", "5"))
	trades, deltas := ob.AddOrder(marketOrder(Buy, "10"))

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(d("100")))
	assert.True(t, trades[0].Quantity.Equal(d("5")))

	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaDelete, deltas[0].Action)

	snap := ob.Snapshot()
	assert.Empty(t, snap.Asks)

	ltp, _ := ob.LastTradedPrice()
	assert.True(t, ltp.Equal(d("100")))
}

// --- Scenario 7: invalid cancel --------------------------------------------

func TestInvalidCancel(t *testing.T) {
	ob := New("BTC_USD")

	_, deltas, err := ob.CancelOrder(uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, deltas)
}

// --- Scenario 8: no-cross limit ---------------------------------------------

func TestNoCrossLimit(t *testing.T) {
	ob := New("BTC_USD")

	ob.AddOrder(limitOrder(Sell, "105", "10"))
	ob.AddOrder(limitOrder(Buy, "95", "10"))

	trades, deltas := ob.AddOrder(limitOrder(Buy, "100", "5"))
	assert.Empty(t, trades)
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaNew, deltas[0].Action)
	assert.Equal(t, Buy, deltas[0].Side)

	snap := ob.Snapshot()
	require.Len(t, snap.Bids, 2)
	assert.True(t, snap.Bids[0].Price.Equal(d("100")))
	assert.True(t, snap.Bids[0].Quantity.Equal(d("5")))
	assert.True(t, snap.Bids[1].Price.Equal(d("95")))
	assert.True(t, snap.Bids[1].Quantity.Equal(d("10")))

	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Price.Equal(d("105")))
}

// --- Market order sweeping multiple levels, fully filled -------------------

func TestMarketOrderSweepFullyFilled(t *testing.T) {
	ob := New("BTC_USD")

	ob.AddOrder(limitOrder(Sell, "100", "5"))
	ob.AddOrder(limitOrder(Sell, "101", "5"))

	trades, _ := ob.AddOrder(marketOrder(Buy, "8"))
	require.Len(t, trades, 2)
	assert.True(t, trades[0].Price.Equal(d("100")))
	assert.True(t, trades[0].Quantity.Equal(d("5")))
	assert.True(t, trades[1].Price.Equal(d("101")))
	assert.True(t, trades[1].Quantity.Equal(d("3")))

	snap := ob.Snapshot()
	require.Len(t, snap.Asks, 1)
	assert.True(t, snap.Asks[0].Quantity.Equal(d("2")))
}

// --- Snapshot is idempotent and side-effect free (P6) -----------------------

func TestSnapshotIsPure(t *testing.T) {
	ob := New("BTC_USD")
	ob.AddOrder(limitOrder(Buy, "99", "10"))
	ob.AddOrder(limitOrder(Sell, "101", "10"))

	first := ob.Snapshot()
	second := ob.Snapshot()
	// Timestamp records when each snapshot was taken; every other field is
	// derived from book state and must be identical.
	second.Timestamp = first.Timestamp
	assert.Equal(t, first, second)
}

// --- Zero quantity admission is a silent no-op ------------------------------

func TestZeroQuantityIsNoOp(t *testing.T) {
	ob := New("BTC_USD")
	trades, deltas := ob.AddOrder(limitOrder(Buy, "100", "0"))
	assert.Nil(t, trades)
	assert.Nil(t, deltas)
	snap := ob.Snapshot()
	assert.Empty(t, snap.Bids)
}
