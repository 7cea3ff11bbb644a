package processor

import (
	"context"

	"github.com/shopspring/decimal"

	"matchbook/internal/book"
	"matchbook/internal/broker"
)

// Broker is everything a CommandProcessor needs from the transport layer
// (spec §6). It is defined here, on the consumer side, so tests can supply
// a fake without spinning up Redis; *broker.RedisBroker satisfies it.
type Broker interface {
	// PopCommand blocks until the next command arrives on any of the
	// symbol's three command lists (spec §4.3's "blocking multi-source
	// pop"), retrying broker errors internally, until ctx is cancelled.
	PopCommand(ctx context.Context, symbol string) (broker.RawCommand, error)

	// PublishDelta broadcasts a delta and updates the materialized
	// sorted-set view for it (spec §4.3 step 3, §6.4).
	PublishDelta(ctx context.Context, symbol string, delta book.Delta) error

	// PushTrade appends a trade to the trade-history list.
	PushTrade(ctx context.Context, symbol string, trade book.Trade) error

	// SetLastTradedPrice writes the LTP key.
	SetLastTradedPrice(ctx context.Context, symbol string, price decimal.Decimal) error

	// PublishSnapshot publishes a snapshot to the requester's response
	// channel.
	PublishSnapshot(ctx context.Context, channel string, snap book.Snapshot) error

	// InitializeBook seeds the materialized sorted sets from a snapshot
	// (spec §4.4, called once at bootstrap with an empty book).
	InitializeBook(ctx context.Context, symbol string, snap book.Snapshot) error
}
