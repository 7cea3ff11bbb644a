package broker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"matchbook/internal/book"
	"matchbook/internal/metrics"
)

const (
	popTimeout    = 1 * time.Second
	minBackoff    = 250 * time.Millisecond
	maxBackoff    = 5 * time.Second
	backoffFactor = 2
)

// RawCommand is the undecoded payload BRPOP returned, along with the list
// it came from (informational only — the broker defines no priority
// across orders/cancels/snapshot-requests, per spec §4.3).
type RawCommand struct {
	Queue   string
	Payload []byte
}

// RedisBroker implements the processor.Broker contract (see
// internal/processor/broker.go) over a shared Redis connection, following
// spec §6's key/channel naming and §6.4's materialized-book maintenance.
type RedisBroker struct {
	client *redis.Client
	keys   map[string]Keys // symbol -> keys
}

// New wraps an already-configured redis.Client. The client handle is
// cheap-to-clone and may be shared across every symbol's processor (spec
// §5 "the broker connection handle ... may be shared across tasks").
func New(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client, keys: make(map[string]Keys)}
}

// Register associates a symbol with its key suffix so subsequent calls
// keyed by symbol know which broker keys to use.
func (b *RedisBroker) Register(symbol, suffix string) {
	b.keys[symbol] = KeysFor(suffix)
}

func (b *RedisBroker) keysFor(symbol string) Keys {
	return b.keys[symbol]
}

// PopCommand blocks until a command arrives on any of the symbol's three
// command lists, retrying transient Redis errors with bounded exponential
// backoff (spec §7 BrokerTransient) and never giving up (BrokerFatal:
// PopCommand itself keeps retrying at the maximum backoff and returns only
// a popped command or, once ctx is cancelled, ctx.Err()).
func (b *RedisBroker) PopCommand(ctx context.Context, symbol string) (RawCommand, error) {
	keys := b.keysFor(symbol)
	lists := []string{keys.Orders, keys.Cancel, keys.SnapshotRequests}

	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return RawCommand{}, ctx.Err()
		default:
		}

		result, err := b.client.BRPop(ctx, popTimeout, lists...).Result()
		switch {
		case err == nil:
			return RawCommand{Queue: result[0], Payload: []byte(result[1])}, nil
		case err == redis.Nil:
			// Timed out with nothing to pop; loop and try again.
			backoff = minBackoff
			continue
		case ctx.Err() != nil:
			return RawCommand{}, ctx.Err()
		default:
			metrics.Get().BrokerRetriesTotal.WithLabelValues(symbol).Inc()
			log.Warn().Err(err).Str("symbol", symbol).Dur("backoff", backoff).Msg("broker transient error on command pop, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return RawCommand{}, ctx.Err()
			}
			backoff *= backoffFactor
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// PublishDelta broadcasts a delta on the symbol's pub/sub channel and
// updates the materialized sorted-set view for the affected side (spec
// §6.4): remove whatever member currently sits at that price's score, then
// re-add the post-delta member unless the action is Delete.
func (b *RedisBroker) PublishDelta(ctx context.Context, symbol string, delta book.Delta) error {
	keys := b.keysFor(symbol)

	payload, err := marshal(toDeltaWire(delta))
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, keys.Deltas, payload).Err(); err != nil {
		return err
	}

	setKey := keys.Bids
	if delta.Side == book.Sell {
		setKey = keys.Asks
	}
	score := sortedSetScore(delta.Side, delta.Price)

	if err := b.client.ZRemRangeByScore(ctx, setKey, scoreStr(score), scoreStr(score)).Err(); err != nil {
		return err
	}
	if delta.Action == book.DeltaDelete {
		return nil
	}
	member := sortedSetMember(delta.Price, delta.NewQuantity)
	return b.client.ZAdd(ctx, setKey, redis.Z{Score: score, Member: member}).Err()
}

// PushTrade appends a trade to the symbol's trade-history list.
func (b *RedisBroker) PushTrade(ctx context.Context, symbol string, trade book.Trade) error {
	payload, err := marshal(toTradeWire(trade))
	if err != nil {
		return err
	}
	return b.client.LPush(ctx, b.keysFor(symbol).Trades, payload).Err()
}

// SetLastTradedPrice writes the LTP string key.
func (b *RedisBroker) SetLastTradedPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	return b.client.Set(ctx, b.keysFor(symbol).LastTradedPrice, price.String(), 0).Err()
}

// PublishSnapshot publishes a snapshot to the requester-supplied response
// channel named in the SnapshotRequest payload, not to a fixed key.
func (b *RedisBroker) PublishSnapshot(ctx context.Context, channel string, snap book.Snapshot) error {
	payload, err := marshal(toSnapshotWire(snap))
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

// InitializeBook clears and repopulates the materialized sorted sets for a
// symbol from its current snapshot. Called once at bootstrap with an empty
// snapshot (spec §4.4), and usable to resync the materialized view from
// the authoritative in-memory book if it ever drifts.
func (b *RedisBroker) InitializeBook(ctx context.Context, symbol string, snap book.Snapshot) error {
	keys := b.keysFor(symbol)

	pipe := b.client.TxPipeline()
	pipe.Del(ctx, keys.Bids)
	pipe.Del(ctx, keys.Asks)
	for _, lvl := range snap.Bids {
		pipe.ZAdd(ctx, keys.Bids, redis.Z{
			Score:  sortedSetScore(book.Buy, lvl.Price),
			Member: sortedSetMember(lvl.Price, lvl.Quantity),
		})
	}
	for _, lvl := range snap.Asks {
		pipe.ZAdd(ctx, keys.Asks, redis.Z{
			Score:  sortedSetScore(book.Sell, lvl.Price),
			Member: sortedSetMember(lvl.Price, lvl.Quantity),
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}
