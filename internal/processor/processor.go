// Package processor implements the per-symbol CommandProcessor (spec §4.3):
// exactly one instance per symbol, owning its OrderBook exclusively,
// translating broker commands into engine calls and fanning the results
// out to the broker sinks.
package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"matchbook/internal/book"
	"matchbook/internal/metrics"
)

// CommandProcessor consumes commands for one symbol and drives its
// OrderBook. It is the only user of that OrderBook — the engine registry
// keeps a reference, but no other goroutine may touch it (spec §5).
type CommandProcessor struct {
	symbol string
	book   *book.OrderBook
	broker Broker
	log    zerolog.Logger

	mu sync.Mutex
}

// New constructs a processor for symbol, bound to ob and broker. log
// should already be scoped to this symbol (e.g. log.With().Str("symbol",
// symbol).Logger()) so every line it emits is attributable.
func New(symbol string, ob *book.OrderBook, broker Broker, log zerolog.Logger) *CommandProcessor {
	return &CommandProcessor{
		symbol: symbol,
		book:   ob,
		broker: broker,
		log:    log,
	}
}

// Run pulls commands until ctx is cancelled. It never returns an error for
// an individual bad command — only context cancellation ends the loop
// (spec §4.3's per-command atomicity: a command either fully applies or,
// on decode failure, has no effect at all).
//
// Commands are handled one at a time: a command's fan-out finishes before
// the next command is popped, so the deltas a cancel produces are strictly
// ordered with the deltas of every match for this symbol.
func (p *CommandProcessor) Run(ctx context.Context) error {
	for {
		raw, err := p.broker.PopCommand(ctx, p.symbol)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.handle(ctx, raw.Payload)
	}
}

func (p *CommandProcessor) handle(ctx context.Context, payload []byte) {
	cmd, err := decodeCommand(payload)
	if err != nil {
		metrics.Get().CommandErrorsTotal.WithLabelValues(p.symbol, "decode").Inc()
		p.log.Warn().Err(err).Str("payload", string(payload)).Msg("invalid command, skipping")
		return
	}

	kind := cmd.kind.String()
	metrics.Get().CommandsTotal.WithLabelValues(p.symbol, kind).Inc()
	start := time.Now()

	switch cmd.kind {
	case kindNewOrder, kindCancelOrder:
		p.applyAndFanOut(ctx, cmd)
	case kindSnapshotRequest:
		p.handleSnapshotRequest(ctx, cmd.responseChannel)
	}

	metrics.Get().CommandLatency.WithLabelValues(p.symbol, kind).Observe(time.Since(start).Seconds())
}

// applyAndFanOut acquires the book's exclusive lock for exactly as long as
// it takes to apply one command, then releases it before any broker I/O
// (spec §5's suspension-point list: matching never suspends, but fan-out
// I/O does).
func (p *CommandProcessor) applyAndFanOut(ctx context.Context, cmd command) {
	var trades []book.Trade
	var deltas []book.Delta

	p.mu.Lock()
	switch cmd.kind {
	case kindNewOrder:
		trades, deltas = p.book.AddOrder(cmd.order)
	case kindCancelOrder:
		_, ds, err := p.book.CancelOrder(cmd.cancelOrderID)
		deltas = ds
		p.mu.Unlock()
		if err != nil {
			p.logCancelError(cmd.cancelOrderID, err)
			return
		}
		p.recordBookGauges()
		p.fanOut(ctx, nil, deltas)
		return
	}
	p.mu.Unlock()

	p.recordBookGauges()
	p.fanOut(ctx, trades, deltas)
}

// recordBookGauges refreshes the best-bid/best-ask gauges after a command
// has touched the book. It takes its own brief lock rather than reusing the
// caller's, since it may run after that lock has already been released.
func (p *CommandProcessor) recordBookGauges() {
	p.mu.Lock()
	bid, ask, haveBid, haveAsk := p.book.BestBidAsk()
	bidLevels, askLevels := p.book.Depth()
	p.mu.Unlock()

	m := metrics.Get()
	if haveBid {
		v, _ := bid.Float64()
		m.BestBid.WithLabelValues(p.symbol).Set(v)
	}
	if haveAsk {
		v, _ := ask.Float64()
		m.BestAsk.WithLabelValues(p.symbol).Set(v)
	}
	m.BookDepth.WithLabelValues(p.symbol, "bid").Set(float64(bidLevels))
	m.BookDepth.WithLabelValues(p.symbol, "ask").Set(float64(askLevels))
}

func (p *CommandProcessor) logCancelError(orderID interface{ String() string }, err error) {
	switch {
	case errors.Is(err, book.ErrOrderNotFound):
		metrics.Get().CommandErrorsTotal.WithLabelValues(p.symbol, "not_found").Inc()
		p.log.Warn().Str("order_id", orderID.String()).Msg("cancel: order not found")
	case errors.Is(err, book.ErrInconsistentBook):
		metrics.Get().CommandErrorsTotal.WithLabelValues(p.symbol, "inconsistent_book").Inc()
		p.log.Error().Str("order_id", orderID.String()).Err(err).Msg("cancel: order-id index inconsistent with book, dropping index entry")
	default:
		metrics.Get().CommandErrorsTotal.WithLabelValues(p.symbol, "unexpected").Inc()
		p.log.Error().Str("order_id", orderID.String()).Err(err).Msg("cancel: unexpected error")
	}
}

// handleSnapshotRequest takes a snapshot under the book's lock just long
// enough to copy it out, then publishes without holding the lock.
func (p *CommandProcessor) handleSnapshotRequest(ctx context.Context, channel string) {
	p.mu.Lock()
	snap := p.book.Snapshot()
	p.mu.Unlock()

	if err := p.broker.PublishSnapshot(ctx, channel, snap); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("broker error publishing snapshot")
	}
}

// fanOut publishes trades/deltas/LTP concurrently to the broker sinks
// (spec §4.3 step 3). Each sink preserves its own emission order; failures
// are logged and swallowed (spec §7: matching already happened and cannot
// be undone, so downstream eventual consistency is accepted).
func (p *CommandProcessor) fanOut(ctx context.Context, trades []book.Trade, deltas []book.Delta) {
	if len(trades) > 0 {
		metrics.Get().TradesTotal.WithLabelValues(p.symbol).Add(float64(len(trades)))
	}
	for _, trade := range trades {
		qty, _ := trade.Quantity.Float64()
		metrics.Get().TradeVolume.WithLabelValues(p.symbol).Add(qty)
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for _, delta := range deltas {
			if err := p.broker.PublishDelta(ctx, p.symbol, delta); err != nil {
				p.log.Warn().Err(err).Msg("broker error publishing delta, materialized book may be stale")
			}
		}
	}()

	go func() {
		defer wg.Done()
		for _, trade := range trades {
			if err := p.broker.PushTrade(ctx, p.symbol, trade); err != nil {
				p.log.Warn().Err(err).Str("trade_id", trade.ID.String()).Msg("broker error pushing trade")
			}
		}
	}()

	go func() {
		defer wg.Done()
		if len(trades) == 0 {
			return
		}
		last := trades[len(trades)-1]
		if err := p.broker.SetLastTradedPrice(ctx, p.symbol, last.Price); err != nil {
			p.log.Warn().Err(err).Msg("broker error setting last traded price")
		}
	}()

	wg.Wait()
}
