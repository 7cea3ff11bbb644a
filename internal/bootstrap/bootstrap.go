// Package bootstrap wires configuration, the broker connection, the symbol
// registry, and one CommandProcessor per enabled pair into a single
// supervised process (spec §4.4).
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchbook/internal/broker"
	"matchbook/internal/config"
	"matchbook/internal/engine"
	"matchbook/internal/processor"
)

// Config holds everything Run needs from the CLI layer.
type Config struct {
	PairsPath string
	RedisAddr string
	RedisDB   int
}

// Run loads the pair configuration, seeds the materialized book for each
// enabled pair, spawns one CommandProcessor goroutine per pair under a
// shared tomb, and blocks until they've all exited — either because ctx
// was cancelled or because one of them returned an error, which kills the
// rest via the tomb-derived context.
func Run(ctx context.Context, cfg Config) error {
	pairs, err := config.Load(cfg.PairsPath)
	if err != nil {
		return fmt.Errorf("bootstrap: load pairs: %w", err)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("bootstrap: no enabled pairs in %s", cfg.PairsPath)
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer client.Close()

	rb := broker.New(client)
	registry := engine.New()

	t, ctx := tomb.WithContext(ctx)

	for _, pair := range pairs {
		ob, err := registry.Register(pair.Symbol)
		if err != nil {
			return fmt.Errorf("bootstrap: register %s: %w", pair.Symbol, err)
		}
		rb.Register(pair.Symbol, pair.KeySuffix())

		if err := rb.InitializeBook(ctx, pair.Symbol, ob.Snapshot()); err != nil {
			return fmt.Errorf("bootstrap: seed materialized book for %s: %w", pair.Symbol, err)
		}

		symbol := pair.Symbol
		symbolLog := log.With().Str("symbol", symbol).Logger()
		proc := processor.New(symbol, ob, rb, symbolLog)

		log.Info().Str("symbol", symbol).Msg("processor starting")
		t.Go(func() error {
			return proc.Run(ctx)
		})
	}

	return t.Wait()
}
