// Command matchbookd runs the matching engine daemon: one CommandProcessor
// per configured trading pair, consuming commands from Redis and publishing
// trades, deltas, and snapshots back to it.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"matchbook/internal/bootstrap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("matchbookd exited with error")
	}
}

func newRootCmd() *cobra.Command {
	var (
		pairsPath   string
		redisAddr   string
		redisDB     int
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "matchbookd",
		Short: "Run the matching engine daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			go serveMetrics(metricsAddr)

			return bootstrap.Run(ctx, bootstrap.Config{
				PairsPath: pairsPath,
				RedisAddr: redisAddr,
				RedisDB:   redisDB,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&pairsPath, "pairs", "pairs.json", "path to the trading-pair configuration file")
	flags.StringVar(&redisAddr, "redis-addr", "127.0.0.1:6379", "address of the Redis broker")
	flags.IntVar(&redisDB, "redis-db", 0, "Redis logical database number")
	flags.StringVar(&metricsAddr, "metrics-addr", "0.0.0.0:9100", "listen address for the /metrics endpoint")
	flags.StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")

	return cmd
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Info().Str("addr", addr).Msg("serving /metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server exited")
	}
}
