// Package metrics exposes the matching engine's Prometheus collectors:
// per-symbol command throughput, trade volume, book depth, and broker
// retry counts, following the standard client_golang
// singleton-collector-plus-MustRegister idiom.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds every metric the matching engine publishes.
type Collector struct {
	CommandsTotal      *prometheus.CounterVec
	CommandErrorsTotal *prometheus.CounterVec

	TradesTotal *prometheus.CounterVec
	TradeVolume *prometheus.CounterVec

	BookDepth  *prometheus.GaugeVec
	BestBid    *prometheus.GaugeVec
	BestAsk    *prometheus.GaugeVec

	BrokerRetriesTotal *prometheus.CounterVec

	CommandLatency *prometheus.HistogramVec
}

// Get returns the process-wide collector, constructing and registering it
// with the default registry on first use.
func Get() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
		collector.register()
	})
	return collector
}

func newCollector() *Collector {
	c := &Collector{}

	c.CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbook",
			Subsystem: "commands",
			Name:      "total",
			Help:      "Commands popped from the broker, by symbol and kind.",
		},
		[]string{"symbol", "kind"},
	)

	c.CommandErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbook",
			Subsystem: "commands",
			Name:      "errors_total",
			Help:      "Commands that failed to decode or apply, by symbol and reason.",
		},
		[]string{"symbol", "reason"},
	)

	c.TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbook",
			Subsystem: "trades",
			Name:      "total",
			Help:      "Trades executed, by symbol.",
		},
		[]string{"symbol"},
	)

	c.TradeVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbook",
			Subsystem: "trades",
			Name:      "volume_base",
			Help:      "Cumulative base-asset quantity traded, by symbol.",
		},
		[]string{"symbol"},
	)

	c.BookDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "matchbook",
			Subsystem: "book",
			Name:      "depth_levels",
			Help:      "Number of resting price levels, by symbol and side.",
		},
		[]string{"symbol", "side"},
	)

	c.BestBid = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "matchbook",
			Subsystem: "book",
			Name:      "best_bid",
			Help:      "Best resting bid price, by symbol.",
		},
		[]string{"symbol"},
	)

	c.BestAsk = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "matchbook",
			Subsystem: "book",
			Name:      "best_ask",
			Help:      "Best resting ask price, by symbol.",
		},
		[]string{"symbol"},
	)

	c.BrokerRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbook",
			Subsystem: "broker",
			Name:      "retries_total",
			Help:      "Transient broker errors retried during command pop, by symbol.",
		},
		[]string{"symbol"},
	)

	c.CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchbook",
			Subsystem: "commands",
			Name:      "latency_seconds",
			Help:      "Time to fully handle a command: decode, apply to the book, and fan out.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"symbol", "kind"},
	)

	return c
}

func (c *Collector) register() {
	prometheus.MustRegister(
		c.CommandsTotal,
		c.CommandErrorsTotal,
		c.TradesTotal,
		c.TradeVolume,
		c.BookDepth,
		c.BestBid,
		c.BestAsk,
		c.BrokerRetriesTotal,
		c.CommandLatency,
	)
}
