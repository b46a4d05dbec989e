// Package metrics holds the Prometheus instrumentation for the trading
// backend. All collectors live in a private registry owned by the Metrics
// value, so tests and repeated construction never trip duplicate
// registration on the process-wide default.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading backend.
type Metrics struct {
	reg *prometheus.Registry

	TicksTotal     prometheus.Counter
	DroppedBatches *prometheus.CounterVec // labels: consumer

	TradesTotal   *prometheus.CounterVec // labels: side
	TradeFailures *prometheus.CounterVec // labels: reason
	TradeDur      prometheus.Histogram

	Inconsistencies prometheus.Counter

	WSClients prometheus.Gauge
}

// Consumer label values for DroppedBatches.
const (
	ConsumerFeedSubscriber = "feed_subscriber"
	ConsumerWSClient       = "ws_client"
)

// New builds and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),

		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_ticks_total",
			Help: "Quote batches published by the price feed",
		}),
		DroppedBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_dropped_batches_total",
			Help: "Quote batches dropped because a consumer channel was full",
		}, []string{"consumer"}),

		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trades_total",
			Help: "Executed trades by side",
		}, []string{"side"}),
		TradeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_failures_total",
			Help: "Rejected or failed trades by reason",
		}, []string{"reason"}),
		TradeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trade_execution_duration_seconds",
			Help:    "Trade execution latency end to end",
			Buckets: prometheus.DefBuckets,
		}),

		Inconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_inconsistencies_total",
			Help: "Trades where the ledger write failed and the funds reversal also failed",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Connected quote stream clients",
		}),
	}

	m.reg.MustRegister(
		m.TicksTotal,
		m.DroppedBatches,
		m.TradesTotal,
		m.TradeFailures,
		m.TradeDur,
		m.Inconsistencies,
		m.WSClients,
	)

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
