// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "monad_bot"

// Collector holds the engine's Prometheus metrics. A nil *Collector is valid and
// records nothing, so components can be built without metrics in tests.
type Collector struct {
	decisions     *prometheus.CounterVec
	sellAttempts  *prometheus.CounterVec
	sellsSkipped  *prometheus.CounterVec
	sellLatency   *prometheus.HistogramVec
	copyTrades    *prometheus.CounterVec
	priceFailures prometheus.Counter
	openPositions prometheus.Gauge
	queueDepth    prometheus.Gauge
	reconnects    prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_decisions_total",
			Help:      "Non-hold exit decisions produced by the risk evaluator",
		}, []string{"kind"}),
		sellAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sell_attempts_total",
			Help:      "Sell attempts by ladder step and outcome",
		}, []string{"attempt", "outcome"}),
		sellsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sells_skipped_total",
			Help:      "Sell requests dropped before execution",
		}, []string{"reason"}),
		sellLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sell_duration_seconds",
			Help:      "Duration of a single sell attempt",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"attempt"}),
		copyTrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_trades_total",
			Help:      "Observed actor trades by handling outcome",
		}, []string{"outcome"}),
		priceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetch_failures_total",
			Help:      "Failed quote fetches in the monitor loop",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Currently tracked positions",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sell_queue_depth",
			Help:      "Sell requests waiting in the coordinator queue",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_reconnects_total",
			Help:      "Log subscription reconnect attempts",
		}),
	}

	reg.MustRegister(
		c.decisions,
		c.sellAttempts,
		c.sellsSkipped,
		c.sellLatency,
		c.copyTrades,
		c.priceFailures,
		c.openPositions,
		c.queueDepth,
		c.reconnects,
	)
	return c
}

// RecordDecision counts an exit decision.
func (c *Collector) RecordDecision(kind string) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(kind).Inc()
}

// RecordSellAttempt records one ladder step.
func (c *Collector) RecordSellAttempt(attempt string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failed"
	}
	c.sellAttempts.WithLabelValues(attempt, outcome).Inc()
	c.sellLatency.WithLabelValues(attempt).Observe(duration.Seconds())
}

// RecordSellSkipped counts a dropped sell request.
func (c *Collector) RecordSellSkipped(reason string) {
	if c == nil {
		return
	}
	c.sellsSkipped.WithLabelValues(reason).Inc()
}

// SellsSkipped returns the skip counter for reason.
func (c *Collector) SellsSkipped(reason string) prometheus.Counter {
	return c.sellsSkipped.WithLabelValues(reason)
}

// RecordCopyTrade counts an observed actor trade by outcome.
func (c *Collector) RecordCopyTrade(outcome string) {
	if c == nil {
		return
	}
	c.copyTrades.WithLabelValues(outcome).Inc()
}

// CopyTrades returns the copy trade counter for outcome.
func (c *Collector) CopyTrades(outcome string) prometheus.Counter {
	return c.copyTrades.WithLabelValues(outcome)
}

// OpenPositionsGauge returns the open positions gauge.
func (c *Collector) OpenPositionsGauge() prometheus.Gauge {
	return c.openPositions
}

// Reconnects returns the listener reconnect counter.
func (c *Collector) Reconnects() prometheus.Counter {
	return c.reconnects
}

// RecordPriceFailure counts a failed quote.
func (c *Collector) RecordPriceFailure() {
	if c == nil {
		return
	}
	c.priceFailures.Inc()
}

// SetOpenPositions updates the open positions gauge.
func (c *Collector) SetOpenPositions(n int) {
	if c == nil {
		return
	}
	c.openPositions.Set(float64(n))
}

// SetQueueDepth updates the sell queue gauge.
func (c *Collector) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.queueDepth.Set(float64(n))
}

// RecordReconnect counts a listener reconnect.
func (c *Collector) RecordReconnect() {
	if c == nil {
		return
	}
	c.reconnects.Inc()
}
