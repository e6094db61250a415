// internal/monitor/monitor.go
package monitor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/monad-bot/internal/executor"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/position"
	"github.com/rovshanmuradov/monad-bot/internal/risk"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// Config controls the monitor loop.
type Config struct {
	Interval time.Duration `mapstructure:"check_interval"`
	// Concurrency bounds parallel quote requests per tick.
	Concurrency  int           `mapstructure:"quote_concurrency"`
	QuoteTimeout time.Duration `mapstructure:"quote_timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Second,
		Concurrency:  8,
		QuoteTimeout: 10 * time.Second,
	}
}

// Submitter accepts exit decisions.
type Submitter interface {
	SubmitSell(token common.Address, decision risk.Decision) error
}

// Monitor periodically prices every open position and forwards non-hold
// decisions. The store lock is never held across a quote.
type Monitor struct {
	cfg       Config
	store     *position.Store
	evaluator *risk.Evaluator
	quoter    executor.Quoter
	submitter Submitter
	metrics   *metrics.Collector
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a monitor. metrics may be nil.
func New(cfg Config, store *position.Store, evaluator *risk.Evaluator, quoter executor.Quoter, submitter Submitter, m *metrics.Collector, logger *zap.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = DefaultConfig().QuoteTimeout
	}
	return &Monitor{
		cfg:       cfg,
		store:     store,
		evaluator: evaluator,
		quoter:    quoter,
		submitter: submitter,
		metrics:   m,
		now:       time.Now,
		logger:    logger.Named("monitor"),
	}
}

// Run ticks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Position monitor started", zap.Duration("interval", m.cfg.Interval))
	defer m.logger.Info("Position monitor stopped")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// TickResult summarizes one pass.
type TickResult struct {
	Positions int
	Priced    int
	Decisions int
}

// Tick prices all positions, evaluates them and submits exits.
func (m *Monitor) Tick(ctx context.Context) TickResult {
	positions := m.store.All()
	res := TickResult{Positions: len(positions)}
	if len(positions) == 0 {
		return res
	}

	values := m.fetchValues(ctx, positions)
	now := m.now()

	for i, p := range positions {
		if values[i] == nil {
			continue
		}
		res.Priced++

		current := types.WeiToNative(values[i])
		var decision risk.Decision
		var pnl float64
		m.store.Mutate(p.Token, func(live *position.Position) bool {
			highWater := live.HighWaterValue
			// the live amount may have shrunk since the copy; rescale the quote
			value := scaleValue(current, p.Amount, live.Amount)
			decision = m.evaluator.Evaluate(live, value, now)
			pnl = risk.PnLPercent(live.EntryValue, value)
			return live.HighWaterValue != highWater
		})
		if decision == nil {
			continue // sold in the meantime
		}

		m.logger.Debug("Position evaluated",
			zap.String("token", p.Token.Hex()),
			zap.String("label", p.Label()),
			zap.Float64("value", current),
			zap.Float64("pnl_pct", pnl),
			zap.String("decision", decision.String()))

		if decision.Kind() == risk.KindHold {
			continue
		}

		res.Decisions++
		m.metrics.RecordDecision(string(decision.Kind()))
		m.logger.Info("Exit triggered",
			zap.String("token", p.Token.Hex()),
			zap.String("label", p.Label()),
			zap.Float64("pnl_pct", pnl),
			zap.String("decision", decision.String()))

		if err := m.submitter.SubmitSell(p.Token, decision); err != nil {
			m.logger.Warn("Failed to enqueue sell",
				zap.String("token", p.Token.Hex()),
				zap.Error(err))
		}
	}
	return res
}

// fetchValues quotes every position concurrently. A failed quote leaves nil and
// the position is simply held until the next tick.
func (m *Monitor) fetchValues(ctx context.Context, positions []position.Position) []*big.Int {
	values := make([]*big.Int, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)
	for i, p := range positions {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, m.cfg.QuoteTimeout)
			defer cancel()

			out, err := m.quoter.Quote(qctx, p.Token, p.Amount)
			if err != nil {
				m.metrics.RecordPriceFailure()
				m.logger.Debug("Price fetch failed, holding",
					zap.String("token", p.Token.Hex()),
					zap.Error(err))
				return nil
			}
			values[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return values
}

func scaleValue(value float64, quoted, live *big.Int) float64 {
	if quoted == nil || live == nil || quoted.Sign() <= 0 || quoted.Cmp(live) == 0 {
		return value
	}
	ratio, _ := new(big.Float).Quo(new(big.Float).SetInt(live), new(big.Float).SetInt(quoted)).Float64()
	return value * ratio
}

// String renders a tick summary for logs.
func (r TickResult) String() string {
	return fmt.Sprintf("positions=%d priced=%d decisions=%d", r.Positions, r.Priced, r.Decisions)
}
