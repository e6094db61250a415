// internal/risk/evaluator.go
package risk

import (
	"errors"
	"time"

	"github.com/rovshanmuradov/monad-bot/internal/position"
)

// Config holds the exit thresholds. Percentages are in percent units (20 = 20%).
type Config struct {
	// TrailingDropPct is the drop from the peak that triggers the trailing stop.
	TrailingDropPct float64 `mapstructure:"trailing_drop_pct"`
	// MinProfitPct is the cushion required before trailing activates.
	MinProfitPct float64 `mapstructure:"trailing_min_profit"`
	// HardStopLossPct is negative; reaching it always exits.
	HardStopLossPct   float64       `mapstructure:"hard_stop_loss_pct"`
	SecureProfitPct   float64       `mapstructure:"secure_profit_pct"`
	SecureSellPortion float64       `mapstructure:"secure_sell_portion"`
	MaxHold           time.Duration `mapstructure:"max_hold"`
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		TrailingDropPct:   20,
		MinProfitPct:      50,
		HardStopLossPct:   -40,
		SecureProfitPct:   100,
		SecureSellPortion: 0.3,
		MaxHold:           48 * time.Hour,
	}
}

// Validate checks the thresholds are usable.
func (c Config) Validate() error {
	if c.HardStopLossPct >= 0 {
		return errors.New("hard_stop_loss_pct must be negative")
	}
	if c.TrailingDropPct <= 0 || c.TrailingDropPct > 100 {
		return errors.New("trailing_drop_pct must be in (0, 100]")
	}
	if c.SecureSellPortion <= 0 || c.SecureSellPortion > 1 {
		return errors.New("secure_sell_portion must be in (0, 1]")
	}
	if c.MaxHold <= 0 {
		return errors.New("max_hold must be positive")
	}
	return nil
}

// Evaluator turns a position and an observed value into a Decision. It does no I/O.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an evaluator for cfg.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Config returns the thresholds in use.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// PnLPercent is (current - entry) / entry * 100, or 0 for a non-positive entry.
func PnLPercent(entry, current float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (current - entry) / entry * 100
}

// Evaluate updates p.HighWaterValue to max(high water, current) and then applies,
// first match wins: max hold time, hard stop-loss, secure profit, trailing stop.
// Secure profit fires once per position; afterwards the remainder is left to the
// trailing stop.
func (e *Evaluator) Evaluate(p *position.Position, current float64, now time.Time) Decision {
	p.LastValue = current
	if current > p.HighWaterValue {
		p.HighWaterValue = current
	}

	pnl := PnLPercent(p.EntryValue, current)

	held := p.HoldDuration(now)
	if held >= e.cfg.MaxHold {
		return MaxHoldTime{Hours: uint64(held / time.Hour)}
	}

	if pnl <= e.cfg.HardStopLossPct {
		return HardStopLoss{PnL: pnl}
	}

	if pnl >= e.cfg.SecureProfitPct && !p.ProfitSecured {
		return SecureProfit{Fraction: e.cfg.SecureSellPortion, PnL: pnl}
	}

	if pnl >= e.cfg.MinProfitPct && p.HighWaterValue > 0 {
		drop := (p.HighWaterValue - current) / p.HighWaterValue * 100
		if drop >= e.cfg.TrailingDropPct {
			return TrailingStop{PnL: pnl}
		}
	}

	return Hold{}
}
