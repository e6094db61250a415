// internal/seller/config.go
package seller

import (
	"fmt"
	"time"

	"github.com/rovshanmuradov/monad-bot/internal/executor"
)

// Config controls the sell coordinator.
type Config struct {
	// Cooldown is the minimum time between two attempts for the same token.
	Cooldown time.Duration `mapstructure:"cooldown"`
	// QueueSize bounds pending requests; SubmitSell fails fast beyond it.
	QueueSize int `mapstructure:"queue_size"`
	// AttemptTimeout bounds a single ladder step including confirmation.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`

	BaseSlippagePct  float64 `mapstructure:"base_slippage_pct"`
	RetrySlippagePct float64 `mapstructure:"retry_slippage_pct"`
	DexSlippagePct   float64 `mapstructure:"dex_slippage_pct"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Cooldown:         30 * time.Second,
		QueueSize:        100,
		AttemptTimeout:   90 * time.Second,
		BaseSlippagePct:  15,
		RetrySlippagePct: 25,
		DexSlippagePct:   5,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt_timeout must be positive")
	}
	for name, v := range map[string]float64{
		"base_slippage_pct":  c.BaseSlippagePct,
		"retry_slippage_pct": c.RetrySlippagePct,
		"dex_slippage_pct":   c.DexSlippagePct,
	} {
		if v < 0 || v >= 100 {
			return fmt.Errorf("%s must be in [0, 100)", name)
		}
	}
	return nil
}

// Attempt is one step of the sell ladder.
type Attempt struct {
	Name        string
	Backend     executor.Backend
	SlippagePct float64
}

// DefaultLadder is primary at base slippage, primary at retry slippage, then the
// secondary backend at its own slippage.
func DefaultLadder(primary, secondary executor.Backend, cfg Config) []Attempt {
	return []Attempt{
		{Name: primary.Name(), Backend: primary, SlippagePct: cfg.BaseSlippagePct},
		{Name: primary.Name() + "_retry", Backend: primary, SlippagePct: cfg.RetrySlippagePct},
		{Name: secondary.Name(), Backend: secondary, SlippagePct: cfg.DexSlippagePct},
	}
}
