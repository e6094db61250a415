// internal/copytrade/config.go
package copytrade

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Config controls copy trading.
type Config struct {
	// Enabled turns mirrored buys on. When off, mirrored wallets are only scored.
	Enabled      bool     `mapstructure:"enabled"`
	SmartWallets []string `mapstructure:"smart_wallets"`
	// ScoutWallets are observed for scoring only. Empty means every curve trader.
	ScoutWallets []string `mapstructure:"scout_wallets"`

	BaseAmount    float64 `mapstructure:"base_amount"`
	MaxAmount     float64 `mapstructure:"max_amount"`
	WhaleCopyPct  float64 `mapstructure:"whale_copy_pct"`
	WhaleMinInput float64 `mapstructure:"whale_min_input"`
	SlippagePct   float64 `mapstructure:"slippage_pct"`

	// MinScore below which a mirrored buy is rejected.
	MinScore float64 `mapstructure:"min_score"`
	// PromoteScore above which a scout wallet becomes mirrored.
	PromoteScore float64 `mapstructure:"promote_score"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		BaseAmount:    0.1,
		MaxAmount:     1.0,
		WhaleCopyPct:  10,
		WhaleMinInput: 0.5,
		SlippagePct:   15,
		MinScore:      40,
		PromoteScore:  80,
	}
}

// Validate checks amounts and thresholds.
func (c Config) Validate() error {
	if c.BaseAmount < 0 || c.MaxAmount < 0 {
		return errors.New("copy amounts must be non-negative")
	}
	if c.Enabled && c.BaseAmount <= 0 {
		return errors.New("copy base_amount must be positive when copying is enabled")
	}
	if c.MaxAmount > 0 && c.MaxAmount < c.BaseAmount {
		return errors.New("copy max_amount must be >= base_amount")
	}
	if c.WhaleCopyPct < 0 || c.WhaleCopyPct > 100 {
		return errors.New("copy whale_copy_pct must be within [0, 100]")
	}
	if c.SlippagePct < 0 || c.SlippagePct >= 100 {
		return errors.New("copy slippage_pct must be within [0, 100)")
	}
	if c.MinScore < 0 || c.MinScore > 100 || c.PromoteScore < 0 || c.PromoteScore > 100 {
		return errors.New("copy score thresholds must be within [0, 100]")
	}
	for _, w := range append(append([]string{}, c.SmartWallets...), c.ScoutWallets...) {
		if !common.IsHexAddress(w) {
			return errors.New("invalid wallet address: " + w)
		}
	}
	return nil
}
