// internal/position/position.go
package position

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Position is one open holding, keyed by token address.
type Position struct {
	Token  common.Address `json:"token"`
	Name   string         `json:"name"`
	Symbol string         `json:"symbol"`
	// Amount is the raw token balance we hold. Always > 0 while tracked.
	Amount *big.Int `json:"amount"`
	// EntryValue is the cost basis in native currency (display / P&L only).
	EntryValue float64   `json:"entry_value"`
	EntryTime  time.Time `json:"entry_time"`
	// HighWaterValue is the peak observed value since entry.
	HighWaterValue float64 `json:"high_water_value"`
	// LastValue is the most recent observed value.
	LastValue float64 `json:"last_value,omitempty"`
	TxRef          string  `json:"tx_ref"`
	// ProfitSecured is set once a partial secure-profit sell has gone through.
	ProfitSecured bool `json:"profit_secured,omitempty"`
	// Source tells where the position came from ("snipe", "copy", ...).
	Source string `json:"source,omitempty"`
}

// Clone returns a deep copy, so callers never share the amount with the store.
func (p Position) Clone() Position {
	cp := p
	if p.Amount != nil {
		cp.Amount = new(big.Int).Set(p.Amount)
	} else {
		cp.Amount = new(big.Int)
	}
	return cp
}

// Shrink subtracts sold from Amount, clamping at zero, and scales the value basis
// (entry, high water, last) by the retained fraction so P&L stays comparable.
func (p *Position) Shrink(sold *big.Int) {
	before := p.Amount
	if before == nil || before.Sign() <= 0 {
		p.Amount = new(big.Int)
		return
	}
	if sold.Cmp(before) >= 0 {
		p.Amount = new(big.Int)
		return
	}
	p.Amount = new(big.Int).Sub(before, sold)

	kept, _ := new(big.Float).Quo(new(big.Float).SetInt(p.Amount), new(big.Float).SetInt(before)).Float64()
	p.EntryValue *= kept
	p.HighWaterValue *= kept
	p.LastValue *= kept
}

// Label returns "Name (SYMBOL)" or the hex address when metadata is missing.
func (p Position) Label() string {
	if p.Name == "" && p.Symbol == "" {
		return p.Token.Hex()
	}
	return p.Name + " (" + p.Symbol + ")"
}

// HoldDuration returns how long the position has been open at now.
func (p Position) HoldDuration(now time.Time) time.Duration {
	if p.EntryTime.IsZero() || now.Before(p.EntryTime) {
		return 0
	}
	return now.Sub(p.EntryTime)
}
