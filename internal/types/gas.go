// internal/types/gas.go
package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// GasStrategy determines how aggressively a transaction bids for inclusion.
type GasStrategy string

const (
	// GasNormal: base fee * 1.1 + 1 gwei priority.
	GasNormal GasStrategy = "normal"
	// GasAggressive: base fee * 1.5 + 10 gwei priority.
	GasAggressive GasStrategy = "aggressive"
	// GasFrontrun: base fee * 2.0 + 500 gwei priority.
	GasFrontrun GasStrategy = "frontrun"
)

type gasProfile struct {
	multiplierPct int64 // base fee multiplier in percent
	priorityGwei  int64
}

var gasProfiles = map[GasStrategy]gasProfile{
	GasNormal:     {multiplierPct: 110, priorityGwei: 1},
	GasAggressive: {multiplierPct: 150, priorityGwei: 10},
	GasFrontrun:   {multiplierPct: 200, priorityGwei: 500},
}

// Calculate returns (maxFeePerGas, maxPriorityFeePerGas) in wei for the given base fee.
// The max fee already includes the priority fee. Unknown strategies fall back to normal.
func (s GasStrategy) Calculate(baseFee *big.Int) (*big.Int, *big.Int) {
	profile, ok := gasProfiles[s]
	if !ok {
		profile = gasProfiles[GasNormal]
	}
	if baseFee == nil {
		baseFee = new(big.Int)
	}

	priority := new(big.Int).Mul(big.NewInt(profile.priorityGwei), big.NewInt(params.GWei))
	maxFee := new(big.Int).Mul(baseFee, big.NewInt(profile.multiplierPct))
	maxFee.Quo(maxFee, big.NewInt(100))
	maxFee.Add(maxFee, priority)
	return maxFee, priority
}

// FromAggressiveness maps a continuous configured multiplier onto the nearest tier.
func FromAggressiveness(multiplier float64) GasStrategy {
	switch {
	case multiplier >= 2.0:
		return GasFrontrun
	case multiplier >= 1.5:
		return GasAggressive
	default:
		return GasNormal
	}
}
