// internal/types/amount.go
package types

import (
	"math"
	"math/big"
)

// ppm is the precision used to turn a fractional portion into an integer ratio.
const ppm = 1_000_000

// NativeDecimals is the number of decimals of the chain's native currency and of
// curve tokens.
const NativeDecimals = 18

var weiPerUnit = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(NativeDecimals), nil))

// PortionOf returns floor(amount * portion) using integer arithmetic only.
// Portion is clamped into [0, 1] and rounded to parts-per-million so that
// 0.3 of 1000 is exactly 300 rather than 299.
func PortionOf(amount *big.Int, portion float64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || portion <= 0 || math.IsNaN(portion) {
		return big.NewInt(0)
	}
	if portion >= 1 {
		return new(big.Int).Set(amount)
	}
	parts := int64(math.Round(portion * ppm))
	out := new(big.Int).Mul(amount, big.NewInt(parts))
	return out.Quo(out, big.NewInt(ppm))
}

// MinAmount returns the smaller of a and b as a new value.
func MinAmount(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// WeiToNative converts raw 18-decimal units to a display float. Only use the result
// for reporting and P&L comparisons, never to derive on-chain amounts.
func WeiToNative(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerUnit).Float64()
	return f
}

// NativeToWei converts a configured native amount into raw units.
func NativeToWei(amount float64) *big.Int {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return big.NewInt(0)
	}
	f := new(big.Float).Mul(big.NewFloat(amount), weiPerUnit)
	out, _ := f.Int(nil)
	return out
}
