// internal/types/slippage.go
package types

import (
	"math"
	"math/big"
)

// SlippageType определяет тип политики проскальзывания
type SlippageType string

const (
	// SlippageFixed использует фиксированное значение minAmountOut
	SlippageFixed SlippageType = "fixed"
	// SlippagePercent использует процент от ожидаемого выхода
	SlippagePercent SlippageType = "percent"
	// SlippageNone не использует ограничение minAmountOut
	SlippageNone SlippageType = "none"
)

// slippageScale is the fixed-point precision for percent slippage (1e-4 percent).
const slippageScale = 1_000_000

// SlippageConfig конфигурирует политику проскальзывания
type SlippageConfig struct {
	// Type определяет тип политики проскальзывания
	Type SlippageType `json:"type" mapstructure:"type"`
	// Value содержит значение для выбранной политики:
	// - для SlippageFixed: точное значение minAmountOut в raw units
	// - для SlippagePercent: процент допустимого проскальзывания (например, 15.0 = 15%)
	// - для SlippageNone: игнорируется
	Value float64 `json:"value" mapstructure:"value"`
}

// Percent is shorthand for a percent slippage policy.
func Percent(pct float64) SlippageConfig {
	return SlippageConfig{Type: SlippagePercent, Value: pct}
}

// CalculateMinAmountOut вычисляет minAmountOut на основе политики проскальзывания.
// Работает только с целыми числами: expected * (1 - pct/100), округление вниз.
func CalculateMinAmountOut(expected *big.Int, config SlippageConfig) *big.Int {
	switch config.Type {
	case SlippageFixed:
		return new(big.Int).SetUint64(uint64(math.Max(config.Value, 0)))
	case SlippagePercent:
		if expected == nil || expected.Sign() <= 0 {
			return big.NewInt(0)
		}
		pct := math.Min(math.Max(config.Value, 0), 100)
		keep := int64(math.Round((100 - pct) / 100 * slippageScale))
		out := new(big.Int).Mul(expected, big.NewInt(keep))
		return out.Quo(out, big.NewInt(slippageScale))
	case SlippageNone:
		// 1 как минимальное значение для прохождения валидации
		return big.NewInt(1)
	default:
		return big.NewInt(1)
	}
}
