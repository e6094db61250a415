// internal/risk/decision.go
package risk

import "fmt"

// Kind names a decision variant; used for logging and metrics labels.
type Kind string

const (
	KindHold         Kind = "hold"
	KindTrailingStop Kind = "trailing_stop"
	KindHardStopLoss Kind = "hard_stop_loss"
	KindSecureProfit Kind = "secure_profit"
	KindMaxHoldTime  Kind = "max_hold_time"
	KindForcedExit   Kind = "forced_exit"
)

// Decision is the closed set of exit outcomes. Only types in this package
// implement it.
type Decision interface {
	Kind() Kind
	// Portion is the fraction of the position to sell, in (0, 1]. Hold returns 0.
	Portion() float64
	String() string
	isDecision()
}

// Hold keeps the position.
type Hold struct{}

// TrailingStop fires when value drops far enough from the peak.
type TrailingStop struct {
	PnL float64
}

// HardStopLoss is the unconditional loss cap.
type HardStopLoss struct {
	PnL float64
}

// SecureProfit sells part of the position to lock in gains.
type SecureProfit struct {
	Fraction float64
	PnL      float64
}

// MaxHoldTime fires when the position is older than the hold ceiling.
type MaxHoldTime struct {
	Hours uint64
}

// ForcedExit liquidates regardless of price, e.g. a mirrored wallet exited.
type ForcedExit struct {
	Reason string
}

func (Hold) Kind() Kind         { return KindHold }
func (TrailingStop) Kind() Kind { return KindTrailingStop }
func (HardStopLoss) Kind() Kind { return KindHardStopLoss }
func (SecureProfit) Kind() Kind { return KindSecureProfit }
func (MaxHoldTime) Kind() Kind  { return KindMaxHoldTime }
func (ForcedExit) Kind() Kind   { return KindForcedExit }

func (Hold) Portion() float64         { return 0 }
func (TrailingStop) Portion() float64 { return 1 }
func (HardStopLoss) Portion() float64 { return 1 }
func (MaxHoldTime) Portion() float64  { return 1 }
func (ForcedExit) Portion() float64   { return 1 }

// Portion clamps the configured fraction into (0, 1].
func (d SecureProfit) Portion() float64 {
	if d.Fraction <= 0 || d.Fraction > 1 {
		return 1
	}
	return d.Fraction
}

func (Hold) String() string           { return "Hold" }
func (d TrailingStop) String() string { return fmt.Sprintf("TrailingStop{pnl:%.2f}", d.PnL) }
func (d HardStopLoss) String() string { return fmt.Sprintf("HardStopLoss{pnl:%.2f}", d.PnL) }
func (d SecureProfit) String() string {
	return fmt.Sprintf("SecureProfit{portion:%.2f, pnl:%.2f}", d.Portion(), d.PnL)
}
func (d MaxHoldTime) String() string { return fmt.Sprintf("MaxHoldTime{hours:%d}", d.Hours) }
func (d ForcedExit) String() string  { return fmt.Sprintf("ForcedExit{reason:%s}", d.Reason) }

func (Hold) isDecision()         {}
func (TrailingStop) isDecision() {}
func (HardStopLoss) isDecision() {}
func (SecureProfit) isDecision() {}
func (MaxHoldTime) isDecision()  {}
func (ForcedExit) isDecision()   {}

// IsFullExit reports whether d closes the whole position.
func IsFullExit(d Decision) bool {
	return d.Kind() != KindHold && d.Portion() >= 1
}
