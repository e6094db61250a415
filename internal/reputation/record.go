// internal/reputation/record.go
package reputation

import (
	"math"
	"time"
)

// Record holds closed-trade statistics for one actor wallet.
type Record struct {
	TotalTrades uint32 `json:"total_trades"`
	Wins        uint32 `json:"wins"`
	Losses      uint32 `json:"losses"`

	// TotalPnL is realized profit net of losses, in native currency.
	TotalPnL float64 `json:"total_pnl"`
	// TotalInvested is the cumulative capital committed.
	TotalInvested float64 `json:"total_invested"`
	AvgROIPct     float64 `json:"avg_roi_pct"`

	AvgHoldTime   time.Duration `json:"avg_hold_time"`
	LastTradeTime time.Time     `json:"last_trade_time"`

	WinStreak  uint32  `json:"win_streak"`
	BestTrade  float64 `json:"best_trade"`
	WorstTrade float64 `json:"worst_trade"`
}

// WinRate returns wins / total trades, or 0 without trades.
func (r Record) WinRate() float64 {
	if r.TotalTrades == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.TotalTrades)
}

// Weights parameterizes the score. Defaults reproduce the production heuristic.
type Weights struct {
	// MinTrades below which the neutral score is returned.
	MinTrades    uint32  `mapstructure:"min_trades"`
	NeutralScore float64 `mapstructure:"neutral_score"`
	// WinRatePoints is the score for a 100% win rate.
	WinRatePoints float64 `mapstructure:"win_rate_points"`
	ROIScale      float64 `mapstructure:"roi_scale"`
	ROIMin        float64 `mapstructure:"roi_min"`
	ROIMax        float64 `mapstructure:"roi_max"`
	PnLMin        float64 `mapstructure:"pnl_min"`
	PnLMax        float64 `mapstructure:"pnl_max"`
	StreakMax     float64 `mapstructure:"streak_max"`
}

// DefaultWeights: 40 pts win rate, ROI*0.6 in [-10,30], P&L in [-20,20], streak up to 10.
func DefaultWeights() Weights {
	return Weights{
		MinTrades:     3,
		NeutralScore:  50,
		WinRatePoints: 40,
		ROIScale:      0.6,
		ROIMin:        -10,
		ROIMax:        30,
		PnLMin:        -20,
		PnLMax:        20,
		StreakMax:     10,
	}
}

// Score maps a record into [0, 100].
func (w Weights) Score(r Record) float64 {
	if r.TotalTrades < w.MinTrades {
		return w.NeutralScore
	}

	winRate := r.WinRate() * w.WinRatePoints
	roi := clamp(r.AvgROIPct*w.ROIScale, w.ROIMin, w.ROIMax)
	pnl := clamp(r.TotalPnL, w.PnLMin, w.PnLMax)
	streak := math.Min(float64(r.WinStreak), w.StreakMax)

	return clamp(winRate+roi+pnl+streak, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
