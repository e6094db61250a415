// internal/storage/models/actor.go
package models

import "time"

// ActorRecord is one row of the reputation snapshot.
type ActorRecord struct {
	BaseModel
	Actor         string `gorm:"uniqueIndex;not null;type:varchar(42)"`
	TotalTrades   uint32 `gorm:"not null;default:0"`
	Wins          uint32 `gorm:"not null;default:0"`
	Losses        uint32 `gorm:"not null;default:0"`
	TotalPnL      float64 `gorm:"column:total_pnl"`
	TotalInvested float64
	AvgROIPct     float64 `gorm:"column:avg_roi_pct"`
	AvgHoldNanos  int64
	LastTradeTime time.Time
	WinStreak     uint32
	BestTrade     float64
	WorstTrade    float64
}
