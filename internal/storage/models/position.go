// internal/storage/models/position.go
package models

import "time"

// Position is one row of the positions snapshot.
type Position struct {
	BaseModel
	Token          string    `gorm:"uniqueIndex;not null;type:varchar(42)"`
	Name           string    `gorm:"type:varchar(100)"`
	Symbol         string    `gorm:"type:varchar(32)"`
	Amount         string    `gorm:"not null;type:varchar(80)"` // raw units, base 10
	EntryValue     float64   `gorm:"not null"`
	EntryTime      time.Time `gorm:"not null"`
	HighWaterValue float64
	LastValue      float64
	TxRef          string `gorm:"type:varchar(66)"`
	ProfitSecured  bool   `gorm:"default:false"`
	Source         string `gorm:"type:varchar(20)"`
}
