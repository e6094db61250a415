// internal/storage/models/trade.go
package models

import "time"

type Trade struct {
	BaseModel
	Token        string    `gorm:"index;not null;type:varchar(42)"`
	Name         string    `gorm:"type:varchar(100)"`
	Symbol       string    `gorm:"type:varchar(32)"`
	Side         string    `gorm:"index;not null;type:varchar(4)"`
	AmountTokens string    `gorm:"not null;type:varchar(80)"`
	Value        float64   `gorm:"not null"`
	TxRef        string    `gorm:"type:varchar(66)"`
	Backend      string    `gorm:"type:varchar(20)"`
	Reason       string    `gorm:"type:varchar(100)"`
	ExecutedAt   time.Time `gorm:"index;not null"`
}
