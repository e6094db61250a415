// internal/storage/models/base.go
package models

import "time"

// BaseModel заменяет gorm.Model: без soft delete, снапшоты переписываются целиком
type BaseModel struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
