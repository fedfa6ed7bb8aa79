package model

import "time"

// Category groups tasks by area (ops, design, billing, etc.).
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Tasks     []Task `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
}
