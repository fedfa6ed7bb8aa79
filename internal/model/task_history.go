package model

import "time"

// TaskHistory records one observed status transition. Rows are never updated.
type TaskHistory struct {
	ID              uint       `gorm:"primaryKey"`
	TaskID          uint       `gorm:"index;not null"`
	Task            *Task      `gorm:"foreignKey:TaskID"`
	OldStatus       TaskStatus `gorm:"size:16;not null"`
	NewStatus       TaskStatus `gorm:"size:16;not null"`
	ChangedAt       time.Time  `gorm:"not null;index"`
	ChangedByUserID *uint      `gorm:"index"`
	ChangedByUser   *User      `gorm:"foreignKey:ChangedByUserID;constraint:OnDelete:SET NULL"`
}

// TableName keeps the singular table name used by the audit log.
func (TaskHistory) TableName() string { return "task_history" }
