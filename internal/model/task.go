package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task. Any state may move to any other.
type TaskStatus string

const (
	StatusNew        TaskStatus = "New"
	StatusInProgress TaskStatus = "InProgress"
	StatusOnHold     TaskStatus = "OnHold"
	StatusCompleted  TaskStatus = "Completed"
	StatusCancelled  TaskStatus = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []TaskStatus{StatusNew, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(raw string) (TaskStatus, error) {
	for _, s := range Statuses {
		if strings.EqualFold(strings.TrimSpace(raw), string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", raw)
}

// Ordinal returns the position of s in Statuses, or -1.
func (s TaskStatus) Ordinal() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s TaskStatus) Valid() bool {
	return s.Ordinal() >= 0
}

// Open reports whether work on the task is still expected.
func (s TaskStatus) Open() bool {
	return s != StatusCompleted && s != StatusCancelled
}

// UnmarshalJSON accepts either the status name or its ordinal (0-4).
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseStatus(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var ordinal int
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return fmt.Errorf("invalid status %s", string(data))
	}
	if ordinal < 0 || ordinal >= len(Statuses) {
		return fmt.Errorf("invalid status %d", ordinal)
	}
	*s = Statuses[ordinal]
	return nil
}

// Task is a unit of work assigned to a user.
type Task struct {
	ID             uint          `gorm:"primaryKey"`
	Title          string        `gorm:"size:50;not null"`
	Description    *string       `gorm:"type:text"`
	Status         TaskStatus    `gorm:"size:16;not null;default:New;index"`
	Deadline       *time.Time    `gorm:"index"`
	AssignedUserID *uint         `gorm:"index"`
	AssignedUser   *User         `gorm:"foreignKey:AssignedUserID"`
	CategoryID     *uint         `gorm:"index"`
	Category       *Category     `gorm:"foreignKey:CategoryID"`
	CreatedAt      time.Time     `gorm:"not null"`
	UpdatedAt      time.Time     `gorm:"not null;autoUpdateTime:false"`
	History        []TaskHistory `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// TaskSummary is the list projection of a task: no description, no history.
type TaskSummary struct {
	ID               uint
	Title            string
	Status           TaskStatus
	Deadline         *time.Time
	AssignedUserID   *uint
	AssignedUserName *string
	CategoryID       *uint
	CategoryName     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
