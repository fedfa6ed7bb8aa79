package model

import "time"

// Role is the capability level carried in a user's credential.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User is an account that can be assigned tasks.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:50;not null"`
	Email        string `gorm:"size:50;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"size:16;not null;default:User"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Tasks        []Task `gorm:"foreignKey:AssignedUserID;constraint:OnDelete:SET NULL"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
