package models

import "time"

// User is the persisted form of a user. It holds storage types only; the repository maps it to domain.User.
type User struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)"`
	Username      string    `gorm:"uniqueIndex;type:varchar(80);not null"`
	Email         string    `gorm:"uniqueIndex;type:varchar(120);not null"`
	PasswordHash  string    `gorm:"type:varchar(128);not null"`
	CreatedAt     time.Time `gorm:"not null"`
	LastUpdatedAt time.Time `gorm:"not null"`
	Version       int64     `gorm:"not null;default:1"`
}

// TableName pins the table name.
func (User) TableName() string {
	return "users"
}
