// Package models contains the GORM models and error types shared across the application.
package models

import "time"

// User is a registered student account. Password holds either a bcrypt hash
// or, for rows created before hashing was introduced, the plaintext value.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID string    `gorm:"not null;index" json:"studentId"`
	Name      string    `gorm:"not null" json:"name"`
	UserID    string    `gorm:"uniqueIndex;not null" json:"userId"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// SafeUser is the public projection of a user, safe to return to clients and
// to store in a session.
type SafeUser struct {
	ID        uint   `json:"id"`
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	UserID    string `json:"userId"`
	IsAdmin   bool   `json:"isAdmin"`
}
