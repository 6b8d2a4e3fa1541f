package models

import "time"

// Session is a server-side login session for the database-backed session store.
// Data holds the JSON-encoded SafeUser snapshot.
type Session struct {
	ID        string    `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	Data      string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}
