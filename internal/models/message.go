// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// MaxMessageLength is the maximum number of characters in a message.
const MaxMessageLength = 140

// Message represents a short text post owned by a single user.
type Message struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Text    string `gorm:"size:140;not null" json:"text"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this message (computed)
	Liked     bool      `gorm:"->" json:"liked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
