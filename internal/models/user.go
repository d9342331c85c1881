// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an account that can follow groups, post, like and comment.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	AvatarPath   string `json:"avatar_path"`
	// ExternalUID links the account to an external identity provider subject.
	ExternalUID string    `gorm:"size:128;index" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity is the denormalized author block embedded in posts and comments.
type Identity struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Identity returns the user's personal display identity.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Username, Avatar: u.AvatarPath}
}
