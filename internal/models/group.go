package models

import "time"

// Group is a community that owns a feed of posts.
type Group struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"size:120;not null" json:"name"`
	Slug               string    `gorm:"size:48;not null;uniqueIndex" json:"slug"`
	Description        string    `gorm:"type:text" json:"description"`
	OwnerID            uint      `gorm:"not null;index" json:"owner_id"`
	Owner              *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	AvatarPath         string    `json:"avatar_path"`
	CoverPath          string    `json:"cover_path"`
	AllowMembersToPost bool      `gorm:"not null;default:false" json:"allow_members_to_post"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Identity returns the identity shown in place of the owner's personal one.
func (g Group) Identity() Identity {
	return Identity{ID: g.OwnerID, Name: g.Name, Avatar: g.AvatarPath}
}

// GroupFollower records that a user follows (is a member of) a group.
type GroupFollower struct {
	GroupID   uint      `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
