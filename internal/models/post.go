package models

import (
	"path"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Post is a group post hydrated for one viewer.
type Post struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GroupID uint   `gorm:"not null;index:idx_posts_group_created,priority:1" json:"group_id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user"`
	Content string `gorm:"type:text;not null;default:''" json:"content"`
	// Media holds storage paths (or absolute URLs for legacy rows) in display order.
	Media datatypes.JSONSlice[string] `json:"media"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// LikedByViewer is viewer-relative and computed at query time
	LikedByViewer bool      `gorm:"->" json:"liked_by_viewer"`
	Comments      []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt     time.Time `gorm:"index:idx_posts_group_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Author returns the post author's identity.
func (p *Post) Author() Identity {
	return p.User.Identity()
}

// MediaPaths returns a copy of the media list.
func (p *Post) MediaPaths() []string {
	out := make([]string, len(p.Media))
	copy(out, p.Media)
	return out
}

// Clone returns a deep copy suitable for handing to another owner of feed state.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Media = datatypes.JSONSlice[string](p.MediaPaths())
	cp.Comments = make([]Comment, len(p.Comments))
	copy(cp.Comments, p.Comments)
	return &cp
}

// Comment is an immutable reply attached to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Author returns the comment author's stored identity.
func (c Comment) Author() Identity {
	return c.User.Identity()
}

// Like is a reaction membership row. The combination of UserID and PostID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MediaKind is the binary kind of an attachment.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".webm": {},
	".m4v":  {},
	".avi":  {},
	".mkv":  {},
}

// MediaKindOf infers the kind of an attachment from its name suffix.
func MediaKindOf(p string) MediaKind {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if _, ok := videoExtensions[strings.ToLower(path.Ext(p))]; ok {
		return MediaKindVideo
	}
	return MediaKindImage
}
