package models

// FeedEventKind names one of the events a feed view applies.
type FeedEventKind string

const (
	EventPostCreated  FeedEventKind = "post_created"
	EventPostUpdated  FeedEventKind = "post_updated"
	EventPostDeleted  FeedEventKind = "post_deleted"
	EventLikeToggled  FeedEventKind = "like_toggled"
	EventCommentAdded FeedEventKind = "comment_added"
)

// FeedEvent is a confirmed change to a group's feed. Post is hydrated for ActorID,
// so LikedByViewer and Liked are only meaningful to the actor.
type FeedEvent struct {
	Kind       FeedEventKind `json:"kind"`
	GroupID    uint          `json:"group_id"`
	PostID     uint          `json:"post_id"`
	ActorID    uint          `json:"actor_id"`
	Post       *Post         `json:"post,omitempty"`
	Comment    *Comment      `json:"comment,omitempty"`
	LikesCount int           `json:"likes_count"`
	Liked      bool          `json:"liked"`
}
