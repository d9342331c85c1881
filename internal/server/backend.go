package server

import (
	"context"

	"groupfeed/internal/editsession"
	"groupfeed/internal/feed"
	"groupfeed/internal/models"
	"groupfeed/internal/notifications"
	"groupfeed/internal/observability"
	"groupfeed/internal/service"
)

// feedBackend fronts the services for both the REST handlers and the per-connection
// reconcilers. Every confirmed mutation is published to the group's channel so other
// viewers converge.
type feedBackend struct {
	posts     *service.PostService
	reactions *service.ReactionService
	comments  *service.CommentService
	groups    *service.GroupService
	notifier  *notifications.Notifier
}

var (
	_ feed.Posts     = (*feedBackend)(nil)
	_ feed.Reactions = (*feedBackend)(nil)
	_ feed.Comments  = (*feedBackend)(nil)
	_ feed.Groups    = (*feedBackend)(nil)
)

// publish is best-effort: the mutation already succeeded, a lost event only delays
// other viewers until their next reload.
func (b *feedBackend) publish(ctx context.Context, ev models.FeedEvent) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.PublishFeedEvent(ctx, ev); err != nil {
		observability.LogBestEffortFailure(ctx, "publish_feed_event", err, map[string]interface{}{
			"kind":     string(ev.Kind),
			"group_id": ev.GroupID,
			"post_id":  ev.PostID,
		})
	}
}

func (b *feedBackend) ListByGroup(ctx context.Context, in service.ListPostsInput) ([]*models.Post, error) {
	return b.posts.ListByGroup(ctx, in)
}

func (b *feedBackend) CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error) {
	post, err := b.posts.CreatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, models.FeedEvent{
		Kind:    models.EventPostCreated,
		GroupID: post.GroupID,
		PostID:  post.ID,
		ActorID: in.UserID,
		Post:    post,
	})
	return post, nil
}

func (b *feedBackend) UpdatePost(ctx context.Context, in service.UpdatePostInput) (*models.Post, error) {
	post, err := b.posts.UpdatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, models.FeedEvent{
		Kind:    models.EventPostUpdated,
		GroupID: post.GroupID,
		PostID:  post.ID,
		ActorID: in.UserID,
		Post:    post,
	})
	return post, nil
}

func (b *feedBackend) DeletePost(ctx context.Context, in service.DeletePostInput) (*models.Post, error) {
	post, err := b.posts.DeletePost(ctx, in)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, models.FeedEvent{
		Kind:    models.EventPostDeleted,
		GroupID: post.GroupID,
		PostID:  post.ID,
		ActorID: in.UserID,
	})
	return post, nil
}

func (b *feedBackend) Toggle(ctx context.Context, postID, viewerID uint) (*service.ToggleResult, error) {
	res, err := b.reactions.Toggle(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, models.FeedEvent{
		Kind:       models.EventLikeToggled,
		GroupID:    res.GroupID,
		PostID:     res.PostID,
		ActorID:    viewerID,
		LikesCount: res.LikesCount,
		Liked:      res.Liked,
	})
	return res, nil
}

func (b *feedBackend) AddComment(ctx context.Context, in service.AddCommentInput) (*service.AddedComment, error) {
	added, err := b.comments.AddComment(ctx, in)
	if err != nil {
		return nil, err
	}
	b.publish(ctx, models.FeedEvent{
		Kind:    models.EventCommentAdded,
		GroupID: added.GroupID,
		PostID:  added.Comment.PostID,
		ActorID: in.UserID,
		Comment: added.Comment,
	})
	return added, nil
}

func (b *feedBackend) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	return b.groups.GetGroup(ctx, id)
}

func (b *feedBackend) IsFollowing(ctx context.Context, groupID, userID uint) (bool, error) {
	return b.groups.IsFollowing(ctx, groupID, userID)
}

func (b *feedBackend) FollowerCount(ctx context.Context, groupID uint) (int64, error) {
	return b.groups.FollowerCount(ctx, groupID)
}

func (b *feedBackend) Follow(ctx context.Context, groupID, userID uint) error {
	return b.groups.Follow(ctx, groupID, userID)
}

func (b *feedBackend) Unfollow(ctx context.Context, groupID, userID uint) error {
	return b.groups.Unfollow(ctx, groupID, userID)
}

// sessionUpdater binds an edit session's single update call to the editing user.
type sessionUpdater struct {
	backend *feedBackend
	userID  uint
}

var _ editsession.PostUpdater = sessionUpdater{}

func (u sessionUpdater) UpdatePost(ctx context.Context, postID uint, content string, media []string) (*models.Post, error) {
	return u.backend.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  u.userID,
		PostID:  postID,
		Content: content,
		Media:   media,
	})
}
