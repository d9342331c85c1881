package feed

import (
	"context"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/optimistic"
	"groupfeed/internal/service"
)

// likeState is the pre-toggle value of a post's like fields.
type likeState struct {
	found bool
	count int
	liked bool
}

// ToggleLike flips the viewer's like immediately and settles it against the server.
// On success the server's count and flag win; on failure the flip is undone.
func (r *Reconciler) ToggleLike(ctx context.Context, postID uint) error {
	r.mu.Lock()
	i := r.indexLocked(postID)
	var wasLiked bool
	if i >= 0 {
		wasLiked = r.posts[i].LikedByViewer
	}
	r.mu.Unlock()
	if i < 0 {
		return models.NewNotFoundError("Post", postID)
	}

	action := "like post"
	if wasLiked {
		action = "unlike post"
	}

	var result *service.ToggleResult
	err := optimistic.Do(ctx, optimistic.Update[likeState]{
		Action: "like",
		Apply: func() likeState {
			prev := r.flipLike(postID)
			r.publish()
			return prev
		},
		Revert: func(prev likeState) {
			if prev.found {
				r.restoreLike(postID, prev)
			}
		},
		Confirm: func(ctx context.Context) error {
			var err error
			result, err = r.cfg.Reactions.Toggle(ctx, postID, r.cfg.ViewerID)
			return err
		},
	})
	if err != nil {
		r.fail(action, "could not "+action, err)
		return err
	}

	r.Apply(models.FeedEvent{
		Kind:       models.EventLikeToggled,
		GroupID:    r.cfg.GroupID,
		PostID:     postID,
		ActorID:    r.cfg.ViewerID,
		LikesCount: result.LikesCount,
		Liked:      result.Liked,
	})
	return nil
}

// flipLike flips liked_by_viewer, moves likes_count by the matching step and returns
// the values it replaced.
func (r *Reconciler) flipLike(postID uint) likeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(postID)
	if i < 0 {
		return likeState{}
	}
	post := r.posts[i].Clone()
	prev := likeState{found: true, count: post.LikesCount, liked: post.LikedByViewer}
	if post.LikedByViewer {
		post.LikesCount--
	} else {
		post.LikesCount++
	}
	post.LikedByViewer = !post.LikedByViewer
	if post.LikesCount < 0 {
		post.LikesCount = 0
	}
	r.posts[i] = post
	return prev
}

func (r *Reconciler) restoreLike(postID uint, prev likeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(postID)
	if i < 0 {
		return
	}
	post := r.posts[i].Clone()
	post.LikesCount = prev.count
	post.LikedByViewer = prev.liked
	r.posts[i] = post
}

// AddComment appends the comment once the server has stored it.
func (r *Reconciler) AddComment(ctx context.Context, postID uint, text string) (*models.Comment, error) {
	res, err := r.cfg.Comments.AddComment(ctx, service.AddCommentInput{PostID: postID, UserID: r.cfg.ViewerID, Content: text})
	if err != nil {
		r.fail("comment", "could not add comment", err)
		return nil, err
	}
	r.Apply(models.FeedEvent{
		Kind:    models.EventCommentAdded,
		GroupID: res.GroupID,
		PostID:  postID,
		ActorID: r.cfg.ViewerID,
		Comment: res.Comment,
	})
	return res.Comment, nil
}

// CreatePost prepends the post once the server confirms it. Nothing is shown before that.
func (r *Reconciler) CreatePost(ctx context.Context, content string, media []string) (*models.Post, error) {
	post, err := r.cfg.Posts.CreatePost(ctx, service.CreatePostInput{
		GroupID: r.cfg.GroupID,
		UserID:  r.cfg.ViewerID,
		Content: content,
		Media:   media,
	})
	if err != nil {
		r.fail("create post", "could not create post", err)
		return nil, err
	}
	r.Apply(models.FeedEvent{Kind: models.EventPostCreated, GroupID: r.cfg.GroupID, PostID: post.ID, ActorID: r.cfg.ViewerID, Post: post})
	return post, nil
}

// UpdatePost persists content and media and replaces the post in place.
func (r *Reconciler) UpdatePost(ctx context.Context, postID uint, content string, media []string) (*models.Post, error) {
	post, err := r.cfg.Posts.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  r.cfg.ViewerID,
		PostID:  postID,
		Content: content,
		Media:   media,
	})
	if err != nil {
		r.fail("update post", "could not update post", err)
		return nil, err
	}
	r.Apply(models.FeedEvent{Kind: models.EventPostUpdated, GroupID: r.cfg.GroupID, PostID: post.ID, ActorID: r.cfg.ViewerID, Post: post})
	return post, nil
}

// DeletePost removes the post once the server confirms the deletion.
func (r *Reconciler) DeletePost(ctx context.Context, postID uint) error {
	if _, err := r.cfg.Posts.DeletePost(ctx, service.DeletePostInput{UserID: r.cfg.ViewerID, PostID: postID}); err != nil {
		r.fail("delete post", "could not delete post", err)
		return err
	}
	r.Apply(models.FeedEvent{Kind: models.EventPostDeleted, GroupID: r.cfg.GroupID, PostID: postID, ActorID: r.cfg.ViewerID})
	return nil
}

type followState struct {
	following bool
	count     int64
}

// Follow flips membership and follower count immediately. On success the followed-groups
// state is refreshed, and the feed is fetched in full if the viewer was not following before.
func (r *Reconciler) Follow(ctx context.Context) error {
	wasFollowing := r.isFollowing()
	if err := r.setFollowing(ctx, true); err != nil {
		return err
	}
	if wasFollowing {
		return nil
	}
	return r.reload(ctx)
}

// Unfollow flips membership and follower count; the rendered feed is left as it is.
func (r *Reconciler) Unfollow(ctx context.Context) error {
	return r.setFollowing(ctx, false)
}

// isFollowing prefers the shared followed-groups state when one is configured.
func (r *Reconciler) isFollowing() bool {
	if r.cfg.Follows != nil {
		return r.cfg.Follows.Contains(r.cfg.GroupID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.following
}

func (r *Reconciler) setFollowing(ctx context.Context, follow bool) error {
	action, call := "unfollow group", r.cfg.Groups.Unfollow
	if follow {
		action, call = "follow group", r.cfg.Groups.Follow
	}

	err := optimistic.Do(ctx, optimistic.Update[followState]{
		Action: "follow",
		Apply: func() followState {
			r.mu.Lock()
			prev := followState{following: r.following, count: r.followerCount}
			if r.following != follow {
				r.following = follow
				if follow {
					r.followerCount++
				} else if r.followerCount > 0 {
					r.followerCount--
				}
			}
			r.mu.Unlock()
			if r.cfg.Follows != nil {
				r.cfg.Follows.Set(r.cfg.GroupID, follow)
			}
			r.publish()
			return prev
		},
		Revert: func(prev followState) {
			r.mu.Lock()
			r.following = prev.following
			r.followerCount = prev.count
			r.mu.Unlock()
			if r.cfg.Follows != nil {
				r.cfg.Follows.Set(r.cfg.GroupID, prev.following)
			}
		},
		Confirm: func(ctx context.Context) error {
			return call(ctx, r.cfg.GroupID, r.cfg.ViewerID)
		},
	})
	if err != nil {
		r.fail(action, "could not "+action, err)
		return err
	}
	if r.cfg.Follows != nil {
		if err := r.cfg.Follows.Invalidate(ctx); err != nil {
			observability.LogBestEffortFailure(ctx, "follows.invalidate", err, map[string]interface{}{"group_id": r.cfg.GroupID})
		}
	}
	return nil
}
