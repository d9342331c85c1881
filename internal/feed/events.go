package feed

import (
	"groupfeed/internal/models"
	"groupfeed/internal/observability"
)

// Apply patches the sequence with a confirmed event. Events for other groups are ignored.
// Post and like state carried by an event is relative to its actor, so only the actor's
// own view takes the liked flag from it.
func (r *Reconciler) Apply(ev models.FeedEvent) {
	if ev.GroupID != 0 && ev.GroupID != r.cfg.GroupID {
		return
	}
	r.mu.Lock()
	changed := r.applyLocked(ev)
	r.mu.Unlock()
	if changed {
		observability.FeedEventsApplied.WithLabelValues(string(ev.Kind)).Inc()
		r.publish()
	}
}

func (r *Reconciler) applyLocked(ev models.FeedEvent) bool {
	own := ev.ActorID == r.cfg.ViewerID
	switch ev.Kind {
	case models.EventPostCreated:
		if ev.Post == nil {
			return false
		}
		post := ev.Post.Clone()
		if !own {
			post.LikedByViewer = false
		}
		if i := r.indexLocked(post.ID); i >= 0 {
			r.posts[i] = post
			return true
		}
		r.posts = append([]*models.Post{post}, r.posts...)
		return true

	case models.EventPostUpdated:
		if ev.Post == nil {
			return false
		}
		i := r.indexLocked(ev.Post.ID)
		if i < 0 {
			return false
		}
		post := ev.Post.Clone()
		if !own {
			post.LikedByViewer = r.posts[i].LikedByViewer
		}
		r.posts[i] = post
		return true

	case models.EventPostDeleted:
		i := r.indexLocked(ev.PostID)
		if i < 0 {
			return false
		}
		r.posts = append(r.posts[:i:i], r.posts[i+1:]...)
		return true

	case models.EventLikeToggled:
		i := r.indexLocked(ev.PostID)
		if i < 0 {
			return false
		}
		post := r.posts[i].Clone()
		post.LikesCount = ev.LikesCount
		if own {
			post.LikedByViewer = ev.Liked
		}
		r.posts[i] = post
		return true

	case models.EventCommentAdded:
		if ev.Comment == nil {
			return false
		}
		i := r.indexLocked(ev.Comment.PostID)
		if i < 0 {
			return false
		}
		for _, c := range r.posts[i].Comments {
			if c.ID == ev.Comment.ID {
				return false
			}
		}
		post := r.posts[i].Clone()
		post.Comments = append(post.Comments, *ev.Comment)
		r.posts[i] = post
		return true
	}
	return false
}
