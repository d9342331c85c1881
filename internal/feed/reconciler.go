// Package feed keeps one viewer's ordered view of a group feed consistent with the server.
package feed

import (
	"context"
	"sync"

	"groupfeed/internal/follows"
	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/service"
)

// Posts is the post repository contract the feed consumes.
type Posts interface {
	ListByGroup(ctx context.Context, in service.ListPostsInput) ([]*models.Post, error)
	CreatePost(ctx context.Context, in service.CreatePostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, in service.UpdatePostInput) (*models.Post, error)
	DeletePost(ctx context.Context, in service.DeletePostInput) (*models.Post, error)
}

// Reactions is the reaction engine contract.
type Reactions interface {
	Toggle(ctx context.Context, postID, viewerID uint) (*service.ToggleResult, error)
}

// Comments is the comment engine contract.
type Comments interface {
	AddComment(ctx context.Context, in service.AddCommentInput) (*service.AddedComment, error)
}

// Groups supplies group metadata and membership.
type Groups interface {
	GetGroup(ctx context.Context, id uint) (*models.Group, error)
	IsFollowing(ctx context.Context, groupID, userID uint) (bool, error)
	FollowerCount(ctx context.Context, groupID uint) (int64, error)
	Follow(ctx context.Context, groupID, userID uint) error
	Unfollow(ctx context.Context, groupID, userID uint) error
}

type Config struct {
	GroupID   uint
	ViewerID  uint
	Posts     Posts
	Reactions Reactions
	Comments  Comments
	Groups    Groups
	// Follows is optional; when set it is updated on follow and unfollow and its
	// contents are carried in every snapshot.
	Follows follows.FollowedGroups
}

// Reconciler owns the ordered post sequence for one (group, viewer) pair.
type Reconciler struct {
	cfg Config

	mu            sync.Mutex
	group         *models.Group
	posts         []*models.Post
	following     bool
	followerCount int64
	notices       []Notice
	nextNotice    int
	listeners     map[int]func(Snapshot)
	nextListener  int
}

func NewReconciler(cfg Config) *Reconciler {
	return &Reconciler{cfg: cfg, listeners: map[int]func(Snapshot){}}
}

func (r *Reconciler) GroupID() uint  { return r.cfg.GroupID }
func (r *Reconciler) ViewerID() uint { return r.cfg.ViewerID }

// Load replaces the whole sequence with a fresh listByGroup result.
func (r *Reconciler) Load(ctx context.Context) error {
	group, err := r.cfg.Groups.GetGroup(ctx, r.cfg.GroupID)
	if err != nil {
		r.fail("load feed", "could not load group", err)
		return err
	}
	following, err := r.cfg.Groups.IsFollowing(ctx, r.cfg.GroupID, r.cfg.ViewerID)
	if err != nil {
		r.fail("load feed", "could not load membership", err)
		return err
	}
	count, err := r.cfg.Groups.FollowerCount(ctx, r.cfg.GroupID)
	if err != nil {
		r.fail("load feed", "could not load follower count", err)
		return err
	}
	posts, err := r.fetchPosts(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.group = group
	r.following = following
	r.followerCount = count
	r.posts = posts
	r.mu.Unlock()
	r.publish()
	return nil
}

// reload refetches only the post sequence.
func (r *Reconciler) reload(ctx context.Context) error {
	posts, err := r.fetchPosts(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.posts = posts
	r.mu.Unlock()
	r.publish()
	return nil
}

func (r *Reconciler) fetchPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := r.cfg.Posts.ListByGroup(ctx, service.ListPostsInput{GroupID: r.cfg.GroupID, ViewerID: r.cfg.ViewerID})
	if err != nil {
		r.fail("load feed", "could not load posts", err)
		return nil, err
	}
	return posts, nil
}

// Snapshot returns a deep copy of the current render state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() Snapshot {
	views := make([]PostView, len(r.posts))
	for i, p := range r.posts {
		views[i] = Render(p, r.group)
	}
	var group *models.Group
	if r.group != nil {
		g := *r.group
		group = &g
	}
	notices := make([]Notice, len(r.notices))
	copy(notices, r.notices)
	followed := []uint{}
	if r.cfg.Follows != nil {
		followed = r.cfg.Follows.IDs()
	}
	return Snapshot{
		GroupID:        r.cfg.GroupID,
		Group:          group,
		Following:      r.following,
		FollowerCount:  r.followerCount,
		Posts:          views,
		Notices:        notices,
		FollowedGroups: followed,
	}
}

// Subscribe registers fn to receive a snapshot after every change. The returned
// function unregisters it.
func (r *Reconciler) Subscribe(fn func(Snapshot)) func() {
	r.mu.Lock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Reconciler) publish() {
	r.mu.Lock()
	if len(r.listeners) == 0 {
		r.mu.Unlock()
		return
	}
	snap := r.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Notices returns the failures not yet dismissed, oldest first.
func (r *Reconciler) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Dismiss removes a notice; it reports whether the id was present.
func (r *Reconciler) Dismiss(id int) bool {
	r.mu.Lock()
	found := false
	for i, n := range r.notices {
		if n.ID == id {
			r.notices = append(r.notices[:i], r.notices[i+1:]...)
			found = true
			break
		}
	}
	r.mu.Unlock()
	if found {
		r.publish()
	}
	return found
}

func (r *Reconciler) fail(action, message string, err error) {
	r.mu.Lock()
	r.nextNotice++
	r.notices = append(r.notices, Notice{
		ID:      r.nextNotice,
		Action:  action,
		Message: message,
		Code:    models.ErrorCode(err),
	})
	r.mu.Unlock()
	observability.GlobalLogger.Warn("feed action failed",
		"action", action,
		"group_id", r.cfg.GroupID,
		"viewer_id", r.cfg.ViewerID,
		"error", err,
	)
	r.publish()
}

func (r *Reconciler) indexLocked(postID uint) int {
	for i, p := range r.posts {
		if p.ID == postID {
			return i
		}
	}
	return -1
}
