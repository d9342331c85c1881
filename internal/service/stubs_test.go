package service

import (
	"context"

	"groupfeed/internal/models"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint, uint) (*models.Post, error)
	listByGroupFn   func(context.Context, uint, uint) ([]*models.Post, error)
	updateContentFn func(context.Context, uint, string, []string) error
	deleteFn        func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) ListByGroup(ctx context.Context, groupID, viewerID uint) ([]*models.Post, error) {
	return s.listByGroupFn(ctx, groupID, viewerID)
}
func (s *postRepoStub) UpdateContent(ctx context.Context, id uint, content string, media []string) error {
	return s.updateContentFn(ctx, id, content, media)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:        func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn:       func(_ context.Context, id, _ uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listByGroupFn:   func(_ context.Context, _, _ uint) ([]*models.Post, error) { return nil, nil },
		updateContentFn: func(_ context.Context, _ uint, _ string, _ []string) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

// groupRepoStub is a stub for repository.GroupRepository.
type groupRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.Group, error)
	getByCoverFn    func(context.Context, string) (*models.Group, error)
	isFollowerFn    func(context.Context, uint, uint) (bool, error)
	followFn        func(context.Context, uint, uint) error
	unfollowFn      func(context.Context, uint, uint) error
	followerCountFn func(context.Context, uint) (int64, error)
	followedIDsFn   func(context.Context, uint) ([]uint, error)
}

func (s *groupRepoStub) Create(context.Context, *models.Group) error { return nil }
func (s *groupRepoStub) GetByCoverPath(ctx context.Context, coverPath string) (*models.Group, error) {
	return s.getByCoverFn(ctx, coverPath)
}
func (s *groupRepoStub) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	return s.getByIDFn(ctx, id)
}
func (s *groupRepoStub) IsFollower(ctx context.Context, groupID, userID uint) (bool, error) {
	return s.isFollowerFn(ctx, groupID, userID)
}
func (s *groupRepoStub) Follow(ctx context.Context, groupID, userID uint) error {
	return s.followFn(ctx, groupID, userID)
}
func (s *groupRepoStub) Unfollow(ctx context.Context, groupID, userID uint) error {
	return s.unfollowFn(ctx, groupID, userID)
}
func (s *groupRepoStub) FollowerCount(ctx context.Context, groupID uint) (int64, error) {
	return s.followerCountFn(ctx, groupID)
}
func (s *groupRepoStub) ListFollowedGroupIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followedIDsFn(ctx, userID)
}

// groupRepoFor returns a stub serving one group and a fixed follower set.
func groupRepoFor(group *models.Group, followers ...uint) *groupRepoStub {
	set := map[uint]bool{}
	for _, id := range followers {
		set[id] = true
	}
	return &groupRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Group, error) {
			if id != group.ID {
				return nil, models.NewNotFoundError("Group", id)
			}
			return group, nil
		},
		getByCoverFn: func(_ context.Context, coverPath string) (*models.Group, error) {
			if group.CoverPath == "" || coverPath != group.CoverPath {
				return nil, models.NewNotFoundError("Group", coverPath)
			}
			return group, nil
		},
		isFollowerFn:    func(_ context.Context, _, userID uint) (bool, error) { return set[userID], nil },
		followFn:        func(_ context.Context, _, userID uint) error { set[userID] = true; return nil },
		unfollowFn:      func(_ context.Context, _, userID uint) error { delete(set, userID); return nil },
		followerCountFn: func(context.Context, uint) (int64, error) { return int64(len(set)), nil },
		followedIDsFn:   func(context.Context, uint) ([]uint, error) { return []uint{group.ID}, nil },
	}
}

// reactionRepoStub keeps like rows in memory.
type reactionRepoStub struct {
	rows     map[[2]uint]bool
	likeErr  error
	countErr error
}

func newReactionRepoStub() *reactionRepoStub {
	return &reactionRepoStub{rows: map[[2]uint]bool{}}
}

func (s *reactionRepoStub) IsLiked(_ context.Context, userID, postID uint) (bool, error) {
	return s.rows[[2]uint{userID, postID}], nil
}
func (s *reactionRepoStub) Like(_ context.Context, userID, postID uint) error {
	if s.likeErr != nil {
		return s.likeErr
	}
	key := [2]uint{userID, postID}
	if s.rows[key] {
		return models.NewValidationError("Like already exists")
	}
	s.rows[key] = true
	return nil
}
func (s *reactionRepoStub) Unlike(_ context.Context, userID, postID uint) error {
	delete(s.rows, [2]uint{userID, postID})
	return nil
}
func (s *reactionRepoStub) CountForPost(_ context.Context, postID uint) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	n := 0
	for k := range s.rows {
		if k[1] == postID {
			n++
		}
	}
	return n, nil
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	created []*models.Comment
	users   map[uint]models.User
}

func (s *commentRepoStub) Create(_ context.Context, c *models.Comment) error {
	c.ID = uint(len(s.created) + 1)
	s.created = append(s.created, c)
	return nil
}
func (s *commentRepoStub) GetByID(_ context.Context, id uint) (*models.Comment, error) {
	if id == 0 || int(id) > len(s.created) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	c := *s.created[id-1]
	c.User = s.users[c.UserID]
	return &c, nil
}
func (s *commentRepoStub) ListByPost(_ context.Context, postID uint) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range s.created {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	return out, nil
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	byName map[string]*models.User
}

func (s *userRepoStub) Create(context.Context, *models.User) error { return nil }
func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	for _, u := range s.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, models.NewNotFoundError("User", id)
}
func (s *userRepoStub) GetByUsername(_ context.Context, name string) (*models.User, error) {
	if u, ok := s.byName[name]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", name)
}
func (s *userRepoStub) GetByExternalUID(_ context.Context, uid string) (*models.User, error) {
	return nil, models.NewNotFoundError("User", uid)
}

type mediaStub struct {
	removed  [][]string
	onRemove func()
}

func (m *mediaStub) Remove(_ context.Context, paths []string) {
	m.removed = append(m.removed, paths)
	if m.onRemove != nil {
		m.onRemove()
	}
}
