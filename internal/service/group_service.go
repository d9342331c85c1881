package service

import (
	"context"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/permission"
	"groupfeed/internal/repository"
	"groupfeed/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

// MediaResolver turns stored paths into viewer-usable URLs.
type MediaResolver interface {
	Resolve(ctx context.Context, p string, mode storage.ResolveMode) (string, error)
}

type GroupService struct {
	groupRepo repository.GroupRepository
	media     MediaResolver
}

// GroupView is a group with its avatar and cover resolved for display.
type GroupView struct {
	*models.Group
	AvatarURL     string `json:"avatar_url"`
	CoverURL      string `json:"cover_url"`
	FollowerCount int64  `json:"follower_count"`
	IsFollowing   bool   `json:"is_following"`
}

func NewGroupService(groupRepo repository.GroupRepository, media MediaResolver) *GroupService {
	return &GroupService{groupRepo: groupRepo, media: media}
}

func (s *GroupService) GetGroup(ctx context.Context, id uint) (*models.Group, error) {
	return s.groupRepo.GetByID(ctx, id)
}

// GetGroupView resolves the avatar publicly. The cover is signed only for the owner
// and followers; everyone else gets an empty cover URL.
func (s *GroupService) GetGroupView(ctx context.Context, id, viewerID uint) (view *GroupView, err error) {
	ctx, span := observability.StartSpan(ctx, "GroupService.GetGroupView", attribute.Int("group.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view = &GroupView{Group: group}
	if group.AvatarPath != "" {
		if view.AvatarURL, err = s.media.Resolve(ctx, group.AvatarPath, storage.ResolvePublic); err != nil {
			return nil, err
		}
	}
	if view.FollowerCount, err = s.groupRepo.FollowerCount(ctx, id); err != nil {
		return nil, err
	}
	if viewerID != 0 {
		if view.IsFollowing, err = s.groupRepo.IsFollower(ctx, id, viewerID); err != nil {
			return nil, err
		}
	}
	if group.CoverPath != "" && (view.IsFollowing || isOwner(group, viewerID)) {
		if view.CoverURL, err = s.media.Resolve(ctx, group.CoverPath, storage.ResolveSigned); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// AuthorizeSigned checks that viewerID may receive a signed URL for key. Covers are
// limited to the owning group's owner and followers.
func (s *GroupService) AuthorizeSigned(ctx context.Context, key string, viewerID uint) error {
	if viewerID == 0 {
		return models.NewUnauthorizedError("Sign in to access this media")
	}
	if !storage.RequiresSignature(key) {
		return nil
	}
	group, err := s.groupRepo.GetByCoverPath(ctx, key)
	if models.IsCode(err, models.CodeNotFound) {
		return models.NewPermissionDeniedError("No access to this media")
	}
	if err != nil {
		return err
	}
	if isOwner(group, viewerID) {
		return nil
	}
	following, err := s.groupRepo.IsFollower(ctx, group.ID, viewerID)
	if err != nil {
		return err
	}
	if !following {
		return models.NewPermissionDeniedError("Follow this group to see its cover")
	}
	return nil
}

func isOwner(group *models.Group, viewerID uint) bool {
	return viewerID != 0 && group.OwnerID == viewerID
}

// Permission evaluates the posting-permission variant for viewerID (0 = anonymous).
func (s *GroupService) Permission(ctx context.Context, groupID, viewerID uint) (permission.Permission, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	in := permission.Inputs{
		Authenticated:      viewerID != 0,
		IsOwner:            isOwner(group, viewerID),
		AllowMembersToPost: group.AllowMembersToPost,
	}
	if viewerID != 0 {
		if in.IsFollower, err = s.groupRepo.IsFollower(ctx, groupID, viewerID); err != nil {
			return "", err
		}
	}
	return permission.Evaluate(in), nil
}

func (s *GroupService) IsFollowing(ctx context.Context, groupID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return s.groupRepo.IsFollower(ctx, groupID, userID)
}

func (s *GroupService) Follow(ctx context.Context, groupID, userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("Sign in to follow groups")
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return err
	}
	return s.groupRepo.Follow(ctx, groupID, userID)
}

func (s *GroupService) Unfollow(ctx context.Context, groupID, userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("Sign in to unfollow groups")
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return err
	}
	return s.groupRepo.Unfollow(ctx, groupID, userID)
}

func (s *GroupService) FollowerCount(ctx context.Context, groupID uint) (int64, error) {
	return s.groupRepo.FollowerCount(ctx, groupID)
}

func (s *GroupService) ListFollowedGroupIDs(ctx context.Context, userID uint) ([]uint, error) {
	if userID == 0 {
		return []uint{}, nil
	}
	return s.groupRepo.ListFollowedGroupIDs(ctx, userID)
}
