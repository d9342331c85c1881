// Package service contains the business rules layered over the repositories.
package service

import (
	"context"
	"strings"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/permission"
	"groupfeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxContentLen = 50000

// MediaRemover deletes stored objects on a best-effort basis.
type MediaRemover interface {
	Remove(ctx context.Context, paths []string)
}

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	media     MediaRemover
}

type CreatePostInput struct {
	GroupID uint
	UserID  uint
	Content string
	Media   []string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content string
	Media   []string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

type ListPostsInput struct {
	GroupID  uint
	ViewerID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	media MediaRemover,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		media:     media,
	}
}

func validatePostBody(content string, media []string) error {
	if strings.TrimSpace(content) == "" && len(media) == 0 {
		return models.NewValidationError("Post must have text or media")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	for _, p := range media {
		if strings.TrimSpace(p) == "" {
			return models.NewValidationError("Media path must not be empty")
		}
	}
	return nil
}

// CreatePost stores a new post and returns it hydrated for its author.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost",
		attribute.Int("group.id", int(in.GroupID)),
		attribute.Int("media.count", len(in.Media)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to post")
	}
	if err := validatePostBody(in.Content, in.Media); err != nil {
		return nil, err
	}

	group, err := s.groupRepo.GetByID(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	isFollower, err := s.groupRepo.IsFollower(ctx, group.ID, in.UserID)
	if err != nil {
		return nil, err
	}
	perm := permission.Evaluate(permission.Inputs{
		Authenticated:      true,
		IsOwner:            group.OwnerID == in.UserID,
		IsFollower:         isFollower,
		AllowMembersToPost: group.AllowMembersToPost,
	})
	if !perm.CanPost() {
		return nil, models.NewPermissionDeniedError("You are not allowed to post in this group")
	}

	post = &models.Post{
		GroupID: group.ID,
		UserID:  in.UserID,
		Content: in.Content,
		Media:   append([]string{}, in.Media...),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.LogServiceCall(ctx, "PostService", "CreatePost", map[string]interface{}{
		"post_id":  post.ID,
		"group_id": group.ID,
	})
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// UpdatePost replaces content and the full media list. The returned post is re-read so it
// carries likes and comments that landed while the edit was open.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost", attribute.Int("post.id", int(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validatePostBody(in.Content, in.Media); err != nil {
		return nil, err
	}
	existing, err := s.authorize(ctx, in.PostID, in.UserID, "edit")
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateContent(ctx, existing.ID, in.Content, in.Media); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, existing.ID, in.UserID)
}

// DeletePost removes media objects (best-effort) and then the row. It returns the post as
// it was before deletion.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost", attribute.Int("post.id", int(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.authorize(ctx, in.PostID, in.UserID, "delete")
	if err != nil {
		return nil, err
	}
	if paths := post.MediaPaths(); len(paths) > 0 && s.media != nil {
		s.media.Remove(ctx, paths)
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) ListByGroup(ctx context.Context, in ListPostsInput) (posts []*models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService.ListByGroup", attribute.Int("group.id", int(in.GroupID)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.groupRepo.GetByID(ctx, in.GroupID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByGroup(ctx, in.GroupID, in.ViewerID)
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id, viewerID)
}

// PostForEdit returns the post if userID may edit it. Callers that touch storage before
// the update use it to fail early.
func (s *PostService) PostForEdit(ctx context.Context, postID, userID uint) (*models.Post, error) {
	return s.authorize(ctx, postID, userID, "edit")
}

// authorize loads the post and checks that userID is its author or the group owner.
func (s *PostService) authorize(ctx context.Context, postID, userID uint, verb string) (*models.Post, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to " + verb + " posts")
	}
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.UserID == userID {
		return post, nil
	}
	group, err := s.groupRepo.GetByID(ctx, post.GroupID)
	if err != nil {
		return nil, err
	}
	if group.OwnerID != userID {
		return nil, models.NewPermissionDeniedError("Only the author or the group owner can " + verb + " this post")
	}
	return post, nil
}
