package service

import (
	"context"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ToggleResult is the settled like state for one viewer.
type ToggleResult struct {
	PostID     uint `json:"post_id"`
	GroupID    uint `json:"group_id"`
	LikesCount int  `json:"likes_count"`
	Liked      bool `json:"liked"`
}

type ReactionService struct {
	postRepo     repository.PostRepository
	reactionRepo repository.ReactionRepository
}

func NewReactionService(postRepo repository.PostRepository, reactionRepo repository.ReactionRepository) *ReactionService {
	return &ReactionService{postRepo: postRepo, reactionRepo: reactionRepo}
}

// Toggle flips the viewer's like with a discrete insert or delete. Two toggles racing
// for the same viewer can both read the same state; the loser fails on the unique index
// or deletes nothing, and the client catches up on its next full load.
func (s *ReactionService) Toggle(ctx context.Context, postID, viewerID uint) (res *ToggleResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ReactionService.Toggle", attribute.Int("post.id", int(postID)))
	defer func() { observability.EndSpan(span, err) }()

	if viewerID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to like posts")
	}
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, err
	}

	liked, err := s.reactionRepo.IsLiked(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	if liked {
		err = s.reactionRepo.Unlike(ctx, viewerID, postID)
	} else {
		err = s.reactionRepo.Like(ctx, viewerID, postID)
	}
	if err != nil {
		return nil, err
	}

	count, err := s.reactionRepo.CountForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{
		PostID:     postID,
		GroupID:    post.GroupID,
		LikesCount: count,
		Liked:      !liked,
	}, nil
}
