package service

import (
	"context"
	"strings"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
}

type AddCommentInput struct {
	PostID  uint
	UserID  uint
	Content string
}

// AddedComment is a stored comment together with the group its post belongs to.
type AddedComment struct {
	Comment *models.Comment
	GroupID uint
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

// AddComment appends a comment and returns it with the author resolved.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (res *AddedComment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService.AddComment", attribute.Int("post.id", int(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Sign in to comment")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: post.ID, UserID: in.UserID, Content: content}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	stored, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	return &AddedComment{Comment: stored, GroupID: post.GroupID}, nil
}

func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}
