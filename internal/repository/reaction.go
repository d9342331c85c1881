package repository

import (
	"context"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"gorm.io/gorm"
)

// ReactionRepository defines the interface for like membership operations.
// Like and Unlike are discrete insert and delete calls; a duplicate insert fails.
type ReactionRepository interface {
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	CountForPost(ctx context.Context, postID uint) (int, error)
}

type reactionRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db, log: observability.NewRepoLogger("likes")}
}

func (r *reactionRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	defer observability.TrackQuery("read", "likes")()
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, mapError(err, "Like", postID)
	}
	return count > 0, nil
}

func (r *reactionRepository) Like(ctx context.Context, userID, postID uint) error {
	defer observability.TrackQuery("create", "likes")()
	like := &models.Like{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		r.log.LogError(ctx, err, "like")
		return mapError(err, "Like", postID)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": userID, "post_id": postID})
	return nil
}

func (r *reactionRepository) Unlike(ctx context.Context, userID, postID uint) error {
	defer observability.TrackQuery("delete", "likes")()
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		r.log.LogError(ctx, err, "unlike")
		return mapError(err, "Like", postID)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": userID, "post_id": postID})
	return nil
}

func (r *reactionRepository) CountForPost(ctx context.Context, postID uint) (int, error) {
	defer observability.TrackQuery("count", "likes")()
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	if err != nil {
		return 0, mapError(err, "Like", postID)
	}
	return int(count), nil
}
