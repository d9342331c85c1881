// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListByGroup(ctx context.Context, groupID uint, viewerID uint) ([]*models.Post, error)
	UpdateContent(ctx context.Context, id uint, content string, media []string) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if post.Media == nil {
		post.Media = datatypes.JSONSlice[string]{}
	}
	if err := r.db.WithContext(ctx).Omit("User", "Comments").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return mapError(err, "Post", 0)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "group_id": post.GroupID})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	defer observability.TrackQuery("read", "posts")()
	var post models.Post
	err := r.expanded(r.db.WithContext(ctx), viewerID).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID uint, viewerID uint) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	var posts []*models.Post
	err := r.expanded(r.db.WithContext(ctx), viewerID).
		Where("posts.group_id = ?", groupID).
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, mapError(err, "Group", groupID)
	}
	r.log.LogRead(ctx, map[string]interface{}{"group_id": groupID, "count": len(posts)})
	return posts, nil
}

// expanded joins in author, like count, viewer membership and comments with their authors
// so a post is hydrated in one round of queries.
func (r *postRepository) expanded(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

	if viewerID != 0 {
		db = db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked_by_viewer", viewerID)
	} else {
		db = db.Select(selectQuery + ", false AS liked_by_viewer")
	}

	return db.
		Preload("User").
		Preload("Comments", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("comments.created_at ASC").Order("comments.id ASC")
		}).
		Preload("Comments.User")
}

func (r *postRepository) UpdateContent(ctx context.Context, id uint, content string, media []string) error {
	defer observability.TrackQuery("update", "posts")()
	if media == nil {
		media = []string{}
	}
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"media":      datatypes.JSONSlice[string](media),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update")
		return mapError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"post_id": id, "media": len(media)})
	return nil
}

// Delete removes the post row together with its like and comment rows.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "posts")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return mapError(err, "Post", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}
