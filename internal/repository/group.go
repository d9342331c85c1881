package repository

import (
	"context"

	"groupfeed/internal/cache"
	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository defines the interface for group and membership operations
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	GetByCoverPath(ctx context.Context, coverPath string) (*models.Group, error)
	IsFollower(ctx context.Context, groupID, userID uint) (bool, error)
	Follow(ctx context.Context, groupID, userID uint) error
	Unfollow(ctx context.Context, groupID, userID uint) error
	FollowerCount(ctx context.Context, groupID uint) (int64, error)
	ListFollowedGroupIDs(ctx context.Context, userID uint) ([]uint, error)
}

type groupRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db, log: observability.NewRepoLogger("groups")}
}

func (r *groupRepository) Create(ctx context.Context, group *models.Group) error {
	defer observability.TrackQuery("create", "groups")()
	if err := r.db.WithContext(ctx).Omit("Owner").Create(group).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return mapError(err, "Group", group.Slug)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"group_id": group.ID})
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	err := cache.Aside(ctx, cache.GroupKey(id), &group, cache.GroupTTL, func() error {
		defer observability.TrackQuery("read", "groups")()
		return r.db.WithContext(ctx).Preload("Owner").First(&group, id).Error
	})
	if err != nil {
		return nil, mapError(err, "Group", id)
	}
	return &group, nil
}

// GetByCoverPath finds the group whose cover is stored at coverPath.
func (r *groupRepository) GetByCoverPath(ctx context.Context, coverPath string) (*models.Group, error) {
	defer observability.TrackQuery("read", "groups")()
	var group models.Group
	err := r.db.WithContext(ctx).Where("cover_path = ?", coverPath).First(&group).Error
	if err != nil {
		return nil, mapError(err, "Group", coverPath)
	}
	return &group, nil
}

func (r *groupRepository) IsFollower(ctx context.Context, groupID, userID uint) (bool, error) {
	defer observability.TrackQuery("read", "group_followers")()
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupFollower{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, mapError(err, "Group", groupID)
	}
	return count > 0, nil
}

// Follow is idempotent: following twice leaves a single membership row.
func (r *groupRepository) Follow(ctx context.Context, groupID, userID uint) error {
	defer observability.TrackQuery("create", "group_followers")()
	row := &models.GroupFollower{GroupID: groupID, UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		r.log.LogError(ctx, err, "follow")
		return mapError(err, "Group", groupID)
	}
	cache.InvalidateFollows(ctx, userID, groupID)
	r.log.LogCreate(ctx, map[string]interface{}{"group_id": groupID, "user_id": userID})
	return nil
}

func (r *groupRepository) Unfollow(ctx context.Context, groupID, userID uint) error {
	defer observability.TrackQuery("delete", "group_followers")()
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupFollower{}).Error
	if err != nil {
		r.log.LogError(ctx, err, "unfollow")
		return mapError(err, "Group", groupID)
	}
	cache.InvalidateFollows(ctx, userID, groupID)
	r.log.LogDelete(ctx, map[string]interface{}{"group_id": groupID, "user_id": userID})
	return nil
}

func (r *groupRepository) FollowerCount(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.FollowerCountKey(groupID), &count, cache.FollowerCountTTL, func() error {
		defer observability.TrackQuery("count", "group_followers")()
		return r.db.WithContext(ctx).
			Model(&models.GroupFollower{}).
			Where("group_id = ?", groupID).
			Count(&count).Error
	})
	if err != nil {
		return 0, mapError(err, "Group", groupID)
	}
	return count, nil
}

func (r *groupRepository) ListFollowedGroupIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := cache.Aside(ctx, cache.FollowedGroupsKey(userID), &ids, cache.FollowedGroupsTTL, func() error {
		defer observability.TrackQuery("list", "group_followers")()
		return r.db.WithContext(ctx).
			Model(&models.GroupFollower{}).
			Where("user_id = ?", userID).
			Order("group_id ASC").
			Pluck("group_id", &ids).Error
	})
	if err != nil {
		return nil, mapError(err, "User", userID)
	}
	return ids, nil
}
