package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	GroupKeyPrefix          = "group:%d"
	FollowerCountKeyPrefix  = "group:%d:followers"
	FollowedGroupsKeyPrefix = "user:%d:followed_groups"
)

const (
	GroupTTL          = 10 * time.Minute
	FollowerCountTTL  = 2 * time.Minute
	FollowedGroupsTTL = 5 * time.Minute
)

func GroupKey(groupID uint) string {
	return fmt.Sprintf(GroupKeyPrefix, groupID)
}

func FollowerCountKey(groupID uint) string {
	return fmt.Sprintf(FollowerCountKeyPrefix, groupID)
}

func FollowedGroupsKey(userID uint) string {
	return fmt.Sprintf(FollowedGroupsKeyPrefix, userID)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result in Redis with ttl. Cache failures fall through to fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate deletes the given keys; a nil client makes it a no-op.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateGroup drops cached metadata and follower count for a group.
func InvalidateGroup(ctx context.Context, groupID uint) {
	Invalidate(ctx, GroupKey(groupID), FollowerCountKey(groupID))
}

// InvalidateFollows drops everything derived from one follow edge.
func InvalidateFollows(ctx context.Context, userID, groupID uint) {
	Invalidate(ctx, FollowedGroupsKey(userID), FollowerCountKey(groupID))
}
