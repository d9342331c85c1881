package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		SetClient(nil)
		mr.Close()
	})
	return mr
}

type cachedGroup struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestAside_FetchesOnceThenServesFromCache(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedGroup) func() error {
		return func() error {
			calls++
			*dest = cachedGroup{ID: 7, Name: "Astro Club"}
			return nil
		}
	}

	var first cachedGroup
	require.NoError(t, Aside(ctx, GroupKey(7), &first, GroupTTL, fetch(&first)))
	var second cachedGroup
	require.NoError(t, Aside(ctx, GroupKey(7), &second, GroupTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Astro Club", second.Name)
	assert.True(t, mr.Exists("group:7"))

	mr.FastForward(GroupTTL + time.Second)
	assert.False(t, mr.Exists("group:7"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	var dest cachedGroup
	err := Aside(ctx, GroupKey(1), &dest, GroupTTL, func() error { return errors.New("db down") })
	require.Error(t, err)
	assert.False(t, mr.Exists("group:1"))
}

func TestInvalidateGroup(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, GroupKey(3), cachedGroup{ID: 3}, GroupTTL))
	require.NoError(t, SetJSON(ctx, FollowerCountKey(3), 12, FollowerCountTTL))

	InvalidateGroup(ctx, 3)
	assert.False(t, mr.Exists(GroupKey(3)))
	assert.False(t, mr.Exists(FollowerCountKey(3)))
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	found, err := GetJSON(ctx, "anything", &cachedGroup{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetJSON(ctx, "anything", 1, time.Minute))
	Invalidate(ctx, "anything")
}
