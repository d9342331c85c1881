package notifications

import (
	"context"
	"testing"
	"time"

	"groupfeed/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupFeedChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "feed:group:12", GroupFeedChannel(12))
}

func TestNotifier_RedisRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan models.FeedEvent, 2)
	require.NoError(t, n.SubscribeGroup(ctx, 4, func(ev models.FeedEvent) { events <- ev }))

	require.NoError(t, n.PublishFeedEvent(ctx, models.FeedEvent{Kind: models.EventPostDeleted, GroupID: 5, PostID: 1}))
	require.NoError(t, n.PublishFeedEvent(ctx, models.FeedEvent{Kind: models.EventLikeToggled, GroupID: 4, PostID: 9, LikesCount: 3}))

	select {
	case ev := <-events:
		assert.Equal(t, models.EventLikeToggled, ev.Kind)
		assert.Equal(t, uint(9), ev.PostID)
		assert.Equal(t, 3, ev.LikesCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for another group: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotifier_LocalDelivery(t *testing.T) {
	n := NewNotifier(nil)
	ctx, cancel := context.WithCancel(context.Background())

	var got []models.FeedEvent
	require.NoError(t, n.SubscribeGroup(ctx, 1, func(ev models.FeedEvent) { got = append(got, ev) }))
	require.NoError(t, n.SubscribeGroup(ctx, 1, func(models.FeedEvent) { panic("subscriber bug") }))

	require.NoError(t, n.PublishFeedEvent(context.Background(), models.FeedEvent{Kind: models.EventPostCreated, GroupID: 1}))
	require.Len(t, got, 1)

	cancel()
	assert.Eventually(t, func() bool {
		n.mu.RLock()
		defer n.mu.RUnlock()
		return len(n.local) == 0
	}, time.Second, 10*time.Millisecond)
}
