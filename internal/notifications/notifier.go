// Package notifications fans confirmed feed events out to every process serving a group.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes feed events into Redis channels. Without a Redis client it
// delivers to subscribers in the same process.
type Notifier struct {
	rdb *redis.Client

	mu     sync.RWMutex
	local  map[uint]map[int]func(models.FeedEvent)
	nextID int
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, local: map[uint]map[int]func(models.FeedEvent){}}
}

// GroupFeedChannel derives the Redis channel name for a group feed.
func GroupFeedChannel(groupID uint) string {
	return "feed:group:" + strconv.FormatUint(uint64(groupID), 10)
}

// PublishFeedEvent sends ev to the group's channel.
func (n *Notifier) PublishFeedEvent(ctx context.Context, ev models.FeedEvent) error {
	if n.rdb == nil {
		n.dispatchLocal(ev)
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	return n.rdb.Publish(ctx, GroupFeedChannel(ev.GroupID), payload).Err()
}

// SubscribeGroup calls onEvent for every event published to groupID until ctx is done.
// The subscription is active when SubscribeGroup returns.
func (n *Notifier) SubscribeGroup(ctx context.Context, groupID uint, onEvent func(models.FeedEvent)) error {
	if n.rdb == nil {
		n.subscribeLocal(ctx, groupID, onEvent)
		return nil
	}

	sub := n.rdb.Subscribe(ctx, GroupFeedChannel(groupID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", GroupFeedChannel(groupID), err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.FeedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					observability.GlobalLogger.Warn("dropping malformed feed event",
						"channel", msg.Channel,
						"error", err,
					)
					continue
				}
				deliver(onEvent, ev)
			}
		}
	}()

	return nil
}

func (n *Notifier) subscribeLocal(ctx context.Context, groupID uint, onEvent func(models.FeedEvent)) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	if n.local[groupID] == nil {
		n.local[groupID] = map[int]func(models.FeedEvent){}
	}
	n.local[groupID][id] = onEvent
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.local[groupID], id)
		if len(n.local[groupID]) == 0 {
			delete(n.local, groupID)
		}
		n.mu.Unlock()
	}()
}

func (n *Notifier) dispatchLocal(ev models.FeedEvent) {
	n.mu.RLock()
	fns := make([]func(models.FeedEvent), 0, len(n.local[ev.GroupID]))
	for _, fn := range n.local[ev.GroupID] {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()
	for _, fn := range fns {
		deliver(fn, ev)
	}
}

func deliver(fn func(models.FeedEvent), ev models.FeedEvent) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.Error("panic in feed subscriber",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(ev)
}
