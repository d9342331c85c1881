package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"

	"groupfeed/internal/feed"
	"groupfeed/internal/follows"
	"groupfeed/internal/identity"
	"groupfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sourcegraph/conc/pool"
)

// maxConcurrentActions bounds the in-flight actions of one feed connection.
const maxConcurrentActions = 8

// feedFrame is the only message the server sends on a feed stream: the complete render
// state plus public URLs for every post's media.
type feedFrame struct {
	Type      string            `json:"type"`
	Feed      feed.Snapshot     `json:"feed"`
	MediaURLs map[uint][]string `json:"media_urls"`
}

// feedAction is a client request on a feed stream.
type feedAction struct {
	Type     string   `json:"type"`
	PostID   uint     `json:"post_id,omitempty"`
	Content  string   `json:"content,omitempty"`
	Media    []string `json:"media,omitempty"`
	NoticeID int      `json:"notice_id,omitempty"`
}

// latestFrame holds at most one unsent frame; a newer snapshot replaces an older one
// that the client has not received yet.
type latestFrame struct {
	mu      sync.Mutex
	pending []byte
	wake    chan struct{}
}

func newLatestFrame() *latestFrame {
	return &latestFrame{wake: make(chan struct{}, 1)}
}

func (l *latestFrame) offer(frame []byte) {
	l.mu.Lock()
	l.pending = frame
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *latestFrame) take() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	frame := l.pending
	l.pending = nil
	return frame
}

// FeedStreamHandler handles GET /api/ws/groups/:id/feed.
//
// Each connection owns a reconciler for (group, viewer). Confirmed events from every
// writer in the group are applied to it and the resulting snapshot is pushed to the
// client. Anonymous viewers may watch; their actions fail with UNAUTHORIZED notices.
func (s *Server) FeedStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.FeedSubscribers.Inc()
		defer observability.FeedSubscribers.Dec()

		groupID, err := strconv.ParseUint(conn.Params("id"), 10, 64)
		if err != nil || groupID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"invalid group id"}`))
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(s.shutdownCtx)
		defer cancel()

		var viewer uint
		if v, ok := conn.Locals("viewer").(*identity.Viewer); ok && v != nil {
			viewer = v.ID
			ctx = identity.WithViewer(ctx, v)
			ctx = observability.WithUserID(ctx, v.ID)
		}
		if rid, ok := conn.Locals("requestid").(string); ok {
			ctx = observability.WithRequestID(ctx, rid)
		}

		store := follows.NewStore(s.groupService)
		if err := store.Init(ctx, viewer); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "followed groups unavailable",
				slog.String("error", err.Error()))
		}

		r := feed.NewReconciler(feed.Config{
			GroupID:   uint(groupID),
			ViewerID:  viewer,
			Posts:     s.backend,
			Reactions: s.backend,
			Comments:  s.backend,
			Groups:    s.backend,
			Follows:   store,
		})

		out := newLatestFrame()
		unsubscribe := r.Subscribe(func(snap feed.Snapshot) {
			frame, err := json.Marshal(s.frameFor(snap))
			if err != nil {
				observability.GlobalLogger.ErrorContext(ctx, "encode feed frame", slog.String("error", err.Error()))
				return
			}
			out.offer(frame)
		})
		defer unsubscribe()

		// Only this goroutine writes to conn. Closing on ctx.Done also unblocks the
		// read loop below during server shutdown.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					_ = conn.Close()
					return
				case <-out.wake:
					frame := out.take()
					if frame == nil {
						continue
					}
					if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		if err := s.notifier.SubscribeGroup(ctx, uint(groupID), r.Apply); err != nil {
			observability.GlobalLogger.ErrorContext(ctx, "feed subscription failed",
				slog.Uint64("group_id", groupID),
				slog.String("error", err.Error()))
			cancel()
			<-writerDone
			return
		}
		// A failed load is reported to the client as a notice.
		_ = r.Load(ctx)

		actions := pool.New().WithMaxGoroutines(maxConcurrentActions)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var action feedAction
			if err := json.Unmarshal(msg, &action); err != nil {
				observability.GlobalLogger.DebugContext(ctx, "ignoring malformed feed action")
				continue
			}
			actions.Go(func() {
				s.runFeedAction(ctx, r, action)
			})
		}

		cancel()
		actions.Wait()
		<-writerDone
	})
}

// runFeedAction dispatches one client request. Failures surface as notices in the
// next snapshot, so returned errors are dropped here.
func (s *Server) runFeedAction(ctx context.Context, r *feed.Reconciler, a feedAction) {
	switch a.Type {
	case "like":
		_ = r.ToggleLike(ctx, a.PostID)
	case "comment":
		_, _ = r.AddComment(ctx, a.PostID, a.Content)
	case "create_post":
		_, _ = r.CreatePost(ctx, a.Content, a.Media)
	case "update_post":
		_, _ = r.UpdatePost(ctx, a.PostID, a.Content, a.Media)
	case "delete_post":
		_ = r.DeletePost(ctx, a.PostID)
	case "follow":
		_ = r.Follow(ctx)
	case "unfollow":
		_ = r.Unfollow(ctx)
	case "dismiss":
		r.Dismiss(a.NoticeID)
	case "reload":
		_ = r.Load(ctx)
	default:
		observability.GlobalLogger.DebugContext(ctx, "unknown feed action", slog.String("type", a.Type))
	}
}

func (s *Server) frameFor(snap feed.Snapshot) feedFrame {
	urls := make(map[uint][]string, len(snap.Posts))
	for _, p := range snap.Posts {
		list := make([]string, len(p.Media))
		for i, m := range p.Media {
			list[i] = s.media.URLFromPath(m)
		}
		urls[p.ID] = list
	}
	return feedFrame{Type: "snapshot", Feed: snap, MediaURLs: urls}
}
