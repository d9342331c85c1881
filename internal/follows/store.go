// Package follows holds the set of groups the signed-in viewer follows.
package follows

import (
	"context"
	"sort"
	"sync"
)

// Source lists the groups a user follows.
type Source interface {
	ListFollowedGroupIDs(ctx context.Context, userID uint) ([]uint, error)
}

// FollowedGroups is the read and refresh capability handed to consumers.
type FollowedGroups interface {
	Contains(groupID uint) bool
	IDs() []uint
	Set(groupID uint, following bool)
	Invalidate(ctx context.Context) error
}

// Store is populated once a session is established and refreshed on every
// follow, unfollow or group removal. Init with viewer 0 clears it.
type Store struct {
	src Source

	mu       sync.RWMutex
	viewerID uint
	ids      map[uint]struct{}
}

func NewStore(src Source) *Store {
	return &Store{src: src, ids: map[uint]struct{}{}}
}

// Init loads the followed set for viewerID, replacing any previous viewer's state.
func (s *Store) Init(ctx context.Context, viewerID uint) error {
	s.mu.Lock()
	s.viewerID = viewerID
	s.ids = map[uint]struct{}{}
	s.mu.Unlock()
	return s.Invalidate(ctx)
}

// Invalidate refetches the set. On error the previous contents are kept.
func (s *Store) Invalidate(ctx context.Context) error {
	s.mu.RLock()
	viewerID := s.viewerID
	s.mu.RUnlock()
	if viewerID == 0 {
		return nil
	}

	ids, err := s.src.ListFollowedGroupIDs(ctx, viewerID)
	if err != nil {
		return err
	}
	next := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewerID == viewerID {
		s.ids = next
	}
	return nil
}

func (s *Store) Contains(groupID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[groupID]
	return ok
}

func (s *Store) IDs() []uint {
	s.mu.RLock()
	out := make([]uint, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Set records a local membership change ahead of the next refresh.
func (s *Store) Set(groupID uint, following bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if following {
		s.ids[groupID] = struct{}{}
	} else {
		delete(s.ids, groupID)
	}
}
