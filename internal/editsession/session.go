// Package editsession tracks the attachments of a post while it is being edited and
// commits them together with the post record.
package editsession

import (
	"context"
	"strings"
	"sync"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"
	"groupfeed/internal/storage"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Media is the media store surface a session needs.
type Media interface {
	Store(ctx context.Context, f storage.File, kind storage.OwnerKind) (string, error)
	Remove(ctx context.Context, paths []string)
	PathFromURL(raw string) (string, bool)
}

// PostUpdater persists content and the final media list in one call.
type PostUpdater interface {
	UpdatePost(ctx context.Context, postID uint, content string, media []string) (*models.Post, error)
}

type State string

const (
	StateOpen      State = "open"
	StateCommitted State = "committed"
	StateCancelled State = "cancelled"
)

// Staged is a file waiting for upload, addressed by its preview handle.
type Staged struct {
	Handle string
	File   storage.File
	Kind   models.MediaKind
}

type Session struct {
	media   Media
	updater PostUpdater
	postID  uint

	mu            sync.Mutex
	state         State
	kept          []string
	pendingDelete []string
	staged        []Staged
	newHandle     func() string
}

// Open seeds a session from the post's current media. URLs are converted back to
// stored paths; foreign URLs are kept verbatim.
func Open(post *models.Post, media Media, updater PostUpdater) *Session {
	kept := make([]string, 0, len(post.Media))
	for _, raw := range post.Media {
		if p, ok := media.PathFromURL(raw); ok {
			kept = append(kept, p)
		} else if strings.TrimSpace(raw) != "" {
			kept = append(kept, raw)
		}
	}
	return &Session{
		media:     media,
		updater:   updater,
		postID:    post.ID,
		state:     StateOpen,
		kept:      kept,
		newHandle: func() string { return "blob:" + uuid.NewString() },
	}
}

func (s *Session) PostID() uint { return s.postID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Kept returns the paths that will survive the commit, in display order.
func (s *Session) Kept() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.kept...)
}

// PendingDelete returns the paths detached so far.
func (s *Session) PendingDelete() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.pendingDelete...)
}

// Staged returns the files waiting for upload, in attach order.
func (s *Session) Staged() []Staged {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Staged{}, s.staged...)
}

// AttachNew stages f for upload and returns its local preview handle.
func (s *Session) AttachNew(f storage.File) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return "", err
	}
	if len(f.Data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	handle := s.newHandle()
	s.staged = append(s.staged, Staged{Handle: handle, File: f, Kind: models.MediaKindOf(f.Name)})
	return handle, nil
}

// Preview returns the staged file behind handle. Handles stop resolving once the
// session is cancelled or committed.
func (s *Session) Preview(handle string) (storage.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.staged {
		if st.Handle == handle {
			return st.File, true
		}
	}
	return storage.File{}, false
}

// DetachNew drops a staged file before it is uploaded.
func (s *Session) DetachNew(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	for i, st := range s.staged {
		if st.Handle == handle {
			s.staged = append(s.staged[:i], s.staged[i+1:]...)
			return nil
		}
	}
	return models.NewNotFoundError("Staged file", handle)
}

// DetachExisting moves a kept path to the pending-delete set. The object is only
// deleted on commit.
func (s *Session) DetachExisting(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	target := raw
	if p, ok := s.media.PathFromURL(raw); ok {
		target = p
	}
	for i, p := range s.kept {
		if p == target {
			s.kept = append(s.kept[:i], s.kept[i+1:]...)
			s.pendingDelete = append(s.pendingDelete, p)
			return nil
		}
	}
	return models.NewNotFoundError("Attachment", raw)
}

// Cancel discards staged files and revokes their preview handles. The post is untouched.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.staged = nil
	s.pendingDelete = nil
	s.state = StateCancelled
}

func (s *Session) ensureOpen() error {
	if s.state != StateOpen {
		return models.NewValidationError("Edit session is " + string(s.state))
	}
	return nil
}

// Commit deletes detached objects (best-effort), uploads staged files in parallel and
// then updates the post once with kept plus uploaded paths.
//
// If any upload fails the post is not updated and the objects that did upload stay in
// storage unreferenced. The session stays open so the caller may retry or cancel.
func (s *Session) Commit(ctx context.Context, content string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" && len(s.kept)+len(s.staged) == 0 {
		return nil, models.NewValidationError("Post must have text or media")
	}

	ctx, span := observability.StartSpan(ctx, "EditSession.Commit")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if len(s.pendingDelete) > 0 {
		s.media.Remove(ctx, s.pendingDelete)
		s.pendingDelete = nil
	}

	uploaded := make([]string, len(s.staged))
	p := pool.New().WithErrors()
	for i, st := range s.staged {
		i, st := i, st
		p.Go(func() error {
			path, err := s.media.Store(ctx, st.File, storage.OwnerPostMedia)
			if err != nil {
				return err
			}
			uploaded[i] = path
			return nil
		})
	}
	if err = p.Wait(); err != nil {
		orphans := make([]string, 0, len(uploaded))
		for _, path := range uploaded {
			if path != "" {
				orphans = append(orphans, path)
			}
		}
		observability.LogBestEffortFailure(ctx, "edit_session_upload", err, map[string]interface{}{
			"post_id": s.postID,
			"orphans": orphans,
		})
		observability.EditSessionCommits.WithLabelValues("upload_failed").Inc()
		return nil, err
	}

	final := make([]string, 0, len(s.kept)+len(uploaded))
	final = append(final, s.kept...)
	final = append(final, uploaded...)

	post, err := s.updater.UpdatePost(ctx, s.postID, content, final)
	if err != nil {
		observability.EditSessionCommits.WithLabelValues("update_failed").Inc()
		return nil, err
	}

	s.kept = final
	s.staged = nil
	s.state = StateCommitted
	observability.EditSessionCommits.WithLabelValues("ok").Inc()
	return post, nil
}
