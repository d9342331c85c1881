// Package optimistic applies a local state change ahead of a remote confirmation
// and reverts it when the confirmation fails.
package optimistic

import (
	"context"

	"groupfeed/internal/observability"
)

// Update describes one speculative mutation. Apply changes local state and returns
// whatever Revert needs to restore it; Confirm is the remote call.
type Update[T any] struct {
	Action  string
	Apply   func() T
	Revert  func(T)
	Confirm func(ctx context.Context) error
}

// Do applies u, waits for the confirmation and reverts on failure.
// The confirmation error is returned unchanged.
func Do[T any](ctx context.Context, u Update[T]) error {
	prior := u.Apply()
	if err := u.Confirm(ctx); err != nil {
		u.Revert(prior)
		observability.OptimisticRollbacks.WithLabelValues(u.Action).Inc()
		return err
	}
	return nil
}
