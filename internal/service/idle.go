package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rryowa/authsession/internal/storage"
)

type IdleState int

const (
	// IdleFresh means no activity was on record for the user.
	IdleFresh IdleState = iota
	IdleActive
	IdleTimedOut
)

// IdleTracker is a policy clock separate from credential validity: a session
// can be refresh-valid and still be logged out for inactivity.
type IdleTracker struct {
	store   storage.ActivityStore
	timeout time.Duration
}

func NewIdleTracker(store storage.ActivityStore, timeout time.Duration) *IdleTracker {
	return &IdleTracker{store: store, timeout: timeout}
}

func (t *IdleTracker) Touch(ctx context.Context, userID string, now time.Time) error {
	if err := t.store.SetLastActivity(ctx, userID, now); err != nil {
		return fmt.Errorf("idle touch: %w", err)
	}
	return nil
}

// IsTimedOut reports whether the user has been idle for the full timeout.
// A timed-out record is cleared.
func (t *IdleTracker) IsTimedOut(ctx context.Context, userID string, now time.Time) (bool, error) {
	state, err := t.Check(ctx, userID, now)
	if err != nil {
		return false, err
	}
	return state == IdleTimedOut, nil
}

// Check classifies the user's idle clock without recording new activity.
func (t *IdleTracker) Check(ctx context.Context, userID string, now time.Time) (IdleState, error) {
	last, ok, err := t.store.GetLastActivity(ctx, userID)
	if err != nil {
		return IdleActive, fmt.Errorf("idle check: %w", err)
	}
	if !ok {
		return IdleFresh, nil
	}
	if now.Sub(last) < t.timeout {
		return IdleActive, nil
	}

	if err := t.store.DeleteActivity(ctx, userID); err != nil {
		return IdleTimedOut, fmt.Errorf("idle clear: %w", err)
	}
	return IdleTimedOut, nil
}

func (t *IdleTracker) Clear(ctx context.Context, userID string) error {
	if err := t.store.DeleteActivity(ctx, userID); err != nil {
		return fmt.Errorf("idle clear: %w", err)
	}
	return nil
}
