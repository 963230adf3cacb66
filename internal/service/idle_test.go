package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rryowa/authsession/internal/storage/memory"
)

func TestIdleTracker_States(t *testing.T) {
	ctx := context.Background()
	tracker := NewIdleTracker(memory.NewActivityStore(), 30*time.Minute)

	state, err := tracker.Check(ctx, "u1", t0)
	if err != nil || state != IdleFresh {
		t.Fatalf("empty tracker: state %v err %v", state, err)
	}

	if err := tracker.Touch(ctx, "u1", t0); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if state, _ := tracker.Check(ctx, "u1", t0.Add(29*time.Minute)); state != IdleActive {
		t.Fatalf("29m idle: got %v", state)
	}

	timedOut, err := tracker.IsTimedOut(ctx, "u1", t0.Add(30*time.Minute))
	if err != nil || !timedOut {
		t.Fatalf("30m idle must time out: %v %v", timedOut, err)
	}
	if state, _ := tracker.Check(ctx, "u1", t0.Add(31*time.Minute)); state != IdleFresh {
		t.Fatalf("timeout must clear the record, got %v", state)
	}
}

func TestTrackActivity_IdleTimeoutIndependentOfTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	login := h.login()
	hashAtLogin := h.session(login.SessionID).Current.Hash

	for _, minute := range []time.Duration{0, 10, 25, 50} {
		h.at(minute * time.Minute)
		if err := h.svc.TrackActivity(ctx, testUserID, login.SessionID); err != nil {
			t.Fatalf("activity at %dm: %v", minute, err)
		}
	}
	if h.session(login.SessionID).Current.Hash != hashAtLogin {
		t.Fatal("REST activity must not change the refresh credential")
	}

	// Refresh keeps working while the user is idle on REST.
	h.at(85 * time.Minute)
	refreshed := h.mustRefresh(login.RefreshToken)

	if err := h.svc.TrackActivity(ctx, testUserID, login.SessionID); !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("got %v, want ErrIdleTimeout", err)
	}
	if _, err := h.refresh(refreshed.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle timeout must revoke the session, refresh got %v", err)
	}
	if len(h.sockets.sessions) != 1 {
		t.Fatalf("idle timeout must disconnect sockets, got %v", h.sockets.sessions)
	}
}

func TestTrackActivity_FreshRecordRequiresLiveSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	login := h.login()

	if err := h.svc.Logout(ctx, testUserID, login.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := h.svc.TrackActivity(ctx, testUserID, login.SessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
}
