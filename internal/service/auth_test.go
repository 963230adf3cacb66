package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rryowa/authsession/internal/models"
)

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	issued := h.login()
	if issued.SessionID == "" || issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("incomplete login result %+v", issued)
	}
	s := h.session(issued.SessionID)
	if s.Current.Hash != HashToken(issued.RefreshToken) {
		t.Fatal("session must store the refresh token hash")
	}
	if s.Device.Browser != "curl" {
		t.Fatalf("device browser = %q", s.Device.Browser)
	}

	if _, err := h.svc.Login(ctx, testEmail, "wrong", models.DeviceInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}

	h.updateUser(func(u *models.User) { u.Status = models.UserStatusDeactivated })
	if _, err := h.svc.Login(ctx, testEmail, testPassword, models.DeviceInfo{}); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("deactivated: got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	issued := h.login()

	for i := 0; i < 2; i++ {
		if err := h.svc.Logout(ctx, testUserID, issued.SessionID); err != nil {
			t.Fatalf("logout #%d: %v", i+1, err)
		}
	}
	if active, _ := h.svc.SessionActive(ctx, testUserID, issued.SessionID); active {
		t.Fatal("session still active after logout")
	}
}

func TestLogoutAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.login()
	h.at(time.Minute)
	second := h.login()

	sessions, err := h.svc.ListSessions(ctx, testUserID)
	if err != nil || len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d (%v)", len(sessions), err)
	}

	if err := h.svc.LogoutAll(ctx, testUserID); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := h.refresh(token); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("refresh after logout-all: got %v", err)
		}
	}
	if len(h.sockets.users) != 1 || h.sockets.users[0] != testUserID {
		t.Fatalf("user sockets not disconnected: %v", h.sockets.users)
	}
}

func TestRevokeOtherSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	keep := h.login()
	drop := h.login()

	if err := h.svc.RevokeOtherSession(ctx, testUserID, drop.SessionID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if active, _ := h.svc.SessionActive(ctx, testUserID, keep.SessionID); !active {
		t.Fatal("the other session must survive")
	}
	if active, _ := h.svc.SessionActive(ctx, testUserID, drop.SessionID); active {
		t.Fatal("revoked session still active")
	}
}

func TestSessionActive_ExpiredCredential(t *testing.T) {
	h := newHarness(t)
	issued := h.login()

	h.at(31 * 24 * time.Hour)
	if active, err := h.svc.SessionActive(context.Background(), testUserID, issued.SessionID); err != nil || active {
		t.Fatalf("expired session reported active=%v err=%v", active, err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
		known  bool
	}{
		{ErrNoToken, 401, CodeNoToken, true},
		{ErrTokenExpired, 401, CodeTokenExpired, true},
		{ErrSessionNotFound, 401, CodeSessionNotFound, true},
		{ErrSessionCredentialExpired, 401, CodeSessionExpired, true},
		{ErrAccountDeleted, 401, CodeAccountDeleted, true},
		{ErrAccountDeactivated, 403, CodeAccountDeactivated, true},
		{&AccountBlockedError{Err: ErrAccountSuspended}, 403, CodeAccountSuspended, true},
		{ErrHandshakeTimeout, 408, CodeHandshakeTimeout, true},
		{ErrIdleTimeout, 401, CodeIdleTimeout, true},
		{errors.New("db down"), 500, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, known := Classify(tt.err)
			if status != tt.status || code != tt.code || known != tt.known {
				t.Fatalf("Classify(%v) = %d %s %v", tt.err, status, code, known)
			}
		})
	}
}
