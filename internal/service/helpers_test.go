package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage/memory"
	"github.com/rryowa/authsession/internal/util"
)

const (
	testUserID   = "user-1"
	testEmail    = "alice@example.com"
	testPassword = "correct horse"
)

var t0 = time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

func newTestTokens() *TokenService {
	return NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte("test-secret"),
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   30 * 24 * time.Hour,
	})
}

type recordingDisconnector struct {
	mu       sync.Mutex
	sessions []string
	users    []string
}

func (r *recordingDisconnector) DisconnectSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, sessionID)
}

func (r *recordingDisconnector) DisconnectUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []IPChangeEvent
}

func (r *recordingNotifier) NotifyIPChange(_ context.Context, event IPChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type harness struct {
	t        *testing.T
	svc      *AuthService
	tokens   *TokenService
	store    *memory.Storage
	activity *memory.ActivityStore
	sockets  *recordingDisconnector
	notifier *recordingNotifier
	now      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop().Sugar()

	store := memory.NewStorage(log)
	if err := store.PutUser(models.User{
		ID:            testUserID,
		Email:         testEmail,
		Role:          "user",
		Status:        models.UserStatusActive,
		EmailVerified: true,
	}, testPassword); err != nil {
		t.Fatalf("put user: %v", err)
	}

	h := &harness{
		t:        t,
		tokens:   newTestTokens(),
		store:    store,
		activity: memory.NewActivityStore(),
		sockets:  &recordingDisconnector{},
		notifier: &recordingNotifier{},
		now:      t0,
	}
	h.svc = NewAuthService(h.tokens, store, h.activity, h.notifier, util.DefaultSessionConfig(), log)
	h.svc.SetClock(func() time.Time { return h.now })
	h.svc.SetDisconnector(h.sockets)
	return h
}

func (h *harness) at(d time.Duration) {
	h.now = t0.Add(d)
}

func (h *harness) login() *IssuedSession {
	h.t.Helper()
	issued, err := h.svc.Login(context.Background(), testEmail, testPassword, NewDeviceInfo("curl/8.0", "10.0.0.1"))
	if err != nil {
		h.t.Fatalf("login: %v", err)
	}
	return issued
}

func (h *harness) refresh(token string) (*IssuedSession, error) {
	return h.svc.Refresh(context.Background(), token, NewDeviceInfo("curl/8.0", "10.0.0.1"))
}

func (h *harness) mustRefresh(token string) *IssuedSession {
	h.t.Helper()
	issued, err := h.refresh(token)
	if err != nil {
		h.t.Fatalf("refresh at %s: %v", h.now.Sub(t0), err)
	}
	return issued
}

func (h *harness) session(id string) *models.Session {
	h.t.Helper()
	s, err := h.store.GetSession(context.Background(), testUserID, id)
	if err != nil {
		h.t.Fatalf("get session: %v", err)
	}
	return s
}

func (h *harness) updateUser(mutate func(u *models.User)) {
	h.t.Helper()
	u, err := h.store.GetUserByID(context.Background(), testUserID)
	if err != nil {
		h.t.Fatalf("get user: %v", err)
	}
	mutate(u)
	h.store.UpdateUser(*u)
}
