package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

type InMemorySessionManager struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	log      *zap.SugaredLogger
}

func NewSessionRepository(log *zap.SugaredLogger) *InMemorySessionManager {
	return &InMemorySessionManager{
		sessions: make(map[string]models.Session),
		log:      log,
	}
}

func (m *InMemorySessionManager) CreateSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sessions {
		if storage.HashesEqual(s.Current.Hash, session.Current.Hash) {
			return storage.ErrDuplicateCredential
		}
	}

	m.sessions[session.ID] = cloneSession(session)
	m.log.Debugw("Session created", "sessionID", session.ID, "userID", session.UserID)

	return nil
}

func (m *InMemorySessionManager) FindByCredential(
	_ context.Context,
	userID, sessionID, hash string,
	now time.Time,
) (*models.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		m.log.Debugw("Session not found", "sessionID", sessionID, "userID", userID)
		return nil, false, storage.ErrSessionNotFound
	}

	usedPrevious, matched := storage.MatchCredential(&session, hash, now)
	if !matched {
		m.log.Debugw("Session credential mismatch", "sessionID", sessionID)
		return nil, false, storage.ErrSessionNotFound
	}

	out := cloneSession(session)
	return &out, usedPrevious, nil
}

func (m *InMemorySessionManager) RotateCredential(
	_ context.Context,
	userID, sessionID, expectedHash string,
	next models.RefreshCredential,
	graceUntil time.Time,
	device models.DeviceInfo,
	now time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return storage.ErrSessionNotFound
	}
	if !storage.HashesEqual(session.Current.Hash, expectedHash) {
		return storage.ErrRotationConflict
	}

	session.Previous = &models.PreviousCredential{
		RefreshCredential: session.Current,
		GraceUntil:        graceUntil,
	}
	session.Current = next
	session.LastRotationAt = now
	session.LastActiveAt = now
	session.Device = device
	m.sessions[sessionID] = session

	return nil
}

func (m *InMemorySessionManager) TouchSession(
	_ context.Context,
	userID, sessionID string,
	device models.DeviceInfo,
	now time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return storage.ErrSessionNotFound
	}
	session.LastActiveAt = now
	session.Device = device
	m.sessions[sessionID] = session

	return nil
}

func (m *InMemorySessionManager) GetSession(_ context.Context, userID, sessionID string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, storage.ErrSessionNotFound
	}
	out := cloneSession(session)
	return &out, nil
}

func (m *InMemorySessionManager) ListUserSessions(_ context.Context, userID string) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			out = append(out, cloneSession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (m *InMemorySessionManager) DeleteSession(_ context.Context, userID, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[sessionID]; ok && session.UserID == userID {
		delete(m.sessions, sessionID)
	}

	return nil
}

func (m *InMemorySessionManager) DeleteAllUserSessions(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, id)
		}
	}

	return nil
}

func cloneSession(s models.Session) models.Session {
	if s.Previous != nil {
		prev := *s.Previous
		s.Previous = &prev
	}
	return s
}
