package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/metrics"
	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
	"github.com/rryowa/authsession/internal/util"
)

// SessionDisconnector closes realtime connections bound to revoked sessions.
type SessionDisconnector interface {
	DisconnectSession(sessionID string)
	DisconnectUser(userID string)
}

// IssuedSession is what login and refresh hand back to the transport layer.
type IssuedSession struct {
	User             *models.User
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Rotated          bool
}

type AuthService struct {
	tokens  *TokenService
	storage storage.Storage
	refresh *RefreshHandler
	idle    *IdleTracker
	auditor *Auditor
	sockets SessionDisconnector
	log     *zap.SugaredLogger
	clock   func() time.Time
}

func NewAuthService(
	tokens *TokenService,
	store storage.Storage,
	activity storage.ActivityStore,
	notifier IPChangeNotifier,
	cfg *util.SessionConfig,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		tokens:  tokens,
		storage: store,
		refresh: NewRefreshHandler(tokens, store, store, notifier, cfg, log),
		idle:    NewIdleTracker(activity, cfg.IdleTimeout),
		auditor: NewAuditor(tokens, store, store),
		log:     log,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// SetDisconnector wires the realtime hub after construction; the hub itself depends on AuthService.
func (s *AuthService) SetDisconnector(d SessionDisconnector) {
	s.sockets = d
}

// SetClock replaces the time source. Tests only.
func (s *AuthService) SetClock(clock func() time.Time) {
	s.clock = clock
}

func (s *AuthService) Now() time.Time { return s.clock() }

// Login verifies credentials with the user directory and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string, device models.DeviceInfo) (*IssuedSession, error) {
	user, err := s.storage.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	now := s.clock()
	if _, err := CheckAccount(user, now); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	pair, cred, err := s.tokens.IssuePair(user, sessionID, now)
	if err != nil {
		return nil, err
	}

	session := models.Session{
		ID:             sessionID,
		UserID:         user.ID,
		Current:        cred,
		LastRotationAt: now,
		LastActiveAt:   now,
		Device:         device,
		CreatedAt:      now,
	}
	if err := s.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Infow("session created", "userID", user.ID, "sessionID", sessionID, "ip", device.IPAddress)

	return &IssuedSession{
		User:             user,
		SessionID:        sessionID,
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		Rotated:          true,
	}, nil
}

// Refresh runs the refresh protocol and unwraps its decision.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, device models.DeviceInfo) (*IssuedSession, error) {
	d := s.refresh.Decide(ctx, refreshToken, device, s.clock())

	switch d.Kind {
	case RefreshRejected:
		if d.Reason == RejectInternal {
			s.log.Errorw("refresh failed", "error", d.Err)
		} else {
			s.log.Infow("refresh rejected", "reason", d.Reason.String())
		}
		return nil, d.Err
	case RefreshRotated, RefreshReissued:
		if d.UsedPrevious {
			s.log.Infow("refresh within grace window, client resynchronized", "sessionID", d.SessionID)
		}
		return &IssuedSession{
			User:             d.User,
			SessionID:        d.SessionID,
			AccessToken:      d.AccessToken,
			AccessExpiresAt:  d.AccessExpiresAt,
			RefreshToken:     d.RefreshToken,
			RefreshExpiresAt: d.RefreshExpiresAt,
			Rotated:          d.Kind == RefreshRotated,
		}, nil
	default:
		return nil, fmt.Errorf("unhandled refresh decision %s", d.Kind)
	}
}

// Logout revokes one session. Revoking an absent session succeeds.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if err := s.storage.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.idle.Clear(ctx, userID); err != nil {
		s.log.Warnw("failed to clear idle record", "userID", userID, "error", err)
	}
	if s.sockets != nil {
		s.sockets.DisconnectSession(sessionID)
	}
	metrics.ObserveRevocation("logout")
	s.log.Infow("session revoked", "userID", userID, "sessionID", sessionID)
	return nil
}

// LogoutAll revokes every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.storage.DeleteAllUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	if err := s.idle.Clear(ctx, userID); err != nil {
		s.log.Warnw("failed to clear idle record", "userID", userID, "error", err)
	}
	if s.sockets != nil {
		s.sockets.DisconnectUser(userID)
	}
	metrics.ObserveRevocation("logout_all")
	s.log.Infow("all sessions revoked", "userID", userID)
	return nil
}

// RevokeOtherSession lets a user end one of their sessions from another device.
func (s *AuthService) RevokeOtherSession(ctx context.Context, userID, sessionID string) error {
	if err := s.storage.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if s.sockets != nil {
		s.sockets.DisconnectSession(sessionID)
	}
	metrics.ObserveRevocation("remote")
	return nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.storage.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *AuthService) VerifyAccessToken(token string) (AccessClaims, error) {
	return s.tokens.VerifyAccessToken(token, s.clock())
}

// SessionActive loads the user's session list and reports whether sessionID
// is present with an unexpired credential.
func (s *AuthService) SessionActive(ctx context.Context, userID, sessionID string) (bool, error) {
	sessions, err := s.storage.ListUserSessions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load sessions: %w", err)
	}
	now := s.clock()
	for i := range sessions {
		if sessions[i].ID == sessionID {
			return !sessions[i].CurrentExpired(now), nil
		}
	}
	return false, nil
}

// TrackActivity is the idle policy for one authenticated REST request.
// It returns ErrIdleTimeout after revoking the session when the user has
// been idle too long, and ErrSessionNotFound when the first request after
// an absent idle record presents a token for a session that is gone.
func (s *AuthService) TrackActivity(ctx context.Context, userID, sessionID string) error {
	now := s.clock()

	state, err := s.idle.Check(ctx, userID, now)
	if err != nil {
		return err
	}

	switch state {
	case IdleTimedOut:
		metrics.ObserveIdleTimeout()
		s.log.Infow("idle timeout", "userID", userID, "sessionID", sessionID)
		if err := s.Logout(ctx, userID, sessionID); err != nil {
			return err
		}
		return ErrIdleTimeout
	case IdleFresh:
		active, err := s.SessionActive(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		if !active {
			return ErrSessionNotFound
		}
	case IdleActive:
	}

	return s.idle.Touch(ctx, userID, now)
}

func (s *AuthService) Audit(ctx context.Context, token string) (AuditReport, error) {
	return s.auditor.Audit(ctx, token, s.clock())
}
