package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rryowa/authsession/internal/metrics"
	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
	"github.com/rryowa/authsession/internal/util"
)

// RefreshKind is the tag of a RefreshDecision.
type RefreshKind int

const (
	RefreshRejected RefreshKind = iota
	RefreshRotated
	RefreshReissued
)

func (k RefreshKind) String() string {
	switch k {
	case RefreshRejected:
		return "rejected"
	case RefreshRotated:
		return "rotated"
	case RefreshReissued:
		return "reissued"
	default:
		return fmt.Sprintf("RefreshKind(%d)", int(k))
	}
}

// RejectReason says which terminal state a rejected refresh ended in.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectNoToken
	RejectTokenInvalid
	RejectTokenExpired
	RejectAccountDeleted
	RejectAccountDeactivated
	RejectAccountBanned
	RejectAccountSuspended
	RejectSessionNotFound
	RejectSessionExpired
	RejectInternal
)

var rejectReasonNames = map[RejectReason]string{
	RejectNone:               "",
	RejectNoToken:            "no_token",
	RejectTokenInvalid:       "token_invalid",
	RejectTokenExpired:       "token_expired",
	RejectAccountDeleted:     "account_deleted",
	RejectAccountDeactivated: "account_deactivated",
	RejectAccountBanned:      "account_banned",
	RejectAccountSuspended:   "account_suspended",
	RejectSessionNotFound:    "session_not_found",
	RejectSessionExpired:     "session_expired",
	RejectInternal:           "internal",
}

func (r RejectReason) String() string {
	if name, ok := rejectReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RejectReason(%d)", int(r))
}

// RefreshDecision is the result of one pass through the refresh protocol.
// Exactly one of the following holds:
//   - Kind == RefreshRejected: Reason and Err are set, no tokens.
//   - Kind == RefreshRotated: a new refresh credential was persisted.
//   - Kind == RefreshReissued: only a new access token was minted and
//     RefreshToken is the session's stored current credential.
type RefreshDecision struct {
	Kind   RefreshKind
	Reason RejectReason
	Err    error

	User             *models.User
	SessionID        string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	UsedPrevious     bool
}

func reject(reason RejectReason, err error) RefreshDecision {
	return RefreshDecision{Kind: RefreshRejected, Reason: reason, Err: err}
}

// RefreshHandler owns the rotate-or-reissue decision.
type RefreshHandler struct {
	tokens        *TokenService
	users         storage.UserRepository
	sessions      storage.SessionRepository
	notifier      IPChangeNotifier
	rotationFloor time.Duration
	graceWindow   time.Duration
	log           *zap.SugaredLogger
}

func NewRefreshHandler(
	tokens *TokenService,
	users storage.UserRepository,
	sessions storage.SessionRepository,
	notifier IPChangeNotifier,
	cfg *util.SessionConfig,
	log *zap.SugaredLogger,
) *RefreshHandler {
	return &RefreshHandler{
		tokens:        tokens,
		users:         users,
		sessions:      sessions,
		notifier:      notifier,
		rotationFloor: cfg.RotationFloor,
		graceWindow:   cfg.GraceWindow,
		log:           log,
	}
}

// Decide runs the refresh protocol for a presented refresh token. Nothing is
// written to the session store before every pre-rotation check has passed,
// except the deletion of a session whose credential has expired.
func (h *RefreshHandler) Decide(ctx context.Context, presented string, device models.DeviceInfo, now time.Time) RefreshDecision {
	d := h.decide(ctx, presented, device, now)
	metrics.ObserveRefresh(d.Kind.String(), d.Reason.String())
	return d
}

func (h *RefreshHandler) decide(ctx context.Context, presented string, device models.DeviceInfo, now time.Time) RefreshDecision {
	if presented == "" {
		return reject(RejectNoToken, ErrNoToken)
	}

	claims, err := h.tokens.VerifyRefreshToken(presented, now)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return h.expired(ctx, presented, err, now)
		}
		return reject(RejectTokenInvalid, err)
	}

	user, err := h.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return reject(RejectAccountDeleted, ErrAccountDeleted)
		}
		return reject(RejectInternal, fmt.Errorf("load user: %w", err))
	}
	if reason, err := CheckAccount(user, now); err != nil {
		return reject(reason, err)
	}

	hash := HashToken(presented)
	session, usedPrevious, err := h.sessions.FindByCredential(ctx, claims.UserID, claims.SessionID, hash, now)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return reject(RejectSessionNotFound, ErrSessionNotFound)
		}
		return reject(RejectInternal, fmt.Errorf("find session: %w", err))
	}

	if !usedPrevious && session.CurrentExpired(now) {
		return h.deleteExpired(ctx, claims.UserID, claims.SessionID)
	}

	device = mergeDevice(session.Device, device)

	var d RefreshDecision
	if !usedPrevious && now.Sub(session.RotationAnchor()) >= h.rotationFloor {
		d = h.rotate(ctx, user, session, hash, device, now)
	} else {
		d = h.reissue(ctx, user, session, usedPrevious, device, now)
	}
	if d.Kind != RefreshRejected {
		h.notifyIPChange(ctx, session, device)
	}
	return d
}

// expired handles a refresh token past its exp. When it is still the
// session's current credential the session has lapsed with it and is
// removed; anything else is a plain expired token.
func (h *RefreshHandler) expired(ctx context.Context, presented string, verifyErr error, now time.Time) RefreshDecision {
	claims, err := h.tokens.ExpiredRefreshClaims(presented)
	if err != nil {
		return reject(RejectTokenExpired, verifyErr)
	}

	session, usedPrevious, err := h.sessions.FindByCredential(ctx, claims.UserID, claims.SessionID, HashToken(presented), now)
	if err != nil {
		if !errors.Is(err, storage.ErrSessionNotFound) {
			h.log.Errorw("failed to load session for expired token", "sessionID", claims.SessionID, "error", err)
		}
		return reject(RejectTokenExpired, verifyErr)
	}
	if usedPrevious || !session.CurrentExpired(now) {
		return reject(RejectTokenExpired, verifyErr)
	}
	return h.deleteExpired(ctx, claims.UserID, claims.SessionID)
}

func (h *RefreshHandler) deleteExpired(ctx context.Context, userID, sessionID string) RefreshDecision {
	if err := h.sessions.DeleteSession(ctx, userID, sessionID); err != nil {
		h.log.Errorw("failed to delete expired session", "sessionID", sessionID, "error", err)
	} else {
		metrics.ObserveRevocation("expired")
	}
	return reject(RejectSessionExpired, ErrSessionCredentialExpired)
}

func (h *RefreshHandler) rotate(
	ctx context.Context,
	user *models.User,
	session *models.Session,
	presentedHash string,
	device models.DeviceInfo,
	now time.Time,
) RefreshDecision {
	pair, cred, err := h.tokens.IssuePair(user, session.ID, now)
	if err != nil {
		return reject(RejectInternal, err)
	}

	err = h.sessions.RotateCredential(ctx, user.ID, session.ID, presentedHash, cred, now.Add(h.graceWindow), device, now)
	switch {
	case err == nil:
		return RefreshDecision{
			Kind:             RefreshRotated,
			User:             user,
			SessionID:        session.ID,
			AccessToken:      pair.AccessToken,
			AccessExpiresAt:  pair.AccessExpiresAt,
			RefreshToken:     pair.RefreshToken,
			RefreshExpiresAt: pair.RefreshExpiresAt,
		}
	case errors.Is(err, storage.ErrRotationConflict):
		// A concurrent refresh rotated first; the presented credential is
		// now the grace credential, so resynchronize onto the winner's.
		h.log.Infow("concurrent rotation detected, reissuing", "sessionID", session.ID)
		latest, usedPrevious, err := h.sessions.FindByCredential(ctx, user.ID, session.ID, presentedHash, now)
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				return reject(RejectSessionNotFound, ErrSessionNotFound)
			}
			return reject(RejectInternal, fmt.Errorf("reload session: %w", err))
		}
		return h.reissue(ctx, user, latest, usedPrevious, device, now)
	case errors.Is(err, storage.ErrSessionNotFound):
		return reject(RejectSessionNotFound, ErrSessionNotFound)
	default:
		return reject(RejectInternal, fmt.Errorf("rotate session: %w", err))
	}
}

func (h *RefreshHandler) reissue(
	ctx context.Context,
	user *models.User,
	session *models.Session,
	usedPrevious bool,
	device models.DeviceInfo,
	now time.Time,
) RefreshDecision {
	refresh, err := h.tokens.SignRefreshToken(user.ID, session.ID, session.Current)
	if err != nil {
		return reject(RejectInternal, err)
	}
	if !storage.HashesEqual(HashToken(refresh), session.Current.Hash) {
		return reject(RejectInternal, ErrCredentialResign)
	}

	access, accessExp, err := h.tokens.IssueAccessToken(user.ID, session.ID, user.Role, now)
	if err != nil {
		return reject(RejectInternal, err)
	}

	if err := h.sessions.TouchSession(ctx, user.ID, session.ID, device, now); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return reject(RejectSessionNotFound, ErrSessionNotFound)
		}
		return reject(RejectInternal, fmt.Errorf("touch session: %w", err))
	}

	return RefreshDecision{
		Kind:             RefreshReissued,
		User:             user,
		SessionID:        session.ID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: session.Current.ExpiresAt,
		UsedPrevious:     usedPrevious,
	}
}

func (h *RefreshHandler) notifyIPChange(ctx context.Context, session *models.Session, device models.DeviceInfo) {
	if h.notifier == nil {
		return
	}
	oldIP := session.Device.IPAddress
	if oldIP == "" || device.IPAddress == "" || oldIP == device.IPAddress {
		return
	}
	h.notifier.NotifyIPChange(ctx, IPChangeEvent{
		UserID:    session.UserID,
		SessionID: session.ID,
		OldIP:     oldIP,
		NewIP:     device.IPAddress,
		UserAgent: device.UserAgent,
	})
}

// CheckAccount maps the user's moderation state onto a reject reason.
func CheckAccount(user *models.User, now time.Time) (RejectReason, error) {
	switch user.Status {
	case models.UserStatusDeleted:
		return RejectAccountDeleted, ErrAccountDeleted
	case models.UserStatusDeactivated:
		return RejectAccountDeactivated, ErrAccountDeactivated
	case models.UserStatusBanned:
		return RejectAccountBanned, &AccountBlockedError{Err: ErrAccountBanned, Reason: user.StatusReason}
	case models.UserStatusSuspended:
		if user.IsSuspended(now) {
			return RejectAccountSuspended, &AccountBlockedError{
				Err:    ErrAccountSuspended,
				Reason: user.StatusReason,
				Until:  user.SuspendedUntil,
			}
		}
	}
	return RejectNone, nil
}
