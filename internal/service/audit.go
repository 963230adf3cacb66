package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

const (
	IssueTokenInvalid      = "token_invalid"
	IssueTokenExpired      = "token_expired"
	IssueAccountDeleted    = "account_deleted"
	IssueAccountDeactivate = "account_deactivated"
	IssueAccountBanned     = "account_banned"
	IssueAccountSuspended  = "account_suspended"
	IssueSessionRevoked    = "session_revoked"
	IssueSessionExpired    = "session_expired"
	IssueRoleMismatch      = "role_mismatch"
	IssueSuperseded        = "credential_superseded"

	WarningTokenAge        = "token_age"
	WarningEmailUnverified = "email_unverified"
	WarningMuted           = "account_muted"
)

// AuditReport compares what a token claims with the live user and session.
type AuditReport struct {
	Valid     bool      `json:"valid"`
	TokenType string    `json:"tokenType,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	IssuedAt  time.Time `json:"issuedAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Issues    []string  `json:"issues"`
	Warnings  []string  `json:"warnings"`
}

// Auditor is a read-only diagnostic. It never mutates users or sessions.
type Auditor struct {
	tokens   *TokenService
	users    storage.UserRepository
	sessions storage.SessionRepository
}

func NewAuditor(tokens *TokenService, users storage.UserRepository, sessions storage.SessionRepository) *Auditor {
	return &Auditor{tokens: tokens, users: users, sessions: sessions}
}

type auditClaims struct {
	kind      string
	userID    string
	sessionID string
	role      string
	issuedAt  time.Time
	expiresAt time.Time
}

func (a *Auditor) Audit(ctx context.Context, token string, now time.Time) (AuditReport, error) {
	report := AuditReport{Issues: []string{}, Warnings: []string{}}

	claims, err := a.decode(token, now)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			report.Issues = append(report.Issues, IssueTokenExpired)
		} else {
			report.Issues = append(report.Issues, IssueTokenInvalid)
		}
		return report, nil
	}
	report.TokenType = claims.kind
	report.UserID = claims.userID
	report.SessionID = claims.sessionID
	report.IssuedAt = claims.issuedAt
	report.ExpiresAt = claims.expiresAt

	if lifetime := claims.expiresAt.Sub(claims.issuedAt); lifetime > 0 && now.Sub(claims.issuedAt) > lifetime/2 {
		report.Warnings = append(report.Warnings, WarningTokenAge)
	}

	user, err := a.users.GetUserByID(ctx, claims.userID)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		report.Issues = append(report.Issues, IssueAccountDeleted)
	case err != nil:
		return AuditReport{}, fmt.Errorf("audit: load user: %w", err)
	default:
		report.Issues = append(report.Issues, accountIssues(user, claims, now)...)
		if !user.EmailVerified {
			report.Warnings = append(report.Warnings, WarningEmailUnverified)
		}
		if user.IsMuted(now) {
			report.Warnings = append(report.Warnings, WarningMuted)
		}
	}

	session, err := a.sessions.GetSession(ctx, claims.userID, claims.sessionID)
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		report.Issues = append(report.Issues, IssueSessionRevoked)
	case err != nil:
		return AuditReport{}, fmt.Errorf("audit: load session: %w", err)
	case session.CurrentExpired(now):
		report.Issues = append(report.Issues, IssueSessionExpired)
	case claims.kind == tokenTypeRefresh:
		// Same two-tier match the refresh handler applies.
		if _, ok := storage.MatchCredential(session, HashToken(token), now); !ok {
			report.Issues = append(report.Issues, IssueSuperseded)
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}

// decode accepts either token type; access is tried first.
func (a *Auditor) decode(token string, now time.Time) (auditClaims, error) {
	access, accessErr := a.tokens.VerifyAccessToken(token, now)
	if accessErr == nil {
		return auditClaims{
			kind:      tokenTypeAccess,
			userID:    access.UserID,
			sessionID: access.SessionID,
			role:      access.Role,
			issuedAt:  access.IssuedAt,
			expiresAt: access.ExpiresAt,
		}, nil
	}

	refresh, refreshErr := a.tokens.VerifyRefreshToken(token, now)
	if refreshErr == nil {
		return auditClaims{
			kind:      tokenTypeRefresh,
			userID:    refresh.UserID,
			sessionID: refresh.SessionID,
			issuedAt:  refresh.IssuedAt,
			expiresAt: refresh.ExpiresAt,
		}, nil
	}

	if errors.Is(accessErr, ErrTokenExpired) || errors.Is(refreshErr, ErrTokenExpired) {
		return auditClaims{}, ErrTokenExpired
	}
	return auditClaims{}, ErrTokenInvalid
}

func accountIssues(user *models.User, claims auditClaims, now time.Time) []string {
	var issues []string
	switch reason, _ := CheckAccount(user, now); reason {
	case RejectAccountDeleted:
		issues = append(issues, IssueAccountDeleted)
	case RejectAccountDeactivated:
		issues = append(issues, IssueAccountDeactivate)
	case RejectAccountBanned:
		issues = append(issues, IssueAccountBanned)
	case RejectAccountSuspended:
		issues = append(issues, IssueAccountSuspended)
	}
	if claims.kind == tokenTypeAccess && claims.role != user.Role {
		issues = append(issues, IssueRoleMismatch)
	}
	return issues
}
