package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rryowa/authsession/internal/models"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrRotationConflict    = errors.New("refresh credential changed concurrently")
	ErrDuplicateCredential = errors.New("refresh credential already in use")
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Storage interface {
	SessionRepository
	UserRepository
}

// UserRepository is the narrow view of the external user directory.
type UserRepository interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session models.Session) error
	// FindByCredential checks the current credential first and falls back to
	// the previous one only while its grace window is open. usedPrevious
	// reports which of the two matched.
	FindByCredential(ctx context.Context, userID, sessionID, hash string, now time.Time) (session *models.Session, usedPrevious bool, err error)
	// RotateCredential swaps expectedHash for next, keeping the old current
	// credential as previous until graceUntil. Returns ErrRotationConflict
	// when the stored current hash is no longer expectedHash.
	RotateCredential(ctx context.Context, userID, sessionID, expectedHash string, next models.RefreshCredential, graceUntil time.Time, device models.DeviceInfo, now time.Time) error
	TouchSession(ctx context.Context, userID, sessionID string, device models.DeviceInfo, now time.Time) error
	GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error)
	ListUserSessions(ctx context.Context, userID string) ([]models.Session, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
}

// ActivityStore keeps the idle tracker's userID -> last activity clock.
type ActivityStore interface {
	SetLastActivity(ctx context.Context, userID string, at time.Time) error
	GetLastActivity(ctx context.Context, userID string) (at time.Time, ok bool, err error)
	DeleteActivity(ctx context.Context, userID string) error
}
