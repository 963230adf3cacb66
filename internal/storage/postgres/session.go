package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

const uniqueViolation = "23505"

const sessionColumns = `id, user_id,
	current_token_id, current_hash, current_issued_at, current_expires_at,
	previous_token_id, previous_hash, previous_issued_at, previous_expires_at, previous_grace_until,
	last_rotation_at, last_active_at, user_agent, browser, os, client_ip, created_at`

type SessionRepository struct {
	db storage.DBTX
}

func NewSessionRepository(db storage.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session models.Session) error {
	query := `INSERT INTO sessions (id, user_id, current_token_id, current_hash, current_issued_at, current_expires_at,
		last_rotation_at, last_active_at, user_agent, browser, os, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.Current.TokenID,
		session.Current.Hash,
		session.Current.IssuedAt,
		session.Current.ExpiresAt,
		session.LastRotationAt,
		session.LastActiveAt,
		session.Device.UserAgent,
		session.Device.Browser,
		session.Device.OS,
		session.Device.IPAddress,
		session.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert session %s: %w", session.ID, storage.ErrDuplicateCredential)
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByCredential(
	ctx context.Context,
	userID, sessionID, hash string,
	now time.Time,
) (*models.Session, bool, error) {
	session, err := r.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, false, err
	}

	usedPrevious, ok := storage.MatchCredential(session, hash, now)
	if !ok {
		return nil, false, fmt.Errorf("session %s credential mismatch: %w", sessionID, storage.ErrSessionNotFound)
	}
	return session, usedPrevious, nil
}

// RotateCredential выполняет compare-and-swap текущего refresh-хэша.
// Старый текущий хэш становится предыдущим до graceUntil.
func (r *SessionRepository) RotateCredential(
	ctx context.Context,
	userID, sessionID, expectedHash string,
	next models.RefreshCredential,
	graceUntil time.Time,
	device models.DeviceInfo,
	now time.Time,
) error {
	query := `UPDATE sessions SET
		previous_token_id = current_token_id,
		previous_hash = current_hash,
		previous_issued_at = current_issued_at,
		previous_expires_at = current_expires_at,
		previous_grace_until = $4,
		current_token_id = $5,
		current_hash = $6,
		current_issued_at = $7,
		current_expires_at = $8,
		last_rotation_at = $9,
		last_active_at = $9,
		user_agent = $10,
		browser = $11,
		os = $12,
		client_ip = $13
		WHERE id = $1 AND user_id = $2 AND current_hash = $3`
	res, err := r.db.ExecContext(
		ctx,
		query,
		sessionID,
		userID,
		expectedHash,
		graceUntil,
		next.TokenID,
		next.Hash,
		next.IssuedAt,
		next.ExpiresAt,
		now,
		device.UserAgent,
		device.Browser,
		device.OS,
		device.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("rotate session credential: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate session credential: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	exists, err := r.sessionExists(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("rotate session %s: %w", sessionID, storage.ErrSessionNotFound)
	}
	return fmt.Errorf("rotate session %s: %w", sessionID, storage.ErrRotationConflict)
}

func (r *SessionRepository) TouchSession(
	ctx context.Context,
	userID, sessionID string,
	device models.DeviceInfo,
	now time.Time,
) error {
	query := `UPDATE sessions SET last_active_at = $3, user_agent = $4, browser = $5, os = $6, client_ip = $7
		WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, sessionID, userID, now, device.UserAgent, device.Browser, device.OS, device.IPAddress)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("touch session %s: %w", sessionID, storage.ErrSessionNotFound)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND user_id = $2`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s not found: %w", sessionID, storage.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) ListUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return out, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	query := `DELETE FROM sessions WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllUserSessions(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) sessionExists(ctx context.Context, userID, sessionID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, sessionID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check session exists: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s          models.Session
		prevID     sql.NullString
		prevHash   sql.NullString
		prevIssued sql.NullTime
		prevExp    sql.NullTime
		prevGrace  sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Current.TokenID,
		&s.Current.Hash,
		&s.Current.IssuedAt,
		&s.Current.ExpiresAt,
		&prevID,
		&prevHash,
		&prevIssued,
		&prevExp,
		&prevGrace,
		&s.LastRotationAt,
		&s.LastActiveAt,
		&s.Device.UserAgent,
		&s.Device.Browser,
		&s.Device.OS,
		&s.Device.IPAddress,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if prevHash.Valid {
		s.Previous = &models.PreviousCredential{
			RefreshCredential: models.RefreshCredential{
				TokenID:   prevID.String,
				Hash:      prevHash.String,
				IssuedAt:  prevIssued.Time,
				ExpiresAt: prevExp.Time,
			},
			GraceUntil: prevGrace.Time,
		}
	}
	return &s, nil
}
