package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

const userColumns = `id, email, role, status, status_reason, suspended_until, email_verified, muted_until`

type UserRepository struct {
	db storage.DBTX
}

func NewUserRepository(db storage.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, _, err := scanUser(r.db.QueryRowContext(ctx, query, id), false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// VerifyCredentials checks a bcrypt password hash maintained by the user service.
func (r *UserRepository) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = $1`
	user, hash, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if hash == "" {
		return nil, storage.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, storage.ErrInvalidCredentials
	}
	return user, nil
}

func scanUser(row rowScanner, withHash bool) (*models.User, string, error) {
	var (
		u         models.User
		status    string
		reason    sql.NullString
		suspended sql.NullTime
		muted     sql.NullTime
		hash      sql.NullString
	)
	dest := []interface{}{&u.ID, &u.Email, &u.Role, &status, &reason, &suspended, &u.EmailVerified, &muted}
	if withHash {
		dest = append(dest, &hash)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, "", err
	}

	u.Status = models.UserStatus(status)
	u.StatusReason = reason.String
	if suspended.Valid {
		t := suspended.Time
		u.SuspendedUntil = &t
	}
	if muted.Valid {
		t := muted.Time
		u.MutedUntil = &t
	}
	return &u, hash.String, nil
}
