package memory

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

type userRecord struct {
	user         models.User
	passwordHash []byte
}

// UserDirectory is an in-memory stand-in for the external user directory.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]userRecord
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]userRecord)}
}

// PutUser inserts or replaces a user. An empty password leaves the user unable to log in.
func (d *UserDirectory) PutUser(u models.User, password string) error {
	rec := userRecord{user: u}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		rec.passwordHash = hash
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = rec
	return nil
}

func (d *UserDirectory) UpdateUser(u models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec := d.users[u.ID]
	rec.user = u
	d.users[u.ID] = rec
}

func (d *UserDirectory) RemoveUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, userID)
}

func (d *UserDirectory) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	u := rec.user
	return &u, nil
}

func (d *UserDirectory) VerifyCredentials(_ context.Context, email, password string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, rec := range d.users {
		if !strings.EqualFold(rec.user.Email, email) {
			continue
		}
		if len(rec.passwordHash) == 0 {
			return nil, storage.ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
			return nil, storage.ErrInvalidCredentials
		}
		u := rec.user
		return &u, nil
	}
	return nil, storage.ErrInvalidCredentials
}
