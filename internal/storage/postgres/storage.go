package postgres

import (
	"database/sql"
)

// Storage bundles the Postgres repositories behind storage.Storage.
type Storage struct {
	*UserRepository
	*SessionRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		UserRepository:    NewUserRepository(db),
		SessionRepository: NewSessionRepository(db),
	}
}
