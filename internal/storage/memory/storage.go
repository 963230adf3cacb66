package memory

import "go.uber.org/zap"

// Storage bundles the in-memory user directory and session repository
// behind storage.Storage for local runs and tests.
type Storage struct {
	*UserDirectory
	*InMemorySessionManager
}

func NewStorage(log *zap.SugaredLogger) *Storage {
	return &Storage{
		UserDirectory:          NewUserDirectory(),
		InMemorySessionManager: NewSessionRepository(log),
	}
}
