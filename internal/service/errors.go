package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoToken                  = errors.New("no token provided")
	ErrTokenExpired             = errors.New("token expired")
	ErrTokenInvalid             = errors.New("token invalid")
	ErrSessionNotFound          = errors.New("session not found")
	ErrSessionCredentialExpired = errors.New("session expired")
	ErrAccountDeleted           = errors.New("account deleted")
	ErrAccountDeactivated       = errors.New("account deactivated")
	ErrAccountBanned            = errors.New("account banned")
	ErrAccountSuspended         = errors.New("account suspended")
	ErrHandshakeTimeout         = errors.New("handshake timed out")
	ErrIdleTimeout              = errors.New("session idle timeout")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrCredentialResign         = errors.New("stored refresh credential cannot be re-signed")
)

// AccountBlockedError carries the moderator-facing reason for a ban or suspension.
type AccountBlockedError struct {
	Err    error
	Reason string
	Until  *time.Time
}

func (e *AccountBlockedError) Error() string {
	msg := e.Err.Error()
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Until != nil {
		msg = fmt.Sprintf("%s (until %s)", msg, e.Until.UTC().Format(time.RFC3339))
	}
	return msg
}

func (e *AccountBlockedError) Unwrap() error { return e.Err }
