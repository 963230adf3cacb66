package service

import (
	"errors"
	"net/http"
)

const (
	CodeNoToken            = "NO_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeAccountDeleted     = "ACCOUNT_DELETED"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeAccountBanned      = "ACCOUNT_BANNED"
	CodeAccountSuspended   = "ACCOUNT_SUSPENDED"
	CodeHandshakeTimeout   = "HANDSHAKE_TIMEOUT"
	CodeIdleTimeout        = "IDLE_TIMEOUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL_ERROR"
)

//nolint:gochecknoglobals // static lookup table
var errorClasses = []struct {
	err    error
	status int
	code   string
}{
	{ErrNoToken, http.StatusUnauthorized, CodeNoToken},
	{ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired},
	{ErrTokenInvalid, http.StatusUnauthorized, CodeTokenInvalid},
	{ErrSessionNotFound, http.StatusUnauthorized, CodeSessionNotFound},
	{ErrSessionCredentialExpired, http.StatusUnauthorized, CodeSessionExpired},
	{ErrAccountDeleted, http.StatusUnauthorized, CodeAccountDeleted},
	{ErrAccountDeactivated, http.StatusForbidden, CodeAccountDeactivated},
	{ErrAccountBanned, http.StatusForbidden, CodeAccountBanned},
	{ErrAccountSuspended, http.StatusForbidden, CodeAccountSuspended},
	{ErrHandshakeTimeout, http.StatusRequestTimeout, CodeHandshakeTimeout},
	{ErrIdleTimeout, http.StatusUnauthorized, CodeIdleTimeout},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
}

// Classify maps an error from this package onto an HTTP status and a stable
// machine-readable code. ok is false for anything outside the taxonomy.
func Classify(err error) (status int, code string, ok bool) {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.status, c.code, true
		}
	}
	return http.StatusInternalServerError, CodeInternal, false
}

// PublicMessage is the user-facing text for a classified error.
func PublicMessage(err error) string {
	var blocked *AccountBlockedError
	if errors.As(err, &blocked) {
		return blocked.Error()
	}
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "internal server error"
}
