package models

import "time"

//nolint:gosec //file not handles sensitive data
const (
	MwAuthorizationHeader = "Authorization"
	MwBearerPrefix        = "Bearer "

	MwUserIDKey    = "userID"
	MwSessionIDKey = "sessionID"
	MwRoleKey      = "role"
	MwTokenKey     = "token"

	CookieAccessToken  = "token"
	CookieRefreshToken = "refreshToken"
)

// DeviceInfo is informational metadata captured from the client on login
// and refreshed on every successful refresh.
type DeviceInfo struct {
	UserAgent string `json:"userAgent"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	IPAddress string `json:"ipAddress"`
}

// RefreshCredential is the stored half of a refresh token. Only the hash of
// the signed token is kept; the remaining fields are the non-secret claim
// material needed to re-sign the same token.
type RefreshCredential struct {
	TokenID   string    `json:"tokenId"`
	Hash      string    `json:"-"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PreviousCredential is the credential replaced by the last rotation.
type PreviousCredential struct {
	RefreshCredential
	GraceUntil time.Time `json:"graceUntil"`
}
