package models

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuditRequest struct {
	Token string `json:"token"`
}

// TokenPairResponse is the envelope returned by login and refresh.
type TokenPairResponse struct {
	Success      bool     `json:"success"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         UserView `json:"user"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

type SessionView struct {
	ID             string     `json:"id"`
	Device         DeviceInfo `json:"device"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastActiveAt   time.Time  `json:"lastActiveAt"`
	LastRotationAt time.Time  `json:"lastRotationAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	Current        bool       `json:"current"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
