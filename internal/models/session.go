package models

import "time"

type Session struct {
	ID             string              `json:"id"`
	UserID         string              `json:"userId"`
	Current        RefreshCredential   `json:"current"`
	Previous       *PreviousCredential `json:"previous,omitempty"`
	LastRotationAt time.Time           `json:"lastRotationAt"`
	LastActiveAt   time.Time           `json:"lastActiveAt"`
	Device         DeviceInfo          `json:"device"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// RotationAnchor is the instant the rotation floor is measured from.
func (s *Session) RotationAnchor() time.Time {
	if s.LastRotationAt.IsZero() {
		return s.CreatedAt
	}
	return s.LastRotationAt
}

// CurrentExpired reports whether the current credential's absolute lifetime has passed.
func (s *Session) CurrentExpired(now time.Time) bool {
	return !now.Before(s.Current.ExpiresAt)
}

// GraceOpen reports whether the previous credential is still inside its grace window.
// The boundary itself is outside the window.
func (s *Session) GraceOpen(now time.Time) bool {
	if s.Previous == nil {
		return false
	}
	return now.Before(s.Previous.GraceUntil) && now.Before(s.Previous.ExpiresAt)
}
