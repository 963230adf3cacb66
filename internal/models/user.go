package models

import "time"

type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusDeactivated UserStatus = "deactivated"
	UserStatusBanned      UserStatus = "banned"
	UserStatusSuspended   UserStatus = "suspended"
	UserStatusDeleted     UserStatus = "deleted"
)

// User is the slice of the user directory the session subsystem reads.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Status         UserStatus `json:"status"`
	StatusReason   string     `json:"-"`
	SuspendedUntil *time.Time `json:"-"`
	EmailVerified  bool       `json:"emailVerified"`
	MutedUntil     *time.Time `json:"-"`
}

// IsSuspended treats a suspension without an end as indefinite; a lapsed one no longer blocks.
func (u *User) IsSuspended(now time.Time) bool {
	if u.Status != UserStatusSuspended {
		return false
	}
	return u.SuspendedUntil == nil || now.Before(*u.SuspendedUntil)
}

func (u *User) IsMuted(now time.Time) bool {
	return u.MutedUntil != nil && now.Before(*u.MutedUntil)
}

// UserView is the public projection returned alongside issued tokens.
type UserView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
}

func (u *User) View() UserView {
	return UserView{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}
