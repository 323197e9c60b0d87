package entity

import (
	"time"
)

// User is the aggregate root for the user domain.
// PasswordHash is a bcrypt hash; it stays empty for accounts created through
// the social-auth path until the user sets a password.
//
// The reset fields are set together by forgot-password and cleared together
// when the reset completes; they are never observable in isolation.
type User struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	AvatarURL         string     `json:"avatar"`
	Role              Role       `json:"role"`
	IsVerified        bool       `json:"isVerified"`
	IsBlocked         bool       `json:"isBlocked"`
	ResetToken        *string    `json:"-"`
	ResetCode         *string    `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	Courses           []string   `json:"courses"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// HasOpenReset reports whether a password reset flow is in progress.
func (u *User) HasOpenReset() bool {
	return u.ResetToken != nil && u.ResetCode != nil && u.ResetTokenExpires != nil
}

// MonthlyCount is one bucket of the signup analytics series.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}
