package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2 encoded; empty until an invitation is redeemed
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can log in with a password.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

type Session struct {
	ID        string
	UserID    string
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

func (s Session) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

// Profile is the public page a user lands on after redeeming an invitation.
type Profile struct {
	UserID    string
	Slug      string
	CreatedAt time.Time
}

func (p Profile) URL() string { return "/profiles/" + p.Slug + "/" }
