package domain

import "time"

// DefaultInvitationDays is the validity window used when none is configured.
const DefaultInvitationDays = 30

// Invitation grants its recipient the right to set a password and log in,
// once, until ExpirationDate.
type Invitation struct {
	ID             string
	Code           string // opaque, unique redemption key
	DateInvited    time.Time
	ExpirationDate time.Time // DateInvited + window
	Used           bool      // redemption deletes the row; kept for the sweep predicate
	ToUserID       string
	FromUserID     string
	CreatedAt      time.Time

	// ToUsername is filled by queries that join the recipient, for display only.
	ToUsername string
}

// Expired reports whether the invitation can no longer be redeemed at now.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpirationDate)
}

func (i Invitation) String() string {
	if i.ToUsername == "" {
		return "Invitation to " + i.ToUserID
	}
	return "Invitation to " + i.ToUsername
}
