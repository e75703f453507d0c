package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories, so a Tx hands out the same repositories bound to
// the transaction and nothing can open a transaction inside another.
type Store interface {
	Users() Users
	Invitations() Invitations
	Sessions() Sessions
	Profiles() Profiles

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction: committed when fn returns nil, rolled
	// back otherwise (including on panic).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// A duplicate username returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Invitations interface {
	// CreateInvitation inserts a new invitation. A dangling to/from user
	// reference fails with the driver's foreign-key error, unchanged.
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByCode returns the invitation regardless of expiry.
	GetInvitationByCode(ctx context.Context, code string) (domain.Invitation, error)

	// ListInvitations returns every invitation, newest first.
	ListInvitations(ctx context.Context) ([]domain.Invitation, error)

	// DeleteInvitation removes one invitation. Deleting a row that is
	// already gone returns ErrNotFound, which is how a losing concurrent
	// redemption learns it lost.
	DeleteInvitation(ctx context.Context, id string) error

	// DeleteExpiredInvitations removes unused invitations whose expiration
	// date is before now and reports how many were removed.
	DeleteExpiredInvitations(ctx context.Context, now time.Time) (int64, error)

	// CountPendingInvitations counts unused invitations addressed to a user.
	CountPendingInvitations(ctx context.Context, userID string) (int, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	RevokeSession(ctx context.Context, id string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Profiles interface {
	// CreateProfile inserts a profile; a second profile for the same user
	// returns ErrAlreadyExists.
	CreateProfile(ctx context.Context, p domain.Profile) error

	GetProfileByUserID(ctx context.Context, userID string) (domain.Profile, error)

	GetProfileBySlug(ctx context.Context, slug string) (domain.Profile, error)
}
