package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/idx"
	"github.com/aussiebroadwan/invite/pkg/jwtx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrInvalidUser        = errors.New("username and email are required")
)

// RequestMeta describes the client a session is created for.
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

// AccountService owns users, passwords and login sessions. Methods that take
// a store.Store run against whatever they are handed, so the redemption
// transaction can pass its Tx.
type AccountService struct {
	Store      store.Store
	Signer     *jwtx.SessionSigner
	SessionTTL time.Duration

	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AccountService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return jwtx.DefaultSessionTTL
}

// GetUserByID fetches a user by id.
func (s *AccountService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

func (s *AccountService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.Store.Users().GetUserByUsername(ctx, username)
}

// EnsureUser returns the account named username, creating a passwordless one
// if it does not exist yet. An existing account keeps its email.
func (s *AccountService) EnsureUser(ctx context.Context, username, email string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if username == "" || email == "" {
		return domain.User{}, ErrInvalidUser
	}

	u, err := s.GetUserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to fetch user", slog.String("username", username), slog.Any("error", err))
		return domain.User{}, err
	}

	now := s.now()
	u = domain.User{
		ID:        idx.New().String(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.Store.Users().CreateUser(ctx, u)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with another mint for the same name.
		return s.Store.Users().GetUserByUsername(ctx, username)
	}
	if err != nil {
		log.Error("failed to create user", slog.String("username", username), slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("created account", slog.String("user_id", u.ID), slog.String("username", username))
	return u, nil
}

// SetPassword hashes password with Argon2id and stores it on the user.
func (s *AccountService) SetPassword(ctx context.Context, st store.Store, userID, password string) error {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return st.Users().UpdatePasswordHash(ctx, userID, hash)
}

// Authenticate checks a username and password against the stored hash.
func (s *AccountService) Authenticate(ctx context.Context, st store.Store, username, password string) (domain.User, error) {
	u, err := st.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if !u.HasPassword() {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	return u, nil
}

// CreateSession records a login session for user.
func (s *AccountService) CreateSession(ctx context.Context, st store.Store, user domain.User, meta RequestMeta) (domain.Session, error) {
	now := s.now()
	sess := domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: now.Add(s.sessionTTL()),
		CreatedAt: now,
	}
	if err := st.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// IssueToken signs a session token for an already persisted session.
func (s *AccountService) IssueToken(user domain.User, sess domain.Session) (string, error) {
	if s.Signer == nil {
		return "", errors.New("no session signer configured")
	}
	claims := jwtx.NewSessionClaims(user.ID, user.Username, sess.ID, "", sess.ExpiresAt, s.now())
	return s.Signer.Sign(claims)
}

// VerifySession resolves a session token to its user and session, checking
// the session row so revoked or swept sessions stop working immediately.
func (s *AccountService) VerifySession(ctx context.Context, token string) (string, string, error) {
	if s.Signer == nil {
		return "", "", ErrInvalidSession
	}
	claims, err := s.Signer.Verify(token)
	if err != nil {
		slogx.FromContext(ctx).Debug("session token rejected", slog.Any("error", err))
		return "", "", ErrInvalidSession
	}

	sess, err := s.Store.Sessions().GetSessionByID(ctx, claims.SID)
	if errors.Is(err, store.ErrNotFound) {
		return "", "", ErrInvalidSession
	}
	if err != nil {
		return "", "", err
	}
	if sess.UserID != claims.Subject || !sess.Active(s.now()) {
		return "", "", ErrInvalidSession
	}
	return sess.UserID, sess.ID, nil
}

// RevokeSession ends a session early.
func (s *AccountService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.Store.Sessions().RevokeSession(ctx, sessionID)
}
