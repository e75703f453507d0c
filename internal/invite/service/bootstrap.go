package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/idx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

var (
	ErrAlreadyBootstrapped   = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapInvalid      = errors.New("bootstrap requires username, email and password")
)

// BootstrapRequest describes the first account, the one that sends the
// first invitations.
type BootstrapRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type BootstrapService struct {
	Store store.Store
	Token string // pre-configured bootstrap token; empty disables bootstrap
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the first user. It only works while the user table is
// empty and the caller presents the configured token.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req BootstrapRequest) (domain.User, error) {
	l := slogx.FromContext(ctx)

	if s.Token == "" || !cryptox.EqualTokens(token, s.Token) {
		l.Warn("unauthorized bootstrap attempt")
		return domain.User{}, ErrBootstrapUnauthorized
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return domain.User{}, ErrBootstrapInvalid
	}

	passHash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash bootstrap password", slog.Any("error", err))
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passHash,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrAlreadyBootstrapped
		}
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, ErrAlreadyBootstrapped) {
		l.Warn("attempted bootstrap on already-bootstrapped system")
		return domain.User{}, err
	}
	if err != nil {
		l.Error("failed to create bootstrap user", slog.Any("error", err))
		return domain.User{}, err
	}

	l.Info("successfully bootstrapped system", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}
