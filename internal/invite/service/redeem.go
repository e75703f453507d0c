package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

var ErrInvalidForm = errors.New("redemption form is not valid")

// DefaultLoginRedirectURL is where users go after redemption when they have
// no profile page.
const DefaultLoginRedirectURL = "/invite/complete/"

// RedemptionService turns a valid invitation code plus a chosen password into
// a logged-in account, exactly once per invitation.
type RedemptionService struct {
	Store    store.Store
	Accounts *AccountService
	Profiles *ProfileService
	Forms    FormFactory
	Events   *Dispatcher

	LoginRedirectURL string

	Now func() time.Time
}

// Redemption is the outcome of a successful Redeem.
type Redemption struct {
	User        domain.User
	Session     domain.Session
	Token       string
	RedirectURL string
}

func (s *RedemptionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NewForm returns an unbound form of the configured kind.
func (s *RedemptionService) NewForm() Form {
	if s.Forms == nil {
		return &PasswordForm{}
	}
	return s.Forms()
}

// Lookup finds a redeemable invitation. It never modifies anything.
func (s *RedemptionService) Lookup(ctx context.Context, code string) (domain.Invitation, error) {
	return s.lookup(ctx, s.Store, code)
}

func (s *RedemptionService) lookup(ctx context.Context, st store.Store, code string) (domain.Invitation, error) {
	if !cryptox.IsInvitationCode(code) {
		return domain.Invitation{}, ErrInvitationNotFound
	}

	inv, err := st.Invitations().GetInvitationByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Invitation{}, ErrInvitationNotFound
	}
	if err != nil {
		return domain.Invitation{}, err
	}
	if inv.Expired(s.now()) {
		return domain.Invitation{}, ErrInvitationExpired
	}
	return inv, nil
}

// Redeem consumes the invitation identified by code. Everything happens in
// one transaction: the redeemed listeners run, the password is set, the
// invitation is deleted and a session is opened. Of two concurrent calls for
// the same code, exactly one succeeds; the other gets ErrInvitationNotFound.
func (s *RedemptionService) Redeem(ctx context.Context, code string, form Form, meta RequestMeta) (Redemption, error) {
	log := slogx.FromContext(ctx)

	if form == nil || !form.Valid() {
		return Redemption{}, ErrInvalidForm
	}

	var out Redemption
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		inv, err := s.lookup(ctx, tx, code)
		if err != nil {
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, inv.ToUserID)
		if err != nil {
			log.Error("failed to load invitation recipient",
				slog.String("invitation_id", inv.ID),
				slog.Any("error", err),
			)
			return err
		}
		// Accounts minted before this check may still hold an invitation.
		if user.HasPassword() {
			log.Warn("refused redemption for active account",
				slog.String("invitation_id", inv.ID),
				slog.String("user_id", user.ID),
			)
			return ErrRecipientActive
		}

		s.Events.Dispatch(ctx, RedeemedEvent{Invitation: inv, User: user, Form: form, Tx: tx})

		if err := s.Accounts.SetPassword(ctx, tx, user.ID, form.Password()); err != nil {
			log.Error("failed to set password", slog.String("user_id", user.ID), slog.Any("error", err))
			return err
		}

		if err := tx.Invitations().DeleteInvitation(ctx, inv.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvitationNotFound
			}
			log.Error("failed to delete invitation", slog.String("invitation_id", inv.ID), slog.Any("error", err))
			return err
		}

		authed, err := s.Accounts.Authenticate(ctx, tx, user.Username, form.Password())
		if err != nil {
			log.Error("failed to authenticate after setting password",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
			return err
		}

		sess, err := s.Accounts.CreateSession(ctx, tx, authed, meta)
		if err != nil {
			log.Error("failed to create session", slog.String("user_id", user.ID), slog.Any("error", err))
			return err
		}

		redirect, err := s.redirectURL(ctx, tx, authed.ID)
		if err != nil {
			return err
		}

		out = Redemption{User: authed, Session: sess, RedirectURL: redirect}
		log.Info("invitation redeemed",
			slog.String("invitation_id", inv.ID),
			slog.String("user_id", authed.ID),
			slog.String("session_id", sess.ID),
		)
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}

	token, err := s.Accounts.IssueToken(out.User, out.Session)
	if err != nil {
		// The account is usable; only automatic login failed.
		log.Error("failed to sign session token", slog.String("user_id", out.User.ID), slog.Any("error", err))
		return out, nil
	}
	out.Token = token
	return out, nil
}

func (s *RedemptionService) redirectURL(ctx context.Context, st store.Store, userID string) (string, error) {
	if s.Profiles != nil {
		url, ok, err := s.Profiles.ProfileURL(ctx, st, userID)
		if err != nil {
			return "", err
		}
		if ok {
			return url, nil
		}
	}
	if s.LoginRedirectURL != "" {
		return s.LoginRedirectURL, nil
	}
	return DefaultLoginRedirectURL, nil
}
