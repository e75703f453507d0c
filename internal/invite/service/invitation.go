package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/idx"
	"github.com/aussiebroadwan/invite/pkg/mailx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrSelfInvitation     = errors.New("users cannot invite themselves")
	// ErrRecipientActive means the recipient already has a password.
	// Invitations only grant account creation, never a password reset.
	ErrRecipientActive = errors.New("recipient account is already active")
)

// InvitationService mints, notifies about and sweeps invitations.
type InvitationService struct {
	Store     store.Store
	Accounts  *AccountService
	Mailer    mailx.Sender
	Templates *templates.Renderer
	Site      templates.Site

	// DefaultDays is the validity window for CreateInvitation calls that
	// do not choose one.
	DefaultDays      int
	DefaultFromEmail string

	Now func() time.Time
}

func (s *InvitationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *InvitationService) windowDays(days int) int {
	if days > 0 {
		return days
	}
	if s.DefaultDays > 0 {
		return s.DefaultDays
	}
	return domain.DefaultInvitationDays
}

// CreateInvitation mints an unused invitation from fromUser to toUser, valid
// for windowDays (the configured default when windowDays <= 0). A reference
// to a user that does not exist fails with the store's integrity error.
func (s *InvitationService) CreateInvitation(ctx context.Context, toUser, fromUser domain.User, windowDays int) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	now := s.now().UTC()
	code, err := cryptox.NewInvitationCode(now, toUser.Username)
	if err != nil {
		log.Error("failed to generate invitation code", slog.Any("error", err))
		return domain.Invitation{}, err
	}

	inv := domain.Invitation{
		ID:             idx.NewAt(now).String(),
		Code:           code,
		DateInvited:    now,
		ExpirationDate: now.AddDate(0, 0, s.windowDays(windowDays)),
		ToUserID:       toUser.ID,
		FromUserID:     fromUser.ID,
		CreatedAt:      now,
		ToUsername:     toUser.Username,
	}

	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to create invitation",
			slog.String("to_user_id", toUser.ID),
			slog.String("from_user_id", fromUser.ID),
			slog.Any("error", err),
		)
		return domain.Invitation{}, err
	}

	log.Info("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("to_user_id", inv.ToUserID),
		slog.String("from_user_id", inv.FromUserID),
		slog.Time("expiration_date", inv.ExpirationDate),
	)
	return inv, nil
}

// Invite is the minting flow used by the API: it ensures the recipient
// account exists, creates the invitation and emails it. A failed email is
// logged and does not undo the invitation.
func (s *InvitationService) Invite(ctx context.Context, fromUserID, username, email string, windowDays int) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	from, err := s.Accounts.GetUserByID(ctx, fromUserID)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("load inviting user: %w", err)
	}
	if strings.EqualFold(from.Username, username) {
		return domain.Invitation{}, ErrSelfInvitation
	}

	to, err := s.Accounts.EnsureUser(ctx, username, email)
	if err != nil {
		return domain.Invitation{}, err
	}
	if to.HasPassword() {
		log.Warn("refused invitation for active account",
			slog.String("from_user_id", from.ID),
			slog.String("to_user_id", to.ID),
		)
		return domain.Invitation{}, ErrRecipientActive
	}

	inv, err := s.CreateInvitation(ctx, to, from, windowDays)
	if err != nil {
		return domain.Invitation{}, err
	}

	if err := s.SendNotification(ctx, inv, ""); err != nil {
		log.Error("failed to send invitation email",
			slog.String("invitation_id", inv.ID),
			slog.Any("error", err),
		)
	}
	return inv, nil
}

// InvitationEmail is the data handed to the invitation mail templates.
type InvitationEmail struct {
	Invitation     domain.Invitation
	Site           templates.Site
	ExpirationDays int
	FromUser       domain.User
	ToUser         domain.User
}

// SendNotification emails the recipient their invitation link. An empty
// fromEmail uses the configured default sender.
func (s *InvitationService) SendNotification(ctx context.Context, inv domain.Invitation, fromEmail string) error {
	to, err := s.Store.Users().GetUserByID(ctx, inv.ToUserID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	from, err := s.Store.Users().GetUserByID(ctx, inv.FromUserID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}

	data := InvitationEmail{
		Invitation:     inv,
		Site:           s.Site,
		ExpirationDays: windowInDays(inv),
		FromUser:       from,
		ToUser:         to,
	}

	subject, err := s.Templates.Text("invitation_email_subject.txt", data)
	if err != nil {
		return err
	}
	body, err := s.Templates.Text("invitation_email.txt", data)
	if err != nil {
		return err
	}

	if fromEmail == "" {
		fromEmail = s.DefaultFromEmail
	}

	msg := mailx.Message{
		Subject: singleLine(subject),
		Body:    body,
		From:    fromEmail,
		To:      []string{to.Email},
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("invitation email sent",
		slog.String("invitation_id", inv.ID),
		slog.String("to_user_id", to.ID),
	)
	return nil
}

// windowInDays rounds, so a window spanning a DST change still reads as
// whole days.
func windowInDays(inv domain.Invitation) int {
	return int(math.Round(inv.ExpirationDate.Sub(inv.DateInvited).Hours() / 24))
}

// singleLine joins the lines of s, since headers must not contain newlines.
func singleLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), "")
}

// GetInvitationByCode returns the invitation for code whether or not it has
// expired.
func (s *InvitationService) GetInvitationByCode(ctx context.Context, code string) (domain.Invitation, error) {
	inv, err := s.Store.Invitations().GetInvitationByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Invitation{}, ErrInvitationNotFound
	}
	return inv, err
}

func (s *InvitationService) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	return s.Store.Invitations().ListInvitations(ctx)
}

// HasPendingInvitation reports whether any unused invitation addresses the
// user, expired or not.
func (s *InvitationService) HasPendingInvitation(ctx context.Context, userID string) (bool, error) {
	n, err := s.Store.Invitations().CountPendingInvitations(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpiredInvitations removes every unused invitation past its
// expiration date. Running it twice deletes nothing the second time.
func (s *InvitationService) DeleteExpiredInvitations(ctx context.Context) (int64, error) {
	return s.Store.Invitations().DeleteExpiredInvitations(ctx, s.now())
}
