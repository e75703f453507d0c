package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

// ProfileService gives each redeemed account a public profile page, which is
// where a user lands after redemption.
type ProfileService struct {
	Store store.Store
}

// ProvisionOnRedeem is a Listener. It creates the profile through the
// redemption transaction and is a no-op when one already exists.
func (s *ProfileService) ProvisionOnRedeem(ctx context.Context, ev RedeemedEvent) error {
	st := store.Store(ev.Tx)
	if st == nil {
		st = s.Store
	}

	_, err := st.Profiles().GetProfileByUserID(ctx, ev.User.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	p := domain.Profile{UserID: ev.User.ID, Slug: Slugify(ev.User.Username), CreatedAt: time.Now()}
	err = st.Profiles().CreateProfile(ctx, p)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Another username slugified to the same value.
		suffix := ev.User.ID
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		p.Slug = p.Slug + "-" + strings.ToLower(suffix)
		err = st.Profiles().CreateProfile(ctx, p)
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("profile provisioned",
		slog.String("user_id", p.UserID),
		slog.String("slug", p.Slug),
	)
	return nil
}

// ProfileURL returns the profile URL for a user if they have one.
func (s *ProfileService) ProfileURL(ctx context.Context, st store.Store, userID string) (string, bool, error) {
	p, err := st.Profiles().GetProfileByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return p.URL(), true, nil
}

// GetProfileBySlug returns a profile and its owner.
func (s *ProfileService) GetProfileBySlug(ctx context.Context, slug string) (domain.Profile, domain.User, error) {
	p, err := s.Store.Profiles().GetProfileBySlug(ctx, slug)
	if err != nil {
		return domain.Profile{}, domain.User{}, err
	}
	u, err := s.Store.Users().GetUserByID(ctx, p.UserID)
	if err != nil {
		return domain.Profile{}, domain.User{}, err
	}
	return p, u, nil
}

// Slugify lowercases s and collapses anything outside [a-z0-9] into single
// hyphens.
func Slugify(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		case !hyphen && b.Len() > 0:
			b.WriteByte('-')
			hyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "user"
	}
	return out
}
