package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
)

type profilesRepo struct {
	db dbtx
}

func scanProfile(row interface{ Scan(...any) error }) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.UserID, &p.Slug, timeDest{&p.CreatedAt})
	return p, err
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, slug, created_at) VALUES (?, ?, ?)`,
		p.UserID, p.Slug, formatTime(p.CreatedAt),
	)
	return mapConflict(err)
}

func (r *profilesRepo) GetProfileByUserID(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT user_id, slug, created_at FROM profiles WHERE user_id = ?`, userID))
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}

func (r *profilesRepo) GetProfileBySlug(ctx context.Context, slug string) (domain.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT user_id, slug, created_at FROM profiles WHERE slug = ?`, slug))
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	return p, nil
}
