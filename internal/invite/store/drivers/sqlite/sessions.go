package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, user_agent, ip_address, expires_at, revoked, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.UserID,
		s.UserAgent,
		s.IPAddress,
		formatTime(s.ExpiresAt),
		boolToInt(s.Revoked),
		formatTime(s.CreatedAt),
	)
	return mapConflict(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	var (
		s       domain.Session
		revoked int
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, user_agent, ip_address, expires_at, revoked, created_at
FROM sessions WHERE id = ?`, id).Scan(
		&s.ID,
		&s.UserID,
		&s.UserAgent,
		&s.IPAddress,
		timeDest{&s.ExpiresAt},
		&revoked,
		timeDest{&s.CreatedAt},
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.Revoked = revoked != 0
	return s, nil
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `UPDATE sessions SET revoked = 1 WHERE id = ?`, id))
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ? OR revoked = 1`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
