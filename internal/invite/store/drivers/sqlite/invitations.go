package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
)

type invitationsRepo struct {
	db dbtx
}

const selectInvitation = `
SELECT i.id, i.code, i.date_invited, i.expiration_date, i.used,
       i.to_user_id, i.from_user_id, i.created_at, u.username
FROM invitations i
JOIN users u ON u.id = i.to_user_id`

func scanInvitation(row interface{ Scan(...any) error }) (domain.Invitation, error) {
	var (
		inv  domain.Invitation
		used int
	)
	err := row.Scan(
		&inv.ID,
		&inv.Code,
		timeDest{&inv.DateInvited},
		timeDest{&inv.ExpirationDate},
		&used,
		&inv.ToUserID,
		&inv.FromUserID,
		timeDest{&inv.CreatedAt},
		&inv.ToUsername,
	)
	inv.Used = used != 0
	return inv, err
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invitations (id, code, date_invited, expiration_date, used, to_user_id, from_user_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.Code,
		formatTime(inv.DateInvited),
		formatTime(inv.ExpirationDate),
		boolToInt(inv.Used),
		inv.ToUserID,
		inv.FromUserID,
		formatTime(inv.CreatedAt),
	)
	return mapConflict(err)
}

func (r *invitationsRepo) GetInvitationByCode(ctx context.Context, code string) (domain.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, selectInvitation+` WHERE i.code = ?`, code))
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationsRepo) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, selectInvitation+` ORDER BY i.date_invited DESC, i.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *invitationsRepo) DeleteInvitation(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id))
}

func (r *invitationsRepo) DeleteExpiredInvitations(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invitations WHERE expiration_date < ? AND used = 0`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *invitationsRepo) CountPendingInvitations(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invitations WHERE to_user_id = ? AND used = 0`, userID).Scan(&n)
	return n, err
}
