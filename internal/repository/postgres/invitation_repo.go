package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventlottery/internal/domain"
)

const invitationColumns = `id, event_id, user_id, user_display_name, status,
		sent_at, responded_at, draw_wave`

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{
		DB: db,
	}
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.EventInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM event_invitations WHERE id = $1`
	inv, err := scanInvitationRow(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepository) ListByEventAndStatus(ctx context.Context, eventID, status string) ([]*domain.EventInvitation, error) {
	if status == "" {
		query := `SELECT ` + invitationColumns + ` FROM event_invitations
			WHERE event_id = $1
			ORDER BY sent_at DESC`
		return r.list(ctx, query, eventID)
	}
	query := `SELECT ` + invitationColumns + ` FROM event_invitations
		WHERE event_id = $1 AND status = $2
		ORDER BY sent_at DESC`
	return r.list(ctx, query, eventID, status)
}

func (r *invitationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.EventInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM event_invitations
		WHERE user_id = $1
		ORDER BY sent_at DESC`
	return r.list(ctx, query, userID)
}

func (r *invitationRepository) ListPendingSentBefore(ctx context.Context, now time.Time) ([]*domain.EventInvitation, error) {
	query := `SELECT i.id, i.event_id, i.user_id, i.user_display_name, i.status,
			i.sent_at, i.responded_at, i.draw_wave
		FROM event_invitations i
		JOIN events e ON e.id = i.event_id
		WHERE i.status = $1
		  AND i.sent_at + make_interval(hours => e.acceptance_deadline_hours) < $2
		ORDER BY i.sent_at ASC`
	return r.list(ctx, query, domain.InvitationPending, now)
}

// Accept performs the compare-and-increment at the core of the lifecycle:
// the seat is confirmed only while enrolled < capacity, in the same
// transaction that flips the invitation and entry to ACCEPTED. When a
// faster entrant took the last seat the invitation expires instead and no
// counter moves. First committed acceptance wins.
func (r *invitationRepository) Accept(ctx context.Context, id string) (domain.AcceptOutcome, *domain.EventInvitation, error) {
	var (
		outcome domain.AcceptOutcome
		result  *domain.EventInvitation
	)
	err := runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		inv, err := getInvitationForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		switch inv.Status {
		case domain.InvitationAccepted:
			// Double-tap: already confirmed, nothing to do.
			outcome = domain.AcceptAlreadyConfirmed
			result = inv
			return nil
		case domain.InvitationDeclined, domain.InvitationExpired:
			return domain.ErrInvalidTransition
		}

		confirmed, err := confirmSeat(ctx, tx, inv.EventID)
		if err != nil {
			return err
		}
		now := time.Now()
		if !confirmed {
			// Capacity went to a faster entrant. The entry stays INVITED;
			// only the invitation records the lost race.
			if err := setInvitationStatus(ctx, tx, id, domain.InvitationExpired, &now); err != nil {
				return err
			}
			inv.Status = domain.InvitationExpired
			inv.RespondedAt = &now
			outcome = domain.AcceptSlotLost
			result = inv
			return nil
		}

		if err := setInvitationStatus(ctx, tx, id, domain.InvitationAccepted, &now); err != nil {
			return err
		}
		if err := setEntryStatus(ctx, tx, inv.EventID, inv.UserID, domain.StatusInvited, domain.StatusAccepted); err != nil {
			return err
		}
		inv.Status = domain.InvitationAccepted
		inv.RespondedAt = &now
		outcome = domain.AcceptConfirmed
		result = inv
		return notifyWaitlistChanged(ctx, tx, inv.EventID)
	})
	if err != nil {
		return 0, nil, err
	}
	return outcome, result, nil
}

func (r *invitationRepository) Decline(ctx context.Context, id string) (*domain.EventInvitation, error) {
	var result *domain.EventInvitation
	err := runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		inv, err := getInvitationForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		switch inv.Status {
		case domain.InvitationDeclined:
			// Double-tap decline is a no-op.
			result = inv
			return nil
		case domain.InvitationAccepted, domain.InvitationExpired:
			return domain.ErrInvalidTransition
		}

		now := time.Now()
		if err := setInvitationStatus(ctx, tx, id, domain.InvitationDeclined, &now); err != nil {
			return err
		}
		if err := setEntryStatus(ctx, tx, inv.EventID, inv.UserID, domain.StatusInvited, domain.StatusDeclined); err != nil {
			return err
		}
		// The decliner vacates their queue slot; backfill happens through
		// a later draw wave, never by reinstating this entrant.
		if err := releaseWaitlistSlot(ctx, tx, inv.EventID); err != nil {
			return err
		}
		inv.Status = domain.InvitationDeclined
		inv.RespondedAt = &now
		result = inv
		return notifyWaitlistChanged(ctx, tx, inv.EventID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *invitationRepository) Expire(ctx context.Context, id string) (*domain.EventInvitation, error) {
	var result *domain.EventInvitation
	err := runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		inv, err := getInvitationForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		switch inv.Status {
		case domain.InvitationExpired:
			result = inv
			return nil
		case domain.InvitationAccepted, domain.InvitationDeclined:
			return domain.ErrInvalidTransition
		}
		now := time.Now()
		if err := setInvitationStatus(ctx, tx, id, domain.InvitationExpired, &now); err != nil {
			return err
		}
		inv.Status = domain.InvitationExpired
		inv.RespondedAt = &now
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func getInvitationForUpdate(ctx context.Context, q dbtx, id string) (*domain.EventInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM event_invitations WHERE id = $1 FOR UPDATE`
	inv, err := scanInvitationRow(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func setInvitationStatus(ctx context.Context, q dbtx, id, status string, respondedAt *time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE event_invitations SET status = $2, responded_at = $3 WHERE id = $1
	`, id, status, respondedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func setEntryStatus(ctx context.Context, q dbtx, eventID, userID, fromStatus, toStatus string) error {
	// Derived state: the entry mirrors the invitation outcome in the same
	// transaction so the counters and statuses never diverge.
	_, err := q.ExecContext(ctx, `
		UPDATE waitlist_entries SET status = $4
		WHERE event_id = $1 AND user_id = $2 AND status = $3
	`, eventID, userID, fromStatus, toStatus)
	if err != nil {
		return fmt.Errorf("update waitlist entry status: %w", err)
	}
	return nil
}

func (r *invitationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.EventInvitation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []*domain.EventInvitation
	for rows.Next() {
		inv, err := scanInvitationRow(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if invs == nil {
		invs = []*domain.EventInvitation{}
	}
	return invs, nil
}

func scanInvitationRow(row rowScanner) (*domain.EventInvitation, error) {
	inv := &domain.EventInvitation{}
	err := row.Scan(&inv.ID, &inv.EventID, &inv.UserID, &inv.UserDisplayName,
		&inv.Status, &inv.SentAt, &inv.RespondedAt, &inv.DrawWave)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
