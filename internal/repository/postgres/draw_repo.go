package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventlottery/internal/domain"
)

type drawRepository struct {
	DB *sql.DB
}

func NewDrawRepository(db *sql.DB) domain.DrawRepository {
	return &drawRepository{
		DB: db,
	}
}

// RunDraw executes one lottery wave atomically. The event row is locked
// for the duration of the draw, so the counters the selection is based on
// cannot be changed by a concurrent join or acceptance; if the backend
// still reports a conflict at commit the whole draw reruns from the read
// step (runInTx), never selecting from stale data.
func (r *drawRepository) RunDraw(ctx context.Context, eventID string, numberOfWinners int, selector domain.WinnerSelector) (*domain.DrawResult, error) {
	var result *domain.DrawResult
	err := runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		var capacity, enrolled, wave int
		err := tx.QueryRowContext(ctx, `
			SELECT capacity, enrolled, draw_wave
			FROM events
			WHERE id = $1 AND is_active
			FOR UPDATE
		`, eventID).Scan(&capacity, &enrolled, &wave)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		waiting, err := listWaitingForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}

		n := numberOfWinners
		if len(waiting) < n {
			n = len(waiting)
		}
		if remaining := capacity - enrolled; remaining < n {
			n = remaining
		}
		if n <= 0 {
			// Full or empty event: the draw is a no-op, not an error.
			result = &domain.DrawResult{
				EventID:          eventID,
				Wave:             wave,
				Invitations:      []*domain.EventInvitation{},
				RemainingUserIDs: []string{},
				NoOp:             true,
			}
			return nil
		}

		selected := selector(waiting, n)
		if len(selected) > n {
			selected = selected[:n]
		}

		now := time.Now()
		chosen := make(map[string]struct{}, len(selected))
		invitations := make([]*domain.EventInvitation, 0, len(selected))
		for _, entry := range selected {
			chosen[entry.ID] = struct{}{}
			if _, err := tx.ExecContext(ctx, `
				UPDATE waitlist_entries SET status = $2 WHERE id = $1
			`, entry.ID, domain.StatusInvited); err != nil {
				return fmt.Errorf("mark entry invited: %w", err)
			}
			inv := &domain.EventInvitation{
				EventID:         eventID,
				UserID:          entry.UserID,
				UserDisplayName: entry.UserName,
				Status:          domain.InvitationPending,
				SentAt:          now,
				DrawWave:        wave,
			}
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO event_invitations (event_id, user_id, user_display_name,
					status, sent_at, draw_wave)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id
			`, inv.EventID, inv.UserID, inv.UserDisplayName,
				inv.Status, inv.SentAt, inv.DrawWave).Scan(&inv.ID); err != nil {
				return fmt.Errorf("create invitation: %w", err)
			}
			invitations = append(invitations, inv)
		}

		remainingIDs := make([]string, 0, len(waiting)-len(selected))
		for _, entry := range waiting {
			if _, ok := chosen[entry.ID]; !ok {
				remainingIDs = append(remainingIDs, entry.UserID)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE events SET draw_wave = draw_wave + 1, updated_at = NOW() WHERE id = $1
		`, eventID); err != nil {
			return fmt.Errorf("increment draw wave: %w", err)
		}

		result = &domain.DrawResult{
			EventID:          eventID,
			Wave:             wave,
			Invitations:      invitations,
			RemainingUserIDs: remainingIDs,
		}
		return notifyWaitlistChanged(ctx, tx, eventID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func listWaitingForUpdate(ctx context.Context, q dbtx, eventID string) ([]*domain.WaitlistEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries
		WHERE event_id = $1 AND status = $2
		ORDER BY joined_at ASC
		FOR UPDATE`, eventID, domain.StatusWaiting)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.WaitlistEntry
	for rows.Next() {
		entry, err := scanEntryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
