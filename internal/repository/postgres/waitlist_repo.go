package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventlottery/internal/domain"
)

const entryColumns = `id, event_id, user_id, user_name, joined_at, status,
		position, latitude, longitude`

type waitlistRepository struct {
	DB *sql.DB
}

func NewWaitlistRepository(db *sql.DB) domain.WaitlistRepository {
	return &waitlistRepository{
		DB: db,
	}
}

// Join reserves a queue slot against the live counter and creates the
// WAITING entry in the same transaction. A concurrent join that fills the
// last slot causes the conditional counter update, not a stale read, to
// reject this one.
func (r *waitlistRepository) Join(ctx context.Context, entry *domain.WaitlistEntry) error {
	return runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		position, err := reserveWaitlistSlot(ctx, tx, entry.EventID)
		if err != nil {
			return err
		}
		entry.Status = domain.StatusWaiting
		entry.Position = position
		if err := insertEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("insert waitlist entry: %w", err)
		}
		return notifyWaitlistChanged(ctx, tx, entry.EventID)
	})
}

// SignUpDirect bypasses the queue: the entry is created ACCEPTED and
// enrolled is incremented, both conditional on remaining capacity.
func (r *waitlistRepository) SignUpDirect(ctx context.Context, entry *domain.WaitlistEntry) error {
	return runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := reserveSeat(ctx, tx, entry.EventID); err != nil {
			return err
		}
		entry.Status = domain.StatusAccepted
		if err := insertEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("insert waitlist entry: %w", err)
		}
		return notifyWaitlistChanged(ctx, tx, entry.EventID)
	})
}

func (r *waitlistRepository) Leave(ctx context.Context, entryID string) (*domain.WaitlistEntry, error) {
	var left *domain.WaitlistEntry
	err := runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		entry, err := getEntryForUpdate(ctx, tx, entryID)
		if err != nil {
			return err
		}
		switch entry.Status {
		case domain.StatusWaiting, domain.StatusInvited:
		default:
			return domain.ErrInvalidTransition
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE waitlist_entries SET status = $2 WHERE id = $1
		`, entryID, domain.StatusCancelled); err != nil {
			return err
		}
		// An INVITED leaver never held a queue slot count; the invitation
		// record is tracked separately.
		if entry.Status == domain.StatusWaiting {
			if err := releaseWaitlistSlot(ctx, tx, entry.EventID); err != nil {
				return err
			}
		}
		entry.Status = domain.StatusCancelled
		left = entry
		return notifyWaitlistChanged(ctx, tx, entry.EventID)
	})
	if err != nil {
		return nil, err
	}
	return left, nil
}

func (r *waitlistRepository) GetByID(ctx context.Context, entryID string) (*domain.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries WHERE id = $1`
	entry, err := scanEntryRow(r.DB.QueryRowContext(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *waitlistRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.WaitlistEntry, error) {
	// Terminal entries (declined, cancelled) do not block a fresh join, so
	// only the newest entry matters.
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries
		WHERE event_id = $1 AND user_id = $2
		ORDER BY joined_at DESC
		LIMIT 1`
	entry, err := scanEntryRow(r.DB.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *waitlistRepository) ListWaitingByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries
		WHERE event_id = $1 AND status = $2
		ORDER BY joined_at ASC`
	return r.list(ctx, query, eventID, domain.StatusWaiting)
}

func (r *waitlistRepository) ListChosenByEvent(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries
		WHERE event_id = $1 AND status IN ($2, $3)
		ORDER BY joined_at ASC`
	return r.list(ctx, query, eventID, domain.StatusInvited, domain.StatusAccepted)
}

func (r *waitlistRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries
		WHERE event_id = $1
		ORDER BY joined_at ASC`
	return r.list(ctx, query, eventID)
}

func (r *waitlistRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries
		WHERE user_id = $1
		ORDER BY joined_at DESC`
	return r.list(ctx, query, userID)
}

func (r *waitlistRepository) UpdateUserName(ctx context.Context, userID, newName string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE waitlist_entries SET user_name = $2 WHERE user_id = $1
	`, userID, newName)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteByUser hard-deletes the user's entries and reconciles counters on
// every touched event: waitlist_count is recomputed from the surviving
// WAITING/INVITED entries and enrolled drops by the removed ACCEPTED
// entries, floored at zero. Purging an already-purged user is a no-op.
func (r *waitlistRepository) DeleteByUser(ctx context.Context, userID string) error {
	return runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			DELETE FROM waitlist_entries
			WHERE user_id = $1
			RETURNING event_id, status
		`, userID)
		if err != nil {
			return err
		}
		removedAccepted := map[string]int{}
		touched := map[string]struct{}{}
		for rows.Next() {
			var eventID, status string
			if err := rows.Scan(&eventID, &status); err != nil {
				rows.Close()
				return err
			}
			touched[eventID] = struct{}{}
			if status == domain.StatusAccepted {
				removedAccepted[eventID]++
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for eventID := range touched {
			if err := reconcileWaitlistCount(ctx, tx, eventID); err != nil {
				return err
			}
			if n := removedAccepted[eventID]; n > 0 {
				if _, err := tx.ExecContext(ctx, `
					UPDATE events
					SET enrolled = GREATEST(enrolled - $2, 0), updated_at = NOW()
					WHERE id = $1
				`, eventID, n); err != nil {
					return err
				}
			}
			if err := notifyWaitlistChanged(ctx, tx, eventID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *waitlistRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	return runInTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM waitlist_entries WHERE event_id = $1
		`, eventID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE events SET waitlist_count = 0, updated_at = NOW() WHERE id = $1
		`, eventID); err != nil {
			return err
		}
		return notifyWaitlistChanged(ctx, tx, eventID)
	})
}

func reconcileWaitlistCount(ctx context.Context, q dbtx, eventID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE events e
		SET waitlist_count = (
			SELECT COUNT(*) FROM waitlist_entries w
			WHERE w.event_id = e.id AND w.status IN ($2, $3)
		), updated_at = NOW()
		WHERE e.id = $1
	`, eventID, domain.StatusWaiting, domain.StatusInvited)
	return err
}

func insertEntry(ctx context.Context, q dbtx, entry *domain.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (event_id, user_id, user_name, joined_at,
			status, position, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return q.QueryRowContext(ctx, query,
		entry.EventID, entry.UserID, entry.UserName, entry.JoinedAt,
		entry.Status, entry.Position, entry.Latitude, entry.Longitude).
		Scan(&entry.ID)
}

func getEntryForUpdate(ctx context.Context, q dbtx, entryID string) (*domain.WaitlistEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waitlist_entries WHERE id = $1 FOR UPDATE`
	entry, err := scanEntryRow(q.QueryRowContext(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *waitlistRepository) list(ctx context.Context, query string, args ...any) ([]*domain.WaitlistEntry, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.WaitlistEntry{}
	}
	return entries, nil
}

func scanEntryRow(row rowScanner) (*domain.WaitlistEntry, error) {
	entry := &domain.WaitlistEntry{}
	err := row.Scan(&entry.ID, &entry.EventID, &entry.UserID, &entry.UserName,
		&entry.JoinedAt, &entry.Status, &entry.Position,
		&entry.Latitude, &entry.Longitude)
	if err != nil {
		return nil, err
	}
	return entry, nil
}
