package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventlottery/internal/domain"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories run their
// statements against.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const txMaxAttempts = 3

// retryable reports whether the backend detected a conflicting concurrent
// write (serialization failure or deadlock) so the whole transaction can be
// rerun from the read step.
func retryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return true
		}
	}
	return false
}

// runInTx runs fn inside a transaction. On a conflicting concurrent write
// the whole function is retried from scratch rather than patched; after
// txMaxAttempts the conflict surfaces as domain.ErrConflict.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if retryable(err) {
				lastErr = err
				continue
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			if retryable(err) {
				lastErr = err
				continue
			}
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, lastErr)
}

// notifyWaitlistChanged queues a LISTEN/NOTIFY wakeup for watchers of the
// event's waitlist. Fires on commit.
func notifyWaitlistChanged(ctx context.Context, q dbtx, eventID string) error {
	_, err := q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, waitlistChannel, eventID)
	return err
}
