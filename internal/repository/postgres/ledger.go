package postgres

import (
	"context"
	"database/sql"

	"eventlottery/internal/domain"
)

// capacityLedger implements domain.CapacityLedger. Every statement is a
// single atomic UPDATE against the event row; the conditional reserve and
// confirm helpers below are the only places the counters are checked
// against their caps, and the other repositories call them from inside
// their transactions.
type capacityLedger struct {
	DB *sql.DB
}

func NewCapacityLedger(db *sql.DB) domain.CapacityLedger {
	return &capacityLedger{
		DB: db,
	}
}

func (l *capacityLedger) IncrementEnrolled(ctx context.Context, eventID string) error {
	return execOnEvent(ctx, l.DB, eventID, `
		UPDATE events
		SET enrolled = enrolled + 1, updated_at = NOW()
		WHERE id = $1
	`)
}

func (l *capacityLedger) DecrementEnrolled(ctx context.Context, eventID string) error {
	// GREATEST floors at zero: a decrement below zero is a silent no-op.
	return execOnEvent(ctx, l.DB, eventID, `
		UPDATE events
		SET enrolled = GREATEST(enrolled - 1, 0), updated_at = NOW()
		WHERE id = $1
	`)
}

func (l *capacityLedger) SetWaitlistCount(ctx context.Context, eventID string, count int) error {
	res, err := l.DB.ExecContext(ctx, `
		UPDATE events
		SET waitlist_count = $2, updated_at = NOW()
		WHERE id = $1
	`, eventID, count)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (l *capacityLedger) ResetAttendance(ctx context.Context, eventID string) error {
	return execOnEvent(ctx, l.DB, eventID, `
		UPDATE events
		SET enrolled = 0, waitlist_count = 0, updated_at = NOW()
		WHERE id = $1
	`)
}

func execOnEvent(ctx context.Context, q dbtx, eventID, query string) error {
	res, err := q.ExecContext(ctx, query, eventID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// reserveWaitlistSlot increments waitlist_count iff the waitlist is not
// full. Returns ErrCapacityExceeded when full, ErrNotFound when the event
// is missing or inactive.
func reserveWaitlistSlot(ctx context.Context, q dbtx, eventID string) (position int, err error) {
	err = q.QueryRowContext(ctx, `
		UPDATE events
		SET waitlist_count = waitlist_count + 1, updated_at = NOW()
		WHERE id = $1 AND is_active AND waitlist_count < waitlist_capacity
		RETURNING waitlist_count
	`, eventID).Scan(&position)
	if err == sql.ErrNoRows {
		return 0, classifyFullOrMissing(ctx, q, eventID)
	}
	return position, err
}

// reserveSeat increments enrolled iff the event is not full. Used by the
// direct sign-up path that bypasses the queue.
func reserveSeat(ctx context.Context, q dbtx, eventID string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE events
		SET enrolled = enrolled + 1, updated_at = NOW()
		WHERE id = $1 AND is_active AND enrolled < capacity
	`, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return classifyFullOrMissing(ctx, q, eventID)
	}
	return nil
}

// confirmSeat is the compare-and-increment at the heart of acceptance:
// enrolled+1 and waitlist_count-1 only while enrolled < capacity. Returns
// false when capacity was already consumed by a faster entrant.
func confirmSeat(ctx context.Context, q dbtx, eventID string) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE events
		SET enrolled = enrolled + 1,
		    waitlist_count = GREATEST(waitlist_count - 1, 0),
		    updated_at = NOW()
		WHERE id = $1 AND enrolled < capacity
	`, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// releaseWaitlistSlot vacates one queued slot, flooring at zero.
func releaseWaitlistSlot(ctx context.Context, q dbtx, eventID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE events
		SET waitlist_count = GREATEST(waitlist_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, eventID)
	return err
}

// classifyFullOrMissing turns a failed conditional counter update into the
// right sentinel: the event either does not exist (or is inactive) or its
// constraint is the binding one.
func classifyFullOrMissing(ctx context.Context, q dbtx, eventID string) error {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT true FROM events WHERE id = $1 AND is_active
	`, eventID).Scan(&exists)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrCapacityExceeded
}
