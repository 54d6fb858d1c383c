package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventlottery/internal/domain"
)

const eventColumns = `id, name, owner_id, event_code, contact_email, date,
		capacity, enrolled, waitlist_capacity, waitlist_count,
		sampling_count, draw_wave, acceptance_deadline_hours, is_active,
		created_at, updated_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (name, owner_id, event_code, contact_email, date,
			capacity, waitlist_capacity, sampling_count,
			acceptance_deadline_hours, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		event.Name, event.OwnerID, event.EventCode, event.ContactEmail, event.Date,
		event.Capacity, event.WaitlistCapacity, event.SamplingCount,
		event.AcceptanceDeadlineHours, event.IsActive, event.CreatedAt, event.UpdatedAt).
		Scan(&event.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *eventRepository) GetByEventCode(ctx context.Context, eventCode string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_code = $1 AND is_active`
	return scanEvent(r.DB.QueryRowContext(ctx, query, eventCode))
}

func (r *eventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = $1 ORDER BY date ASC`
	return r.list(ctx, query, ownerID)
}

func (r *eventRepository) ListActive(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE is_active ORDER BY date ASC`
	return r.list(ctx, query)
}

func (r *eventRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE events SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		ev, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domain.Event{}
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEventRow(row rowScanner) (*domain.Event, error) {
	ev := &domain.Event{}
	err := row.Scan(&ev.ID, &ev.Name, &ev.OwnerID, &ev.EventCode, &ev.ContactEmail, &ev.Date,
		&ev.Capacity, &ev.Enrolled, &ev.WaitlistCapacity, &ev.WaitlistCount,
		&ev.SamplingCount, &ev.DrawWave, &ev.AcceptanceDeadlineHours, &ev.IsActive,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func scanEvent(row *sql.Row) (*domain.Event, error) {
	ev, err := scanEventRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}
