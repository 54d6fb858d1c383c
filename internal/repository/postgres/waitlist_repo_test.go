package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventlottery/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var entryColumnNames = []string{
	"id", "event_id", "user_id", "user_name", "joined_at", "status",
	"position", "latitude", "longitude",
}

func addEntryRow(rows *sqlmock.Rows, e *domain.WaitlistEntry) *sqlmock.Rows {
	return rows.AddRow(e.ID, e.EventID, e.UserID, e.UserName, e.JoinedAt,
		e.Status, e.Position, e.Latitude, e.Longitude)
}

func sampleEntry(status string) *domain.WaitlistEntry {
	return &domain.WaitlistEntry{
		ID:       "entry-1",
		EventID:  "ev-1",
		UserID:   "user-1",
		UserName: "Ada",
		JoinedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Status:   status,
		Position: 4,
	}
}

func TestWaitlistRepository_Join(t *testing.T) {
	ctx := context.Background()

	entry := func() *domain.WaitlistEntry {
		return &domain.WaitlistEntry{
			EventID:  "ev-1",
			UserID:   "user-1",
			UserName: "Ada",
			JoinedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		e := entry()
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"waitlist_count"}).AddRow(4))
		mock.ExpectQuery(`INSERT INTO waitlist_entries`).
			WithArgs("ev-1", "user-1", "Ada", e.JoinedAt, domain.StatusWaiting, 4, nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("entry-1"))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		require.NoError(t, repo.Join(ctx, e))
		require.Equal(t, "entry-1", e.ID)
		require.Equal(t, domain.StatusWaiting, e.Status)
		require.Equal(t, 4, e.Position)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("waitlist full", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"waitlist_count"}))
		mock.ExpectQuery(`SELECT true FROM events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
		mock.ExpectRollback()

		repo := NewWaitlistRepository(db)
		err = repo.Join(ctx, entry())
		require.True(t, errors.Is(err, domain.ErrCapacityExceeded))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event missing or inactive", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"waitlist_count"}))
		mock.ExpectQuery(`SELECT true FROM events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"bool"}))
		mock.ExpectRollback()

		repo := NewWaitlistRepository(db)
		err = repo.Join(ctx, entry())
		require.True(t, errors.Is(err, domain.ErrNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure retries", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		e := entry()
		// First attempt hits a conflicting concurrent write and is rerun
		// from the read step.
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"waitlist_count"}).AddRow(1))
		mock.ExpectQuery(`INSERT INTO waitlist_entries`).
			WithArgs("ev-1", "user-1", "Ada", e.JoinedAt, domain.StatusWaiting, 1, nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("entry-1"))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		require.NoError(t, repo.Join(ctx, e))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries exhausted surface as conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		for i := 0; i < txMaxAttempts; i++ {
			mock.ExpectBegin()
			mock.ExpectQuery(`UPDATE events`).
				WithArgs("ev-1").
				WillReturnError(&pq.Error{Code: "40001"})
			mock.ExpectRollback()
		}

		repo := NewWaitlistRepository(db)
		err = repo.Join(ctx, entry())
		require.True(t, errors.Is(err, domain.ErrConflict))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWaitlistRepository_SignUpDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		e := &domain.WaitlistEntry{
			EventID:  "ev-1",
			UserID:   "user-1",
			UserName: "Ada",
			JoinedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		}
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO waitlist_entries`).
			WithArgs("ev-1", "user-1", "Ada", e.JoinedAt, domain.StatusAccepted, 0, nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("entry-1"))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		require.NoError(t, repo.SignUpDirect(ctx, e))
		require.Equal(t, domain.StatusAccepted, e.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event full", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE events`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT true FROM events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"bool"}).AddRow(true))
		mock.ExpectRollback()

		repo := NewWaitlistRepository(db)
		err = repo.SignUpDirect(ctx, &domain.WaitlistEntry{EventID: "ev-1", UserID: "user-1"})
		require.True(t, errors.Is(err, domain.ErrCapacityExceeded))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWaitlistRepository_Leave(t *testing.T) {
	ctx := context.Background()

	t.Run("waiting entry vacates its slot", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, event_id, user_id, user_name, joined_at, status`).
			WithArgs("entry-1").
			WillReturnRows(addEntryRow(sqlmock.NewRows(entryColumnNames), sampleEntry(domain.StatusWaiting)))
		mock.ExpectExec(`UPDATE waitlist_entries SET status = \$2 WHERE id = \$1`).
			WithArgs("entry-1", domain.StatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SET waitlist_count = GREATEST\(waitlist_count - 1, 0\)`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		left, err := repo.Leave(ctx, "entry-1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusCancelled, left.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invited entry keeps the count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, event_id, user_id, user_name, joined_at, status`).
			WithArgs("entry-1").
			WillReturnRows(addEntryRow(sqlmock.NewRows(entryColumnNames), sampleEntry(domain.StatusInvited)))
		mock.ExpectExec(`UPDATE waitlist_entries SET status = \$2 WHERE id = \$1`).
			WithArgs("entry-1", domain.StatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		left, err := repo.Leave(ctx, "entry-1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusCancelled, left.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("accepted entry cannot leave", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, event_id, user_id, user_name, joined_at, status`).
			WithArgs("entry-1").
			WillReturnRows(addEntryRow(sqlmock.NewRows(entryColumnNames), sampleEntry(domain.StatusAccepted)))
		mock.ExpectRollback()

		repo := NewWaitlistRepository(db)
		_, err = repo.Leave(ctx, "entry-1")
		require.True(t, errors.Is(err, domain.ErrInvalidTransition))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id, event_id, user_id, user_name, joined_at, status`).
			WithArgs("entry-missing").
			WillReturnRows(sqlmock.NewRows(entryColumnNames))
		mock.ExpectRollback()

		repo := NewWaitlistRepository(db)
		_, err = repo.Leave(ctx, "entry-missing")
		require.True(t, errors.Is(err, domain.ErrNotFound))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWaitlistRepository_GetByEventAndUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns newest entry", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`ORDER BY joined_at DESC`).
			WithArgs("ev-1", "user-1").
			WillReturnRows(addEntryRow(sqlmock.NewRows(entryColumnNames), sampleEntry(domain.StatusDeclined)))

		repo := NewWaitlistRepository(db)
		got, err := repo.GetByEventAndUser(ctx, "ev-1", "user-1")
		require.NoError(t, err)
		require.Equal(t, domain.StatusDeclined, got.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`ORDER BY joined_at DESC`).
			WithArgs("ev-1", "user-none").
			WillReturnRows(sqlmock.NewRows(entryColumnNames))

		repo := NewWaitlistRepository(db)
		got, err := repo.GetByEventAndUser(ctx, "ev-1", "user-none")
		require.True(t, errors.Is(err, domain.ErrNotFound))
		require.Nil(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWaitlistRepository_ListWaitingByEvent(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	first := sampleEntry(domain.StatusWaiting)
	second := sampleEntry(domain.StatusWaiting)
	second.ID = "entry-2"
	second.UserID = "user-2"
	rows := sqlmock.NewRows(entryColumnNames)
	addEntryRow(rows, first)
	addEntryRow(rows, second)
	mock.ExpectQuery(`ORDER BY joined_at ASC`).
		WithArgs("ev-1", domain.StatusWaiting).
		WillReturnRows(rows)

	repo := NewWaitlistRepository(db)
	got, err := repo.ListWaitingByEvent(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "entry-2", got[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepository_DeleteByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles touched events", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`DELETE FROM waitlist_entries`).
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"event_id", "status"}).
				AddRow("ev-1", domain.StatusWaiting).
				AddRow("ev-1", domain.StatusAccepted))
		mock.ExpectExec(`SET waitlist_count = \(`).
			WithArgs("ev-1", domain.StatusWaiting, domain.StatusInvited).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SET enrolled = GREATEST\(enrolled - \$2, 0\)`).
			WithArgs("ev-1", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		require.NoError(t, repo.DeleteByUser(ctx, "user-1"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to purge is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`DELETE FROM waitlist_entries`).
			WithArgs("user-gone").
			WillReturnRows(sqlmock.NewRows([]string{"event_id", "status"}))
		mock.ExpectCommit()

		repo := NewWaitlistRepository(db)
		require.NoError(t, repo.DeleteByUser(ctx, "user-gone"))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWaitlistRepository_DeleteByEvent(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM waitlist_entries WHERE event_id = \$1`).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE events SET waitlist_count = 0`).
		WithArgs("ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify`).
		WithArgs(waitlistChannel, "ev-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewWaitlistRepository(db)
	require.NoError(t, repo.DeleteByEvent(ctx, "ev-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
