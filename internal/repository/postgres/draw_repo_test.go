package postgres

import (
	"context"
	"errors"
	"testing"

	"eventlottery/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// firstN is the deterministic selector used in tests.
func firstN(waiting []*domain.WaitlistEntry, n int) []*domain.WaitlistEntry {
	return waiting[:n]
}

func TestDrawRepository_RunDraw(t *testing.T) {
	ctx := context.Background()

	t.Run("invites selected entrants and bumps the wave", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		first := sampleEntry(domain.StatusWaiting)
		second := sampleEntry(domain.StatusWaiting)
		second.ID = "entry-2"
		second.UserID = "user-2"
		second.UserName = "Grace"
		third := sampleEntry(domain.StatusWaiting)
		third.ID = "entry-3"
		third.UserID = "user-3"

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, enrolled, draw_wave`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "enrolled", "draw_wave"}).
				AddRow(100, 10, 3))
		waiting := sqlmock.NewRows(entryColumnNames)
		addEntryRow(waiting, first)
		addEntryRow(waiting, second)
		addEntryRow(waiting, third)
		mock.ExpectQuery(`FROM waitlist_entries`).
			WithArgs("ev-1", domain.StatusWaiting).
			WillReturnRows(waiting)

		mock.ExpectExec(`UPDATE waitlist_entries SET status = \$2`).
			WithArgs("entry-1", domain.StatusInvited).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO event_invitations`).
			WithArgs("ev-1", "user-1", "Ada", domain.InvitationPending, sqlmock.AnyArg(), 3).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inv-1"))
		mock.ExpectExec(`UPDATE waitlist_entries SET status = \$2`).
			WithArgs("entry-2", domain.StatusInvited).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO event_invitations`).
			WithArgs("ev-1", "user-2", "Grace", domain.InvitationPending, sqlmock.AnyArg(), 3).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inv-2"))

		mock.ExpectExec(`UPDATE events SET draw_wave = draw_wave \+ 1`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewDrawRepository(db)
		result, err := repo.RunDraw(ctx, "ev-1", 2, firstN)
		require.NoError(t, err)
		require.False(t, result.NoOp)
		require.Equal(t, 3, result.Wave)
		require.Len(t, result.Invitations, 2)
		require.Equal(t, "inv-1", result.Invitations[0].ID)
		require.Equal(t, 3, result.Invitations[0].DrawWave)
		require.Equal(t, []string{"user-3"}, result.RemainingUserIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("capped by remaining capacity", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		first := sampleEntry(domain.StatusWaiting)
		second := sampleEntry(domain.StatusWaiting)
		second.ID = "entry-2"
		second.UserID = "user-2"

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, enrolled, draw_wave`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "enrolled", "draw_wave"}).
				AddRow(10, 9, 0))
		waiting := sqlmock.NewRows(entryColumnNames)
		addEntryRow(waiting, first)
		addEntryRow(waiting, second)
		mock.ExpectQuery(`FROM waitlist_entries`).
			WithArgs("ev-1", domain.StatusWaiting).
			WillReturnRows(waiting)

		// Only one seat left, so only one entrant is drawn.
		mock.ExpectExec(`UPDATE waitlist_entries SET status = \$2`).
			WithArgs("entry-1", domain.StatusInvited).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO event_invitations`).
			WithArgs("ev-1", "user-1", "Ada", domain.InvitationPending, sqlmock.AnyArg(), 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inv-1"))
		mock.ExpectExec(`UPDATE events SET draw_wave = draw_wave \+ 1`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewDrawRepository(db)
		result, err := repo.RunDraw(ctx, "ev-1", 5, firstN)
		require.NoError(t, err)
		require.Len(t, result.Invitations, 1)
		require.Equal(t, []string{"user-2"}, result.RemainingUserIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full event is a no-op without a wave bump", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, enrolled, draw_wave`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "enrolled", "draw_wave"}).
				AddRow(10, 10, 4))
		waiting := sqlmock.NewRows(entryColumnNames)
		addEntryRow(waiting, sampleEntry(domain.StatusWaiting))
		mock.ExpectQuery(`FROM waitlist_entries`).
			WithArgs("ev-1", domain.StatusWaiting).
			WillReturnRows(waiting)
		mock.ExpectCommit()

		repo := NewDrawRepository(db)
		result, err := repo.RunDraw(ctx, "ev-1", 5, firstN)
		require.NoError(t, err)
		require.True(t, result.NoOp)
		require.Equal(t, 4, result.Wave)
		require.Empty(t, result.Invitations)
		require.Empty(t, result.RemainingUserIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty waitlist is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, enrolled, draw_wave`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "enrolled", "draw_wave"}).
				AddRow(10, 2, 1))
		mock.ExpectQuery(`FROM waitlist_entries`).
			WithArgs("ev-1", domain.StatusWaiting).
			WillReturnRows(sqlmock.NewRows(entryColumnNames))
		mock.ExpectCommit()

		repo := NewDrawRepository(db)
		result, err := repo.RunDraw(ctx, "ev-1", 5, firstN)
		require.NoError(t, err)
		require.True(t, result.NoOp)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event missing or inactive", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, enrolled, draw_wave`).
			WithArgs("ev-missing").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "enrolled", "draw_wave"}))
		mock.ExpectRollback()

		repo := NewDrawRepository(db)
		result, err := repo.RunDraw(ctx, "ev-missing", 5, firstN)
		require.True(t, errors.Is(err, domain.ErrNotFound))
		require.Nil(t, result)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over-returning selector is truncated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		first := sampleEntry(domain.StatusWaiting)
		second := sampleEntry(domain.StatusWaiting)
		second.ID = "entry-2"
		second.UserID = "user-2"

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT capacity, enrolled, draw_wave`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"capacity", "enrolled", "draw_wave"}).
				AddRow(100, 0, 0))
		waiting := sqlmock.NewRows(entryColumnNames)
		addEntryRow(waiting, first)
		addEntryRow(waiting, second)
		mock.ExpectQuery(`FROM waitlist_entries`).
			WithArgs("ev-1", domain.StatusWaiting).
			WillReturnRows(waiting)

		mock.ExpectExec(`UPDATE waitlist_entries SET status = \$2`).
			WithArgs("entry-1", domain.StatusInvited).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO event_invitations`).
			WithArgs("ev-1", "user-1", "Ada", domain.InvitationPending, sqlmock.AnyArg(), 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inv-1"))
		mock.ExpectExec(`UPDATE events SET draw_wave = draw_wave \+ 1`).
			WithArgs("ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`SELECT pg_notify`).
			WithArgs(waitlistChannel, "ev-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		greedy := func(waiting []*domain.WaitlistEntry, n int) []*domain.WaitlistEntry {
			return waiting
		}
		repo := NewDrawRepository(db)
		result, err := repo.RunDraw(ctx, "ev-1", 1, greedy)
		require.NoError(t, err)
		require.Len(t, result.Invitations, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
