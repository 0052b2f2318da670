package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/rowlog/crypto"
	"go.hackfix.me/rowlog/db"
	"go.hackfix.me/rowlog/db/types"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()

	rndName, err := crypto.RandomData(12)
	require.NoError(t, err)

	d, err := db.Open(t.Context(),
		fmt.Sprintf("sqlite:file:rowlog-%x?mode=memory&cache=shared", rndName), "", timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	reg, err := db.Migrations()
	require.NoError(t, err)
	_, err = d.Migrate(reg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return d
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newTestDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Session{ID: "s1", BoatID: "b1", StartDateTime: start}
	require.NoError(t, s.Save(ctx, d, false))
	require.NoError(t, AddRower(ctx, d, "s1", "r1"))

	var startText string
	err := d.QueryRowContext(ctx, `SELECT start_date_time FROM session WHERE id = 's1'`).Scan(&startText)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00", startText)

	rows, err := d.QueryContext(ctx, `SELECT session_id, rower_id FROM session_rowers`)
	require.NoError(t, err)
	got := [][2]string{}
	for rows.Next() {
		var r [2]string
		require.NoError(t, rows.Scan(&r[0], &r[1]))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	assert.Equal(t, [][2]string{{"s1", "r1"}}, got)

	loaded := &Session{ID: "s1"}
	require.NoError(t, loaded.Load(ctx, d))
	assert.Equal(t, &Session{
		ID: "s1", BoatID: "b1", StartDateTime: start, Rowers: []string{"r1"},
	}, loaded)
	assert.True(t, loaded.Ongoing())

	require.NoError(t, loaded.Delete(ctx, d))

	rowers, err := SessionRowers(ctx, d, "s1")
	require.NoError(t, err)
	assert.Empty(t, rowers)

	var n int
	err = d.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_rowers`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSessionSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newTestDB(t)

	start := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	s := &Session{
		BoatID:               "b1",
		StartDateTime:        start,
		EstimatedEndDateTime: sql.Null[time.Time]{V: start.Add(time.Hour), Valid: true},
		RouteID:              sql.Null[string]{V: "route-1", Valid: true},
		Comment:              sql.Null[string]{V: "calm water", Valid: true},
		HasBeenCoached:       sql.Null[bool]{V: true, Valid: true},
		Rowers:               []string{"r2", "r1"},
	}
	require.NoError(t, s.Save(ctx, d, false))
	assert.True(t, strings.HasPrefix(s.ID, SessionIDPrefix))

	loaded := &Session{ID: s.ID}
	require.NoError(t, loaded.Load(ctx, d))
	assert.Equal(t, s.BoatID, loaded.BoatID)
	assert.Equal(t, s.EstimatedEndDateTime, loaded.EstimatedEndDateTime)
	assert.Equal(t, s.RouteID, loaded.RouteID)
	assert.Equal(t, s.Comment, loaded.Comment)
	assert.Equal(t, s.HasBeenCoached, loaded.HasBeenCoached)
	assert.Equal(t, []string{"r1", "r2"}, loaded.Rowers)

	loaded.IncidentID = sql.Null[string]{V: "incident-1", Valid: true}
	require.NoError(t, loaded.Save(ctx, d, true))
	require.NoError(t, loaded.Load(ctx, d))
	assert.Equal(t, "incident-1", loaded.IncidentID.V)

	err := (&Session{ID: "missing", BoatID: "b1", StartDateTime: start}).Save(ctx, d, true)
	assert.EqualError(t, err, "session with ID 'missing' doesn't exist")

	err = (&Session{StartDateTime: start}).Save(ctx, d, false)
	assert.EqualError(t, err, "session boat ID must be set")

	err = (&Session{ID: s.ID, BoatID: "b2", StartDateTime: start}).Save(ctx, d, false)
	var derr *types.DuplicateError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, fmt.Sprintf("session with ID '%s' already exists", s.ID), err.Error())
}

func TestSessionRowerConstraints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newTestDB(t)

	s := &Session{ID: "s1", BoatID: "b1", StartDateTime: timeNow}
	require.NoError(t, s.Save(ctx, d, false))

	t.Run("err/missing_session", func(t *testing.T) {
		err := AddRower(ctx, d, "nope", "r1")
		var rerr *types.ReferenceError
		require.True(t, errors.As(err, &rerr), "expected ReferenceError, got %v", err)
		assert.Equal(t,
			"session rower with session ID 'nope' and rower ID 'r1' references a record that doesn't exist",
			err.Error())
	})

	t.Run("err/duplicate", func(t *testing.T) {
		require.NoError(t, AddRower(ctx, d, "s1", "r1"))
		err := AddRower(ctx, d, "s1", "r1")
		var derr *types.DuplicateError
		require.True(t, errors.As(err, &derr), "expected DuplicateError, got %v", err)
	})

	t.Run("ok/remove", func(t *testing.T) {
		require.NoError(t, AddRower(ctx, d, "s1", "r2"))
		count, err := RowerSessionCount(ctx, d, "r2")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		require.NoError(t, RemoveRower(ctx, d, "s1", "r2"))
		err = RemoveRower(ctx, d, "s1", "r2")
		assert.EqualError(t, err, "session rower with session ID 's1' and rower ID 'r2' doesn't exist")
	})
}

func TestSessionStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newTestDB(t)

	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	s := &Session{
		ID: "s1", BoatID: "b1", StartDateTime: start,
		Comment: sql.Null[string]{V: "windy", Valid: true},
	}
	require.NoError(t, s.Save(ctx, d, false))
	require.NoError(t, (&Session{ID: "s0", BoatID: "b1", StartDateTime: start.Add(-24 * time.Hour),
		EndDateTime: sql.Null[time.Time]{V: start.Add(-23 * time.Hour), Valid: true}}).Save(ctx, d, false))

	ongoing, err := OngoingSession(ctx, d, "b1")
	require.NoError(t, err)
	assert.Equal(t, "s1", ongoing.ID)

	err = ongoing.Stop(ctx, d, start.Add(-time.Minute), StopDetails{})
	assert.EqualError(t, err,
		"session end date-time 2024-05-01T07:59:00 is before its start date-time 2024-05-01T08:00:00")

	require.NoError(t, ongoing.Stop(ctx, d, start.Add(90*time.Minute), StopDetails{
		IncidentID: "incident-1",
		Coached:    sql.Null[bool]{V: true, Valid: true},
	}))
	assert.Equal(t, "windy", ongoing.Comment.V)
	assert.Equal(t, sql.Null[string]{V: "incident-1", Valid: true}, ongoing.IncidentID)
	assert.Equal(t, sql.Null[bool]{V: true, Valid: true}, ongoing.HasBeenCoached)

	err = ongoing.Stop(ctx, d, start.Add(2*time.Hour), StopDetails{Comment: "late"})
	assert.EqualError(t, err, "session 's1' has already ended")

	_, err = OngoingSession(ctx, d, "b1")
	assert.EqualError(t, err, "ongoing session with boat ID 'b1' doesn't exist")

	completed, err := Sessions(ctx, d, CompletedFilter())
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, "s1", completed[0].ID)
	assert.Equal(t, start.Add(90*time.Minute), completed[0].EndDateTime.V)
	assert.Equal(t, "s0", completed[1].ID)

	ongoingAll, err := Sessions(ctx, d, OngoingFilter())
	require.NoError(t, err)
	assert.Empty(t, ongoingAll)
}

func TestSessionTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newTestDB(t)

	require.NoError(t, (&Session{ID: "s1", BoatID: "b1", StartDateTime: timeNow}).Save(ctx, d, false))

	// The duplicate rower fails the insert, so the new session is rolled back.
	err := d.Tx(ctx, func(q types.Querier) error {
		s := &Session{ID: "s2", BoatID: "b2", StartDateTime: timeNow, Rowers: []string{"r1", "r1"}}
		return s.Save(ctx, q, false)
	})
	var derr *types.DuplicateError
	require.True(t, errors.As(err, &derr))

	sessions, err := Sessions(ctx, d, nil)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
}
