package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/rowlog/crypto"
	"go.hackfix.me/rowlog/db/migrator"
	"go.hackfix.me/rowlog/db/queries"
	"go.hackfix.me/rowlog/db/types"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

func newTestDB(t *testing.T) *DB {
	t.Helper()

	// A unique name per test, to avoid clashing of in-memory SQLite DBs.
	rndName, err := crypto.RandomData(12)
	require.NoError(t, err)

	d, err := Open(t.Context(),
		fmt.Sprintf("sqlite:file:rowlog-%x?mode=memory&cache=shared", rndName), "", timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestParseConnString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		connString string
		dataDir    string
		expPath    string
		expErr     string
	}{
		{name: "ok/relative", connString: "sqlite:main.db", dataDir: "/data", expPath: filepath.Join("/data", "main.db")},
		{name: "ok/absolute", connString: "sqlite:/tmp/main.db", dataDir: "/data", expPath: "/tmp/main.db"},
		{name: "ok/memory", connString: "sqlite::memory:", expPath: ":memory:"},
		{
			name: "ok/uri", connString: "sqlite:file:test?mode=memory&cache=shared",
			expPath: "file:test?mode=memory&cache=shared",
		},
		{
			name: "err/scheme", connString: "postgres://localhost/db",
			expErr: "invalid connection string 'postgres://localhost/db': expected the 'sqlite:' scheme",
		},
		{
			name: "err/no_filename", connString: "sqlite:",
			expErr: "invalid connection string 'sqlite:': missing database filename",
		},
		{
			name: "err/no_data_dir", connString: "sqlite:main.db",
			expErr: "cannot resolve relative database filename 'main.db' without a data directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path, err := ParseConnString(tt.connString, tt.dataDir)
			if tt.expErr != "" {
				assert.EqualError(t, err, tt.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expPath, path)
		})
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"/data/main.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		dsn("/data/main.db"))
	assert.Equal(t,
		"file:x?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		dsn("file:x?mode=memory&cache=shared"))
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	reg, err := Migrations()
	require.NoError(t, err)

	migs := reg.Migrations()
	require.Len(t, migs, 2)
	assert.Equal(t, uint(1), migs[0].Version)
	assert.Equal(t, "create_session_tables", migs[0].Description)
	assert.Equal(t, uint(2), migs[1].Version)
	assert.Equal(t, "add_session_coaching", migs[1].Description)
	for i := 1; i < len(migs); i++ {
		assert.Less(t, migs[i-1].Version, migs[i].Version)
	}
}

func TestMigrateSchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	d := newTestDB(t)
	reg, err := Migrations()
	require.NoError(t, err)

	res, err := d.Migrate(reg, logger)
	require.NoError(t, err)
	assert.Equal(t, uint(0), res.From)
	assert.Equal(t, uint(2), res.To)

	// A second run is a no-op.
	res, err = d.Migrate(reg, logger)
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, uint(2), res.To)

	version, err := migrator.CurrentVersion(ctx, d.DB)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	tables, err := queries.GetAllTables(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"session": {}, "session_rowers": {}}, tables)

	sessionCols, err := queries.TableColumns(ctx, d, "session")
	require.NoError(t, err)
	assert.Equal(t, []queries.Column{
		{Name: "id", Type: "TEXT", PK: 1},
		{Name: "boat_id", Type: "TEXT", NotNull: true},
		{Name: "start_date_time", Type: "TEXT", NotNull: true},
		{Name: "estimated_end_date_time", Type: "TEXT"},
		{Name: "route_id", Type: "TEXT"},
		{Name: "end_date_time", Type: "TEXT"},
		{Name: "incident_id", Type: "TEXT"},
		{Name: "comment", Type: "TEXT"},
		{Name: "has_been_coached", Type: "TEXT"},
	}, sessionCols)

	rowerCols, err := queries.TableColumns(ctx, d, "session_rowers")
	require.NoError(t, err)
	assert.Equal(t, []queries.Column{
		{Name: "session_id", Type: "TEXT", NotNull: true, PK: 1},
		{Name: "rower_id", Type: "TEXT", NotNull: true, PK: 2},
	}, rowerCols)

	idxs, err := queries.TableIndexes(ctx, d, "session_rowers")
	require.NoError(t, err)
	assert.Equal(t, []queries.Index{
		{Name: "idx_session_rowers_rower_id", Columns: []string{"rower_id"}},
		{Name: "idx_session_rowers_session_id", Columns: []string{"session_id"}},
	}, idxs)

	fks, err := queries.ForeignKeys(ctx, d, "session_rowers")
	require.NoError(t, err)
	assert.Equal(t, []queries.ForeignKey{
		{Table: "session", From: "session_id", To: "id", OnDelete: "CASCADE"},
	}, fks)
}

func TestTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := newTestDB(t)
	reg, err := Migrations()
	require.NoError(t, err)
	_, err = d.Migrate(reg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	insert := `INSERT INTO session (id, boat_id, start_date_time) VALUES (?, 'b1', '2024-01-01T00:00:00')`
	count := func() int {
		var n int
		require.NoError(t, d.QueryRowContext(ctx, `SELECT COUNT(*) FROM session`).Scan(&n))
		return n
	}

	err = d.Tx(ctx, func(q types.Querier) error {
		_, qerr := q.ExecContext(ctx, insert, "s1")
		require.NoError(t, qerr)
		return errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	assert.Equal(t, 0, count())

	err = d.Tx(ctx, func(q types.Querier) error {
		_, qerr := q.ExecContext(ctx, insert, "s1")
		return qerr
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count())
}
