package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/rowlog/db/migrator"
	"go.hackfix.me/rowlog/db/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps sql.DB with additional context and migration functionality.
type DB struct {
	*sql.DB
	ctx     context.Context
	timeNow func() time.Time
	path    string
}

var _ types.Querier = (*DB)(nil)

// Migrations returns the registry of the application schema migrations.
func Migrations() (*migrator.Registry, error) {
	migrationsDir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed getting migrations directory: %w", err)
	}
	migrations, err := migrator.LoadMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}

	return migrator.NewRegistry(migrations...)
}

// Open creates and configures a new SQLite database connection for the
// database identified by connString. See ParseConnString for its format.
func Open(ctx context.Context, connString, dataDir string, timeNow func() time.Time) (*DB, error) {
	path, err := ParseConnString(connString, dataDir)
	if err != nil {
		return nil, err
	}

	sqliteDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if isMemory(path) {
		// See https://github.com/mattn/go-sqlite3#faq
		sqliteDB.SetMaxIdleConns(10)
		sqliteDB.SetConnMaxLifetime(0)
	}

	if err = sqliteDB.PingContext(ctx); err != nil {
		_ = sqliteDB.Close()
		return nil, fmt.Errorf("failed connecting to SQLite database '%s': %w", path, err)
	}

	return &DB{DB: sqliteDB, ctx: ctx, path: path, timeNow: timeNow}, nil
}

// Migrate applies all pending migrations in reg.
func (d *DB) Migrate(reg *migrator.Registry, logger *slog.Logger) (migrator.Result, error) {
	dblogger := logger.With("path", d.path)
	dblogger.Debug("migrating database")

	res, err := migrator.Apply(d.NewContext(), d.DB, reg, d.timeNow, dblogger)
	if err != nil {
		return res, err
	}

	if len(res.Applied) > 0 {
		dblogger.Info("database migrated", "from_version", res.From, "to_version", res.To)
	}

	return res, nil
}

// NewContext returns a new child context of the main database context.
func (d *DB) NewContext() context.Context {
	// TODO: Return cancel func?
	ctx, _ := context.WithCancel(d.ctx) //nolint:govet // I'll handle this later...
	return ctx
}

// Path returns the resolved path of the database.
func (d *DB) Path() string {
	return d.path
}

// TimeNow returns the current system time.
func (d *DB) TimeNow() time.Time {
	return d.timeNow()
}

// Tx runs fn within a transaction. The transaction is committed if fn returns
// no error, and rolled back otherwise.
func (d *DB) Tx(ctx context.Context, fn func(q types.Querier) error) (err error) {
	sqlTx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&tx{Tx: sqlTx, db: d}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}

	return nil
}

// tx is a Querier that runs queries within a transaction.
type tx struct {
	*sql.Tx
	db *DB
}

var _ types.Querier = (*tx)(nil)

func (t *tx) NewContext() context.Context {
	return t.db.NewContext()
}

func (t *tx) TimeNow() time.Time {
	return t.db.TimeNow()
}
