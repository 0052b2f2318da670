package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// HistoryTable is the name of the table migration history is stored in.
const HistoryTable = "_migrations"

// Executor is the database handle migrations are applied with.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Record is a migration history entry.
type Record struct {
	Version     uint
	Description string
	Checksum    string
	AppliedAt   time.Time
}

// Result summarizes an Apply run.
type Result struct {
	From    uint
	To      uint
	Applied []*Migration
}

// Apply brings the database schema to the latest version in reg. Each pending
// migration is applied in ascending version order in its own transaction,
// together with its history entry. Migrations recorded in the history are
// never applied again, and must match the registry.
func Apply(
	ctx context.Context, d Executor, reg *Registry, timeNow func() time.Time,
	logger *slog.Logger,
) (res Result, err error) {
	logger = logger.With("component", "migrator")

	if err = ensureHistoryTable(ctx, d); err != nil {
		return res, err
	}

	history, err := History(ctx, d)
	if err != nil {
		return res, err
	}
	if err = verify(reg, history); err != nil {
		return res, err
	}
	if len(history) > 0 {
		res.From = history[len(history)-1].Version
	}
	res.To = res.From

	pending := reg.After(res.From)
	if len(pending) == 0 {
		logger.Debug("database schema is up to date", "version", res.From)
		return res, nil
	}

	for _, m := range pending {
		mlogger := logger.With("version", m.Version, "description", m.Description)
		mlogger.Debug("applying migration")

		if err = applyOne(ctx, d, m, timeNow().UTC()); err != nil {
			return res, &MigrationError{Version: m.Version, Description: m.Description, Err: err}
		}

		res.To = m.Version
		res.Applied = append(res.Applied, m)
		mlogger.Info("applied migration")
	}

	return res, nil
}

// History returns the applied migrations recorded in the database, in
// ascending version order. It returns an empty slice if the history table
// doesn't exist yet.
func History(ctx context.Context, d Executor) (records []*Record, rerr error) {
	rows, err := d.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, HistoryTable)
	if err != nil {
		return nil, fmt.Errorf("failed checking migration history table: %w", err)
	}
	exists := rows.Next()
	if err = rows.Close(); err != nil {
		return nil, fmt.Errorf("failed closing rows: %w", err)
	}
	if !exists {
		return []*Record{}, nil
	}

	rows, err = d.QueryContext(ctx, fmt.Sprintf(
		`SELECT version, description, checksum, applied_at FROM %s ORDER BY version ASC`,
		HistoryTable))
	if err != nil {
		return nil, fmt.Errorf("failed loading migration history: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing migration history rows: %w", err)
		}
	}()

	records = make([]*Record, 0)
	for rows.Next() {
		var r Record
		if err = rows.Scan(&r.Version, &r.Description, &r.Checksum, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed scanning migration history: %w", err)
		}
		records = append(records, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over migration history rows: %w", err)
	}

	return records, nil
}

// CurrentVersion returns the highest applied migration version, or 0 if no
// migrations were applied.
func CurrentVersion(ctx context.Context, d Executor) (uint, error) {
	history, err := History(ctx, d)
	if err != nil {
		return 0, err
	}
	if len(history) == 0 {
		return 0, nil
	}
	return history[len(history)-1].Version, nil
}

// State is the status of a single registered migration.
type State struct {
	*Migration
	Applied   bool
	AppliedAt time.Time
}

// Status returns the state of every migration in reg, in ascending version
// order. It doesn't modify the database.
func Status(ctx context.Context, d Executor, reg *Registry) ([]State, error) {
	history, err := History(ctx, d)
	if err != nil {
		return nil, err
	}
	applied := make(map[uint]*Record, len(history))
	for _, r := range history {
		applied[r.Version] = r
	}

	migs := reg.Migrations()
	states := make([]State, len(migs))
	for i, m := range migs {
		states[i] = State{Migration: m}
		if r, ok := applied[m.Version]; ok {
			states[i].Applied = true
			states[i].AppliedAt = r.AppliedAt
		}
	}

	return states, nil
}

// verify checks that the recorded history is consistent with reg.
func verify(reg *Registry, history []*Record) error {
	if len(history) == 0 {
		return nil
	}

	applied := make(map[uint]struct{}, len(history))
	for _, r := range history {
		m, ok := reg.Get(r.Version)
		if !ok {
			return UnknownVersionError{Version: r.Version}
		}
		if m.Checksum() != r.Checksum {
			return ChecksumMismatchError{
				Version: r.Version, Recorded: r.Checksum, Current: m.Checksum(),
			}
		}
		applied[r.Version] = struct{}{}
	}

	current := history[len(history)-1].Version
	for _, m := range reg.Migrations() {
		if m.Version >= current {
			break
		}
		if _, ok := applied[m.Version]; !ok {
			return OutOfOrderError{Version: m.Version, Current: current}
		}
	}

	return nil
}

func ensureHistoryTable(ctx context.Context, d Executor) error {
	_, err := d.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL
	)`, HistoryTable))
	if err != nil {
		return fmt.Errorf("failed creating migration history table: %w", err)
	}

	return nil
}

func applyOne(ctx context.Context, d Executor, m *Migration, appliedAt time.Time) (err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.Script); err != nil {
		return err //nolint:wrapcheck // Wrapped in MigrationError by the caller.
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (version, description, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		HistoryTable), m.Version, m.Description, m.Checksum(), appliedAt)
	if err != nil {
		return fmt.Errorf("failed recording migration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed committing transaction: %w", err)
	}

	return nil
}
