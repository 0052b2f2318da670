package queries

import (
	"context"
	"fmt"
	"strings"

	"go.hackfix.me/rowlog/db/types"
)

// Column describes a table column.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	// PK is the 1-based position of the column in the primary key, or 0 if the
	// column isn't part of it.
	PK int
}

// Index describes a table index.
type Index struct {
	Name    string
	Unique  bool
	Columns []string
}

// ForeignKey describes a foreign key constraint on a table.
type ForeignKey struct {
	Table    string
	From     string
	To       string
	OnDelete string
}

// GetAllTables returns a map of all table names in the database that contain user data.
func GetAllTables(ctx context.Context, d types.Querier) (_ map[string]struct{}, rerr error) {
	allTables := make(map[string]struct{})
	rows, err := d.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows.Close, &rerr)

	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, err
		}

		// Exclude internal tables
		if !strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "sqlite_") {
			allTables[name] = struct{}{}
		}
	}

	return allTables, rows.Err()
}

// TableColumns returns the columns of the given table in declaration order.
func TableColumns(ctx context.Context, d types.Querier, table string) (_ []Column, rerr error) {
	rows, err := d.QueryContext(ctx,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed loading columns of table %s: %w", table, err)
	}
	defer closeRows(rows.Close, &rerr)

	cols := []Column{}
	for rows.Next() {
		var c Column
		if err = rows.Scan(&c.Name, &c.Type, &c.NotNull, &c.PK); err != nil {
			return nil, types.ScanError{ModelName: "column", Err: err}
		}
		cols = append(cols, c)
	}

	return cols, rows.Err()
}

// TableIndexes returns the explicitly created indexes of the given table,
// sorted by name. Indexes SQLite creates for primary keys and unique
// constraints are excluded.
func TableIndexes(ctx context.Context, d types.Querier, table string) (_ []Index, rerr error) {
	rows, err := d.QueryContext(ctx,
		`SELECT name, "unique" FROM pragma_index_list(?) WHERE origin = 'c' ORDER BY name`, table)
	if err != nil {
		return nil, fmt.Errorf("failed loading indexes of table %s: %w", table, err)
	}

	idxs := []Index{}
	for rows.Next() {
		var idx Index
		if err = rows.Scan(&idx.Name, &idx.Unique); err != nil {
			_ = rows.Close()
			return nil, types.ScanError{ModelName: "index", Err: err}
		}
		idxs = append(idxs, idx)
	}
	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	for i := range idxs {
		if idxs[i].Columns, err = indexColumns(ctx, d, idxs[i].Name); err != nil {
			return nil, err
		}
	}

	return idxs, nil
}

// ForeignKeys returns the foreign key constraints declared on the given table.
func ForeignKeys(ctx context.Context, d types.Querier, table string) (_ []ForeignKey, rerr error) {
	rows, err := d.QueryContext(ctx,
		`SELECT "table", "from", "to", on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table)
	if err != nil {
		return nil, fmt.Errorf("failed loading foreign keys of table %s: %w", table, err)
	}
	defer closeRows(rows.Close, &rerr)

	fks := []ForeignKey{}
	for rows.Next() {
		var fk ForeignKey
		if err = rows.Scan(&fk.Table, &fk.From, &fk.To, &fk.OnDelete); err != nil {
			return nil, types.ScanError{ModelName: "foreign key", Err: err}
		}
		fks = append(fks, fk)
	}

	return fks, rows.Err()
}

func indexColumns(ctx context.Context, d types.Querier, index string) (_ []string, rerr error) {
	rows, err := d.QueryContext(ctx, `SELECT name FROM pragma_index_info(?) ORDER BY seqno`, index)
	if err != nil {
		return nil, fmt.Errorf("failed loading columns of index %s: %w", index, err)
	}
	defer closeRows(rows.Close, &rerr)

	cols := []string{}
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, types.ScanError{ModelName: "index column", Err: err}
		}
		cols = append(cols, name)
	}

	return cols, rows.Err()
}

func closeRows(closeFn func() error, rerr *error) {
	if err := closeFn(); err != nil && *rerr == nil {
		*rerr = fmt.Errorf("failed closing rows: %w", err)
	}
}
