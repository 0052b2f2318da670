package types

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"
)

// Querier exposes only methods for running SQL queries, and some helper functions.
type Querier interface {
	NewContext() context.Context
	TimeNow() time.Time
	ExecContext(ctx context.Context, sql string, arguments ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Filter is used to dynamically modify queries. A nil *Filter matches all
// records.
type Filter struct {
	Where string
	Args  []any
	// Limit is the maximum number of records returned. 0 means no limit.
	Limit int
}

// NewFilter creates a new query filter.
func NewFilter(where string, args []any) *Filter {
	return &Filter{Where: where, Args: args}
}

// And joins f2 with f1 using an AND condition. Either filter may be nil.
func (f1 *Filter) And(f2 *Filter) *Filter {
	return f1.join("AND", f2)
}

// Or joins f2 with f1 using an OR condition. Either filter may be nil.
func (f1 *Filter) Or(f2 *Filter) *Filter {
	return f1.join("OR", f2)
}

// WithLimit returns a copy of the filter with the given limit.
func (f1 *Filter) WithLimit(limit int) *Filter {
	f := &Filter{Where: "1=1"}
	if f1 != nil {
		*f = *f1
	}
	f.Limit = limit
	return f
}

// join combines both filters with op. The conditions are grouped, so that
// chained joins keep their precedence. The smallest non-zero limit is kept.
func (f1 *Filter) join(op string, f2 *Filter) *Filter {
	switch {
	case f1 == nil && f2 == nil:
		return nil
	case f1 == nil:
		f := *f2
		return &f
	case f2 == nil:
		f := *f1
		return &f
	}

	limit := f1.Limit
	if f2.Limit > 0 && (limit == 0 || f2.Limit < limit) {
		limit = f2.Limit
	}

	return &Filter{
		Where: fmt.Sprintf("(%s) %s (%s)", f1.Where, op, f2.Where),
		Args:  slices.Concat(f1.Args, f2.Args),
		Limit: limit,
	}
}
