package models

import (
	"context"
	"fmt"

	"go.hackfix.me/rowlog/db/types"
)

// AddRower assigns a rower to a session. It returns a ReferenceError if the
// session doesn't exist, and a DuplicateError if the rower is already assigned.
func AddRower(ctx context.Context, d types.Querier, sessionID, rowerID string) error {
	if sessionID == "" || rowerID == "" {
		return types.InvalidInputError{Msg: "both session ID and rower ID must be set"}
	}

	_, err := d.ExecContext(ctx,
		`INSERT INTO session_rowers (session_id, rower_id) VALUES (?, ?)`, sessionID, rowerID)
	if err != nil {
		return types.Err("session rower",
			fmt.Sprintf("session ID '%s' and rower ID '%s'", sessionID, rowerID), err)
	}

	return nil
}

// RemoveRower unassigns a rower from a session. It returns an error if the
// rower isn't assigned to the session.
func RemoveRower(ctx context.Context, d types.Querier, sessionID, rowerID string) error {
	id := fmt.Sprintf("session ID '%s' and rower ID '%s'", sessionID, rowerID)
	res, err := d.ExecContext(ctx,
		`DELETE FROM session_rowers WHERE session_id = ? AND rower_id = ?`, sessionID, rowerID)
	if err != nil {
		return types.Err("session rower", id, err)
	}

	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	} else if n == 0 {
		return types.NoResultError{ModelName: "session rower", ID: id}
	}

	return nil
}

// SessionRowers returns the IDs of the rowers assigned to a session, sorted
// by ID.
func SessionRowers(ctx context.Context, d types.Querier, sessionID string) (rowerIDs []string, rerr error) {
	rows, err := d.QueryContext(ctx,
		`SELECT rower_id FROM session_rowers WHERE session_id = ? ORDER BY rower_id ASC`, sessionID)
	if err != nil {
		return nil, types.LoadError{ModelName: "session rowers", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing session rower rows: %w", err)
		}
	}()

	rowerIDs = make([]string, 0)
	for rows.Next() {
		var rowerID string
		if err = rows.Scan(&rowerID); err != nil {
			return nil, types.ScanError{ModelName: "session rower", Err: err}
		}
		rowerIDs = append(rowerIDs, rowerID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over session rower rows: %w", err)
	}

	return rowerIDs, nil
}

// RowerSessionCount returns the number of sessions the rower took part in.
func RowerSessionCount(ctx context.Context, d types.Querier, rowerID string) (int, error) {
	return filterCount(ctx, d, "session_rowers", types.NewFilter("rower_id = ?", []any{rowerID}))
}
