package models

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/nrednav/cuid2"

	"go.hackfix.me/rowlog/db/types"
)

// DateTimeLayout is the layout session date-times are stored with. All values
// are stored in UTC.
const DateTimeLayout = "2006-01-02T15:04:05"

// SessionIDPrefix is the prefix of generated session IDs.
const SessionIDPrefix = "session-"

// Session is a single outing of a boat and its rowers.
type Session struct {
	ID                   string
	BoatID               string
	StartDateTime        time.Time
	EstimatedEndDateTime sql.Null[time.Time]
	RouteID              sql.Null[string]
	EndDateTime          sql.Null[time.Time]
	IncidentID           sql.Null[string]
	Comment              sql.Null[string]
	HasBeenCoached       sql.Null[bool]
	// Rowers are the IDs of the rowers on the boat. They're stored when the
	// session is created, and loaded with the session afterward. Use AddRower
	// and RemoveRower to change them for existing sessions.
	Rowers []string
}

// Ongoing returns true if the session hasn't ended yet.
func (s *Session) Ongoing() bool {
	return !s.EndDateTime.Valid
}

// Save stores the session data in the database. When creating a session, a
// new ID is generated if one isn't set, and its rowers are stored as well.
// It should be called within a transaction if the session has rowers.
func (s *Session) Save(ctx context.Context, d types.Querier, update bool) error {
	if s.BoatID == "" {
		return types.InvalidInputError{Msg: "session boat ID must be set"}
	}
	if s.StartDateTime.IsZero() {
		return types.InvalidInputError{Msg: "session start date-time must be set"}
	}

	args := []any{
		s.BoatID, formatTime(s.StartDateTime), formatNullTime(s.EstimatedEndDateTime),
		s.RouteID, formatNullTime(s.EndDateTime), s.IncidentID, s.Comment,
		formatNullBool(s.HasBeenCoached),
	}

	if update {
		if s.ID == "" {
			return types.InvalidInputError{Msg: "session ID must be set"}
		}
		res, err := d.ExecContext(ctx, `UPDATE session
			SET boat_id = ?,
			    start_date_time = ?,
			    estimated_end_date_time = ?,
			    route_id = ?,
			    end_date_time = ?,
			    incident_id = ?,
			    comment = ?,
			    has_been_coached = ?
			WHERE id = ?`, append(args, s.ID)...)
		if err != nil {
			return types.Err("session", fmt.Sprintf("ID '%s'", s.ID), err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed getting affected rows: %w", err)
		}
		if n == 0 {
			return types.NoResultError{ModelName: "session", ID: fmt.Sprintf("ID '%s'", s.ID)}
		}

		return nil
	}

	id := s.ID
	if id == "" {
		id = SessionIDPrefix + cuid2.Generate()
	}

	_, err := d.ExecContext(ctx, `INSERT INTO session
		(id, boat_id, start_date_time, estimated_end_date_time, route_id,
		 end_date_time, incident_id, comment, has_been_coached)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, append([]any{id}, args...)...)
	if err != nil {
		return types.Err("session", fmt.Sprintf("ID '%s'", id), err)
	}
	s.ID = id

	for _, rowerID := range s.Rowers {
		if err = AddRower(ctx, d, s.ID, rowerID); err != nil {
			return err
		}
	}

	return nil
}

// StopDetails are the optional values recorded when a session ends. Empty
// strings and invalid null values leave the existing values unchanged.
type StopDetails struct {
	Comment    string
	IncidentID string
	Coached    sql.Null[bool]
}

// Stop ends an ongoing session at the given time.
func (s *Session) Stop(ctx context.Context, d types.Querier, end time.Time, details StopDetails) error {
	if !s.Ongoing() {
		return types.InvalidInputError{Msg: fmt.Sprintf("session '%s' has already ended", s.ID)}
	}
	if end.Before(s.StartDateTime) {
		return types.InvalidInputError{Msg: fmt.Sprintf(
			"session end date-time %s is before its start date-time %s",
			formatTime(end), formatTime(s.StartDateTime))}
	}

	prev := *s
	s.EndDateTime = sql.Null[time.Time]{V: end.UTC().Truncate(time.Second), Valid: true}
	if details.Comment != "" {
		s.Comment = sql.Null[string]{V: details.Comment, Valid: true}
	}
	if details.IncidentID != "" {
		s.IncidentID = sql.Null[string]{V: details.IncidentID, Valid: true}
	}
	if details.Coached.Valid {
		s.HasBeenCoached = details.Coached
	}

	if err := s.Save(ctx, d, true); err != nil {
		*s = prev
		return err
	}

	return nil
}

// Load the session data from the database. The session ID must be set.
func (s *Session) Load(ctx context.Context, d types.Querier) error {
	if s.ID == "" {
		return types.InvalidInputError{Msg: "session ID must be set"}
	}

	sessions, err := Sessions(ctx, d, types.NewFilter("s.id = ?", []any{s.ID}))
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		return types.NoResultError{ModelName: "session", ID: fmt.Sprintf("ID '%s'", s.ID)}
	}
	*s = *sessions[0]

	return nil
}

// Delete removes the session data from the database, including the rowers
// assigned to it. It returns an error if the session doesn't exist.
func (s *Session) Delete(ctx context.Context, d types.Querier) error {
	if s.ID == "" {
		return types.InvalidInputError{Msg: "session ID must be set"}
	}

	res, err := d.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, s.ID)
	if err != nil {
		return types.Err("session", fmt.Sprintf("ID '%s'", s.ID), err)
	}

	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	} else if n == 0 {
		return types.NoResultError{ModelName: "session", ID: fmt.Sprintf("ID '%s'", s.ID)}
	}

	return nil
}

// OngoingFilter matches sessions that haven't ended.
func OngoingFilter() *types.Filter {
	return types.NewFilter("s.end_date_time IS NULL", nil)
}

// CompletedFilter matches sessions that have ended.
func CompletedFilter() *types.Filter {
	return types.NewFilter("s.end_date_time IS NOT NULL", nil)
}

// BoatFilter matches sessions of the given boat.
func BoatFilter(boatID string) *types.Filter {
	return types.NewFilter("s.boat_id = ?", []any{boatID})
}

// OngoingSession returns the ongoing session of the given boat. It returns a
// NoResultError if the boat isn't out.
func OngoingSession(ctx context.Context, d types.Querier, boatID string) (*Session, error) {
	sessions, err := Sessions(ctx, d, BoatFilter(boatID).And(OngoingFilter()))
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, types.NoResultError{
			ModelName: "ongoing session", ID: fmt.Sprintf("boat ID '%s'", boatID),
		}
	}
	if len(sessions) > 1 {
		return nil, types.IntegrityError{Msg: fmt.Sprintf(
			"boat '%s' has %d ongoing sessions", boatID, len(sessions))}
	}

	return sessions[0], nil
}

// Sessions returns one or more sessions from the database, with their rowers.
// An optional filter can be passed to limit the results.
func Sessions(ctx context.Context, d types.Querier, filter *types.Filter) ([]*Session, error) {
	sessions, err := loadSessions(ctx, d, filter)
	if err != nil {
		return nil, err
	}

	for _, s := range sessions {
		if s.Rowers, err = SessionRowers(ctx, d, s.ID); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

func loadSessions(ctx context.Context, d types.Querier, filter *types.Filter) (sessions []*Session, rerr error) {
	query := `SELECT s.id, s.boat_id, s.start_date_time, s.estimated_end_date_time,
			s.route_id, s.end_date_time, s.incident_id, s.comment, s.has_been_coached
		FROM session s %s
		ORDER BY s.start_date_time DESC, s.id ASC %s`

	where := "1=1"
	args := []any{}
	limit := ""
	if filter != nil {
		where = filter.Where
		args = filter.Args
		if filter.Limit > 0 {
			limit = fmt.Sprintf("LIMIT %d", filter.Limit)
		}
	}

	query = fmt.Sprintf(query, fmt.Sprintf("WHERE %s", where), limit)

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "sessions", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = fmt.Errorf("failed closing session rows: %w", err)
		}
	}()

	sessions = make([]*Session, 0)
	for rows.Next() {
		var (
			s                       Session
			start                   string
			estimatedEnd, end, cchd sql.Null[string]
		)
		err = rows.Scan(&s.ID, &s.BoatID, &start, &estimatedEnd, &s.RouteID,
			&end, &s.IncidentID, &s.Comment, &cchd)
		if err != nil {
			return nil, types.ScanError{ModelName: "session", Err: err}
		}

		if s.StartDateTime, err = parseTime(start); err != nil {
			return nil, types.ScanError{ModelName: "session", Err: err}
		}
		if s.EstimatedEndDateTime, err = parseNullTime(estimatedEnd); err != nil {
			return nil, types.ScanError{ModelName: "session", Err: err}
		}
		if s.EndDateTime, err = parseNullTime(end); err != nil {
			return nil, types.ScanError{ModelName: "session", Err: err}
		}
		if s.HasBeenCoached, err = parseNullBool(cchd); err != nil {
			return nil, types.ScanError{ModelName: "session", Err: err}
		}
		sessions = append(sessions, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over session rows: %w", err)
	}

	return sessions, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

func formatNullTime(t sql.Null[time.Time]) sql.Null[string] {
	if !t.Valid {
		return sql.Null[string]{}
	}
	return sql.Null[string]{V: formatTime(t.V), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date-time '%s': %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.Null[string]) (sql.Null[time.Time], error) {
	if !s.Valid {
		return sql.Null[time.Time]{}, nil
	}
	t, err := parseTime(s.V)
	if err != nil {
		return sql.Null[time.Time]{}, err
	}
	return sql.Null[time.Time]{V: t, Valid: true}, nil
}

func formatNullBool(b sql.Null[bool]) sql.Null[string] {
	if !b.Valid {
		return sql.Null[string]{}
	}
	return sql.Null[string]{V: strconv.FormatBool(b.V), Valid: true}
}

func parseNullBool(s sql.Null[string]) (sql.Null[bool], error) {
	if !s.Valid {
		return sql.Null[bool]{}, nil
	}
	b, err := strconv.ParseBool(s.V)
	if err != nil {
		return sql.Null[bool]{}, fmt.Errorf("invalid boolean '%s': %w", s.V, err)
	}
	return sql.Null[bool]{V: b, Valid: true}, nil
}
