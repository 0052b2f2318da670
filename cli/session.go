package cli

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	actx "go.hackfix.me/rowlog/app/context"
	aerrors "go.hackfix.me/rowlog/app/errors"
	"go.hackfix.me/rowlog/capability"
	"go.hackfix.me/rowlog/capability/dialog"
	cfs "go.hackfix.me/rowlog/capability/fs"
	"go.hackfix.me/rowlog/capability/shell"
	ctypes "go.hackfix.me/rowlog/capability/types"
	"go.hackfix.me/rowlog/db/models"
	"go.hackfix.me/rowlog/db/types"
)

// The Session command manages rowing sessions.
type Session struct {
	Start struct {
		BoatID   string        `arg:"" help:"The ID of the boat going out."`
		Rowers   []string      `name:"rower" short:"r" help:"The ID of a rower on the boat. Can be repeated."`
		Route    string        `help:"The ID of the route."`
		Duration time.Duration `type:"duration" help:"The estimated duration of the session, e.g. 90m, 1h30m. Defaults to the configured value."`
		Comment  string        `help:"A comment about the session."`
	} `kong:"cmd,help='Start a session.'"`
	Stop struct {
		BoatID     string `arg:"" help:"The ID of the boat coming back."`
		Comment    string `help:"A comment about the session. Replaces any existing comment."`
		Incident   string `help:"The ID of an incident that happened during the session."`
		Coached    bool   `xor:"coaching" help:"The rowers were coached during the session."`
		NotCoached bool   `xor:"coaching" help:"The rowers weren't coached during the session."`
	} `kong:"cmd,help='Stop the ongoing session of a boat.'"`
	Ls struct {
		Ongoing   bool     `xor:"state" help:"Only list ongoing sessions."`
		Completed bool     `xor:"state" help:"Only list completed sessions."`
		Boats     []string `name:"boat" help:"Only list sessions of this boat. Can be repeated."`
		Limit     int      `help:"The maximum number of sessions to list."`
	} `kong:"cmd,help='List sessions, most recent first.'"`
	Rm struct {
		ID  string `arg:"" help:"The ID of the session."`
		Yes bool   `short:"y" help:"Don't ask for confirmation."`
	} `kong:"cmd,help='Delete a session.'"`
	AddRower struct {
		ID      string `arg:"" help:"The ID of the session."`
		RowerID string `arg:"" help:"The ID of the rower."`
	} `kong:"cmd,help='Add a rower to a session.'"`
	RmRower struct {
		ID      string `arg:"" help:"The ID of the session."`
		RowerID string `arg:"" help:"The ID of the rower."`
	} `kong:"cmd,help='Remove a rower from a session.'"`
	Export struct {
		File string `arg:"" help:"The path of the CSV file, relative to the data directory."`
		Open bool   `help:"Open the file after exporting it."`
	} `kong:"cmd,help='Export all sessions to a CSV file.'"`
}

// Run the session command.
func (c *Session) Run(kctx *kong.Context, appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	switch subcommand(kctx, 1) {
	case "start":
		return c.start(appCtx)
	case "stop":
		sess, err := models.OngoingSession(dbCtx, appCtx.DB, c.Stop.BoatID)
		if err != nil {
			var errNoRes types.NoResultError
			if errors.As(err, &errNoRes) {
				return aerrors.NewRuntimeError(
					fmt.Sprintf("boat '%s' has no ongoing session", c.Stop.BoatID), nil,
					fmt.Sprintf("Start one with 'rowlog session start %s'.", c.Stop.BoatID))
			}
			return aerrors.NewRuntimeError("failed loading ongoing session", err, "")
		}
		details := models.StopDetails{Comment: c.Stop.Comment, IncidentID: c.Stop.Incident}
		if c.Stop.Coached || c.Stop.NotCoached {
			details.Coached = sql.Null[bool]{V: c.Stop.Coached, Valid: true}
		}
		if err = sess.Stop(dbCtx, appCtx.DB, appCtx.TimeNow(), details); err != nil {
			return aerrors.NewRuntimeError(fmt.Sprintf("failed stopping session '%s'", sess.ID), err, "")
		}
		appCtx.Logger.Info("stopped session", "session_id", sess.ID, "boat_id", sess.BoatID,
			"duration", sess.EndDateTime.V.Sub(sess.StartDateTime),
			"incident_id", sess.IncidentID.V, "coached", sess.HasBeenCoached.V)
	case "ls":
		return c.list(appCtx)
	case "rm":
		return c.remove(appCtx)
	case "add-rower":
		if err := models.AddRower(dbCtx, appCtx.DB, c.AddRower.ID, c.AddRower.RowerID); err != nil {
			return aerrors.NewRuntimeError(
				fmt.Sprintf("failed adding rower '%s' to session '%s'", c.AddRower.RowerID, c.AddRower.ID), err, "")
		}
	case "rm-rower":
		if err := models.RemoveRower(dbCtx, appCtx.DB, c.RmRower.ID, c.RmRower.RowerID); err != nil {
			return aerrors.NewRuntimeError(
				fmt.Sprintf("failed removing rower '%s' from session '%s'", c.RmRower.RowerID, c.RmRower.ID), err, "")
		}
	case "export":
		return c.export(appCtx)
	}

	return nil
}

func (c *Session) start(appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	var errNoRes types.NoResultError
	ongoing, err := models.OngoingSession(dbCtx, appCtx.DB, c.Start.BoatID)
	if err == nil {
		return aerrors.NewRuntimeError(
			fmt.Sprintf("boat '%s' is already out in session '%s'", c.Start.BoatID, ongoing.ID), nil,
			fmt.Sprintf("Stop it first with 'rowlog session stop %s'.", c.Start.BoatID))
	} else if !errors.As(err, &errNoRes) {
		return aerrors.NewRuntimeError("failed loading ongoing session", err, "")
	}

	start := appCtx.TimeNow().UTC().Truncate(time.Second)
	sess := &models.Session{
		BoatID:        c.Start.BoatID,
		StartDateTime: start,
		Rowers:        c.Start.Rowers,
	}
	if c.Start.Duration > 0 {
		sess.EstimatedEndDateTime = sql.Null[time.Time]{V: start.Add(c.Start.Duration), Valid: true}
	}
	if c.Start.Route != "" {
		sess.RouteID = sql.Null[string]{V: c.Start.Route, Valid: true}
	}
	if c.Start.Comment != "" {
		sess.Comment = sql.Null[string]{V: c.Start.Comment, Valid: true}
	}

	err = appCtx.DB.Tx(dbCtx, func(q types.Querier) error {
		return sess.Save(dbCtx, q, false)
	})
	if err != nil {
		return aerrors.NewRuntimeError(
			fmt.Sprintf("failed starting session for boat '%s'", c.Start.BoatID), err, "")
	}

	appCtx.Logger.Info("started session", "session_id", sess.ID, "boat_id", sess.BoatID,
		"rowers", len(sess.Rowers))
	_, err = fmt.Fprintln(appCtx.Stdout, sess.ID)
	if err != nil {
		return aerrors.NewRuntimeError("failed writing to stdout", err, "")
	}

	return nil
}

func (c *Session) list(appCtx *actx.Context) error {
	var filter *types.Filter
	switch {
	case c.Ls.Ongoing:
		filter = models.OngoingFilter()
	case c.Ls.Completed:
		filter = models.CompletedFilter()
	}
	var boats *types.Filter
	for _, boatID := range c.Ls.Boats {
		boats = boats.Or(models.BoatFilter(boatID))
	}
	filter = filter.And(boats)
	if c.Ls.Limit > 0 {
		filter = filter.WithLimit(c.Ls.Limit)
	}

	sessions, err := models.Sessions(appCtx.DB.NewContext(), appCtx.DB, filter)
	if err != nil {
		return aerrors.NewRuntimeError("failed listing sessions", err, "")
	}

	if len(sessions) == 0 {
		return nil
	}

	if err = renderSessions(sessions, appCtx); err != nil {
		return aerrors.NewRuntimeError("failed rendering sessions table", err, "")
	}

	return nil
}

func (c *Session) remove(appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	sess := &models.Session{ID: c.Rm.ID}
	if err := sess.Load(dbCtx, appCtx.DB); err != nil {
		return aerrors.NewRuntimeError(fmt.Sprintf("failed loading session '%s'", c.Rm.ID), err, "")
	}

	if !c.Rm.Yes {
		dlg, err := capability.Lookup[*dialog.Dialog](appCtx.Capabilities, ctypes.Dialog)
		if err != nil {
			return aerrors.NewRuntimeError("failed asking for confirmation", err,
				"Use --yes to delete the session without confirmation.")
		}
		ok, err := dlg.Confirm(appCtx.Ctx, fmt.Sprintf(
			"Delete session '%s' of boat '%s' started at %s?",
			sess.ID, sess.BoatID, formatTime(sess.StartDateTime)))
		if err != nil {
			return aerrors.NewRuntimeError("failed asking for confirmation", err,
				"Use --yes to delete the session without confirmation.")
		}
		if !ok {
			appCtx.Logger.Info("session not deleted", "session_id", sess.ID)
			return nil
		}
	}

	if err := sess.Delete(dbCtx, appCtx.DB); err != nil {
		return aerrors.NewRuntimeError(fmt.Sprintf("failed deleting session '%s'", sess.ID), err, "")
	}
	appCtx.Logger.Info("deleted session", "session_id", sess.ID)

	return nil
}

func (c *Session) export(appCtx *actx.Context) error {
	fsys, err := capability.Lookup[*cfs.FS](appCtx.Capabilities, ctypes.FS)
	if err != nil {
		return aerrors.NewRuntimeError("failed exporting sessions", err, "")
	}

	sessions, err := models.Sessions(appCtx.DB.NewContext(), appCtx.DB, nil)
	if err != nil {
		return aerrors.NewRuntimeError("failed loading sessions", err, "")
	}

	data, err := sessionsCSV(sessions)
	if err != nil {
		return aerrors.NewRuntimeError("failed encoding sessions", err, "")
	}
	if err = fsys.WriteFile(c.Export.File, data, 0o644); err != nil {
		return aerrors.NewRuntimeError("failed exporting sessions", err, "")
	}

	path, err := fsys.Abs(c.Export.File)
	if err != nil {
		return aerrors.NewRuntimeError("failed exporting sessions", err, "")
	}

	if dlg, derr := capability.Lookup[*dialog.Dialog](appCtx.Capabilities, ctypes.Dialog); derr == nil {
		msg := fmt.Sprintf("wrote %d sessions to %s", len(sessions), path)
		if err = dlg.Message("Export", msg); err != nil {
			return aerrors.NewRuntimeError("failed exporting sessions", err, "")
		}
	}

	if !c.Export.Open {
		return nil
	}

	sh, err := capability.Lookup[*shell.Shell](appCtx.Capabilities, ctypes.Shell)
	if err != nil {
		return aerrors.NewRuntimeError("failed opening export file", err, "")
	}
	if out, err := sh.Exec(appCtx.Ctx, opener(), path); err != nil {
		return aerrors.NewWithCause("failed opening export file", err,
			"file", path, "output", strings.TrimSpace(string(out)))
	}

	return nil
}

func renderSessions(sessions []*models.Session, appCtx *actx.Context) error {
	data := make([][]string, len(sessions))
	for i, s := range sessions {
		end := "-"
		if s.EndDateTime.Valid {
			end = formatTime(s.EndDateTime.V)
		} else if s.EstimatedEndDateTime.Valid {
			end = fmt.Sprintf("(%s)", formatTime(s.EstimatedEndDateTime.V))
		}
		data[i] = []string{
			s.ID, s.BoatID, formatTime(s.StartDateTime), end,
			strings.Join(s.Rowers, ","), s.Comment.V,
		}
	}

	header := []string{"ID", "Boat", "Start", "End", "Rowers", "Comment"}
	return renderTable(header, data, appCtx.Stdout)
}

var csvHeader = []string{
	"id", "boat_id", "start_date_time", "estimated_end_date_time", "route_id",
	"end_date_time", "incident_id", "comment", "has_been_coached", "rowers",
}

func sessionsCSV(sessions []*models.Session) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err //nolint:wrapcheck // This is wrapped by the caller.
	}

	nullTime := func(t sql.Null[time.Time]) string {
		if !t.Valid {
			return ""
		}
		return t.V.UTC().Format(models.DateTimeLayout)
	}

	for _, s := range sessions {
		coached := ""
		if s.HasBeenCoached.Valid {
			coached = strconv.FormatBool(s.HasBeenCoached.V)
		}
		record := []string{
			s.ID, s.BoatID, s.StartDateTime.UTC().Format(models.DateTimeLayout),
			nullTime(s.EstimatedEndDateTime), s.RouteID.V, nullTime(s.EndDateTime),
			s.IncidentID.V, s.Comment.V, coached, strings.Join(s.Rowers, ";"),
		}
		if err := w.Write(record); err != nil {
			return nil, err //nolint:wrapcheck // This is wrapped by the caller.
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err //nolint:wrapcheck // This is wrapped by the caller.
	}

	return buf.Bytes(), nil
}

// opener returns the program that opens files with their default application.
func opener() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}
