package cli

import (
	"fmt"
	"strings"

	actx "go.hackfix.me/rowlog/app/context"
	aerrors "go.hackfix.me/rowlog/app/errors"
	"go.hackfix.me/rowlog/capability"
	cfs "go.hackfix.me/rowlog/capability/fs"
	ctypes "go.hackfix.me/rowlog/capability/types"
	"go.hackfix.me/rowlog/db/migrator"
	"go.hackfix.me/rowlog/db/models"
)

// The Status command shows the database and ongoing sessions.
type Status struct {
	Rowers []string `name:"rower" short:"r" help:"Also show the number of sessions of this rower. Can be repeated."`
}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context) error {
	dbCtx := appCtx.DB.NewContext()

	version, err := migrator.CurrentVersion(dbCtx, appCtx.DB)
	if err != nil {
		return aerrors.NewRuntimeError("failed reading schema version", err, "")
	}

	sessions, err := models.Sessions(dbCtx, appCtx.DB, models.OngoingFilter())
	if err != nil {
		return aerrors.NewRuntimeError("failed listing ongoing sessions", err, "")
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Database:         %s (schema version %d)\n", appCtx.DB.Path(), version)

	caps := []string{}
	if appCtx.Capabilities != nil {
		for _, typ := range appCtx.Capabilities.Active() {
			caps = append(caps, string(typ))
		}
	}
	if fsys, ferr := capability.Lookup[*cfs.FS](appCtx.Capabilities, ctypes.FS); ferr == nil {
		fmt.Fprintf(&out, "Data directory:   %s\n", fsys.Root())
	}
	fmt.Fprintf(&out, "Capabilities:     %s\n", strings.Join(caps, ", "))

	if len(c.Rowers) > 0 {
		counts := make([]string, len(c.Rowers))
		for i, rowerID := range c.Rowers {
			count, cerr := models.RowerSessionCount(dbCtx, appCtx.DB, rowerID)
			if cerr != nil {
				return aerrors.NewRuntimeError(
					fmt.Sprintf("failed counting sessions of rower '%s'", rowerID), cerr, "")
			}
			counts[i] = fmt.Sprintf("%s (%d)", rowerID, count)
		}
		fmt.Fprintf(&out, "Rower sessions:   %s\n", strings.Join(counts, ", "))
	}

	fmt.Fprintf(&out, "Ongoing sessions: %d\n", len(sessions))

	if _, err = fmt.Fprint(appCtx.Stdout, out.String()); err != nil {
		return aerrors.NewRuntimeError("failed writing to stdout", err, "")
	}

	if len(sessions) == 0 {
		return nil
	}

	if _, err = fmt.Fprintln(appCtx.Stdout); err != nil {
		return aerrors.NewRuntimeError("failed writing to stdout", err, "")
	}
	if err = renderSessions(sessions, appCtx); err != nil {
		return aerrors.NewRuntimeError("failed rendering sessions table", err, "")
	}

	return nil
}
