package cli

import (
	"github.com/alecthomas/kong"

	actx "go.hackfix.me/rowlog/app/context"
	aerrors "go.hackfix.me/rowlog/app/errors"
	"go.hackfix.me/rowlog/crypto"
	"go.hackfix.me/rowlog/db"
	"go.hackfix.me/rowlog/db/migrator"
)

// The Migrate command inspects the database schema migrations. Pending
// migrations are always applied on startup, so this only reports their state.
type Migrate struct {
	Status struct{} `kong:"cmd,help='List schema migrations and whether they were applied.'"`
}

// Run the migrate command.
func (c *Migrate) Run(kctx *kong.Context, appCtx *actx.Context) error {
	if subcommand(kctx, 1) != "status" {
		return nil
	}

	reg, err := db.Migrations()
	if err != nil {
		return aerrors.NewRuntimeError("failed loading migrations", err, "")
	}

	states, err := migrator.Status(appCtx.DB.NewContext(), appCtx.DB, reg)
	if err != nil {
		return aerrors.NewRuntimeError("failed reading migration status", err, "")
	}

	data := make([][]string, len(states))
	for i, st := range states {
		applied := "pending"
		if st.Applied {
			applied = formatTime(st.AppliedAt)
		}
		data[i] = []string{
			st.String(), crypto.ShortChecksum(st.Checksum()), applied,
		}
	}

	header := []string{"Migration", "Checksum", "Applied"}
	if err = renderTable(header, data, appCtx.Stdout); err != nil {
		return aerrors.NewRuntimeError("failed rendering migrations table", err, "")
	}

	return nil
}
