package cli

import (
	"fmt"

	"github.com/alecthomas/kong"

	actx "go.hackfix.me/rowlog/app/context"
	aerrors "go.hackfix.me/rowlog/app/errors"
	"go.hackfix.me/rowlog/capability"
	"go.hackfix.me/rowlog/capability/autostart"
	ctypes "go.hackfix.me/rowlog/capability/types"
)

// The Autostart command manages launching rowlog on login.
type Autostart struct {
	Enable  struct{} `kong:"cmd,help='Launch rowlog on login.'"`
	Disable struct{} `kong:"cmd,help='Stop launching rowlog on login.'"`
	Status  struct{} `kong:"cmd,help='Show whether rowlog is launched on login.'"`
}

// Run the autostart command.
func (c *Autostart) Run(kctx *kong.Context, appCtx *actx.Context) error {
	as, err := capability.Lookup[*autostart.Autostart](appCtx.Capabilities, ctypes.Autostart)
	if err != nil {
		return aerrors.NewRuntimeError("autostart is not available", err,
			"See the 'failed initializing capability' warning above for the cause.")
	}

	switch subcommand(kctx, 1) {
	case "enable":
		if err = as.Enable(); err != nil {
			return aerrors.NewRuntimeError("failed enabling autostart", err, "")
		}
		appCtx.Logger.Info("enabled autostart", "path", as.Path())
	case "disable":
		if err = as.Disable(); err != nil {
			return aerrors.NewRuntimeError("failed disabling autostart", err, "")
		}
		appCtx.Logger.Info("disabled autostart", "path", as.Path())
	case "status":
		enabled, err := as.IsEnabled()
		if err != nil {
			return aerrors.NewRuntimeError("failed checking autostart", err, "")
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		if _, err = fmt.Fprintf(appCtx.Stdout, "%s (%s)\n", state, as.Path()); err != nil {
			return aerrors.NewRuntimeError("failed writing to stdout", err, "")
		}
	}

	return nil
}
