package context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/rowlog/app/config"
	"go.hackfix.me/rowlog/capability"
	"go.hackfix.me/rowlog/db"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx     context.Context  // global context
	FS      vfs.FileSystem   // filesystem
	Logger  *slog.Logger     // global logger
	TimeNow func() time.Time // current time

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Interactive is true if Stdin is connected to a terminal.
	Interactive bool

	Config       *config.Config
	DB           *db.DB
	Capabilities *capability.Manager

	// Metadata
	Version *VersionInfo
}
