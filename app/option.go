package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/vfs"

	cfg "go.hackfix.me/rowlog/app/config"
	"go.hackfix.me/rowlog/capability/autostart"
	"go.hackfix.me/rowlog/capability/shell"
	"go.hackfix.me/rowlog/db"
)

// Option is a function that allows configuring the application.
type Option func(*App)

// WithAutostart sets options of the autostart capability.
func WithAutostart(opts ...autostart.Option) Option {
	return func(app *App) {
		app.autostartOpts = opts
	}
}

// WithConfig sets the configuration object.
func WithConfig(cfg *cfg.Config) Option {
	return func(app *App) {
		app.ctx.Config = cfg
	}
}

// WithContext sets the main context.
func WithContext(ctx context.Context) Option {
	return func(app *App) {
		app.ctx.Ctx = ctx
	}
}

// WithDB sets an already opened database, instead of opening one at startup.
func WithDB(d *db.DB) Option {
	return func(app *App) {
		app.ctx.DB = d
	}
}

// WithExecutable sets the path of the application executable, which is
// launched on login if autostart is enabled.
func WithExecutable(path string) Option {
	return func(app *App) {
		app.exePath = path
	}
}

// WithFDs sets the file descriptors used by the application. interactive
// should be true if stdin is connected to a terminal.
func WithFDs(stdin io.Reader, stdout, stderr io.Writer, interactive bool) Option {
	return func(app *App) {
		app.ctx.Stdin = stdin
		app.ctx.Stdout = stdout
		app.ctx.Stderr = stderr
		app.ctx.Interactive = interactive
	}
}

// WithFS sets the filesystem used by the application.
func WithFS(fs vfs.FileSystem) Option {
	return func(app *App) {
		app.ctx.FS = fs
	}
}

// WithLogger initializes the logger used by the application.
func WithLogger(isStderrTTY bool) Option {
	return func(app *App) {
		lvl := &slog.LevelVar{}
		lvl.Set(slog.LevelInfo)
		logger := slog.New(
			tint.NewHandler(app.ctx.Stderr, &tint.Options{
				Level:      lvl,
				NoColor:    !isStderrTTY,
				TimeFormat: "2006-01-02 15:04:05.000",
			}),
		)
		app.logLevel = lvl
		app.ctx.Logger = logger
		slog.SetDefault(logger)
	}
}

// WithShellRunner sets the function used by the shell capability to run
// programs.
func WithShellRunner(run shell.Runner) Option {
	return func(app *App) {
		app.shellOpts = append(app.shellOpts, shell.WithRunner(run))
	}
}

// WithTimeNow sets the function used to retrieve the current system time.
func WithTimeNow(timeNowFn func() time.Time) Option {
	return func(app *App) {
		app.ctx.TimeNow = timeNowFn
	}
}
