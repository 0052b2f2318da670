package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/rowlog/app/config"
	actx "go.hackfix.me/rowlog/app/context"
	"go.hackfix.me/rowlog/capability/autostart"
	"go.hackfix.me/rowlog/capability/dialog"
	cfs "go.hackfix.me/rowlog/capability/fs"
	"go.hackfix.me/rowlog/capability/shell"
	ctypes "go.hackfix.me/rowlog/capability/types"
	"go.hackfix.me/rowlog/cli"
	"go.hackfix.me/rowlog/db"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	// cli is rebuilt on every Run, so that flag values don't carry over from
	// previous executions.
	cli            *cli.CLI
	configFilePath string
	dataDir        string
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar

	exePath       string
	shellOpts     []shell.Option
	autostartOpts []autostart.Option
}

// New initializes a new application.
func New(name, configFilePath, dataDir string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{
		name: name, ctx: defaultCtx,
		configFilePath: configFilePath, dataDir: dataDir,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cli, err = app.newCLI(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *App) newCLI() (*cli.CLI, error) {
	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	return cli.New(app.ctx, app.configFilePath, app.dataDir, ver)
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	c, err := app.newCLI()
	if err != nil {
		return err
	}
	app.cli = c

	if err = app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if app.ctx.Config == nil {
		cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
		if err = cfg.Load(); err != nil {
			return err
		}
		app.ctx.Config = cfg
	}
	app.ctx.Config.SetDefaults()
	app.cli.ApplyConfig(app.ctx.Config)

	startup, err := app.startup()
	if err != nil {
		return err
	}

	ownDB := app.ctx.DB == nil
	if err = Start(app.ctx, startup); err != nil {
		return err
	}
	if ownDB {
		defer func() {
			_ = app.ctx.DB.Close()
			app.ctx.DB = nil
		}()
	}

	return app.cli.Execute(app.ctx)
}

// startup assembles the startup configuration from the parsed CLI arguments
// and the loaded configuration.
func (app *App) startup() (Startup, error) {
	migrations, err := db.Migrations()
	if err != nil {
		return Startup{}, fmt.Errorf("failed loading database migrations: %w", err)
	}

	dataDir := app.cli.DataDir
	caps := []ctypes.Registration{
		{
			Capability: cfs.New(app.ctx.FS, dataDir),
			Policy:     ctypes.PolicyFatal,
		},
		{
			Capability: dialog.New(app.ctx.Stdin, app.ctx.Stdout, app.ctx.Interactive),
			Policy:     ctypes.PolicyFatal,
		},
		{
			Capability: shell.New(app.ctx.Config.Shell.Allow, app.shellOpts...),
			Policy:     ctypes.PolicyFatal,
		},
		{
			Capability: autostart.New(app.ctx.FS, app.exePath, app.autostartOpts...),
			Policy:     ctypes.PolicyWarn,
		},
	}

	return NewStartup(db.DefaultConnString, dataDir, migrations, caps)
}
