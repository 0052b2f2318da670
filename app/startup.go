package app

import (
	"errors"
	"fmt"
	"slices"

	actx "go.hackfix.me/rowlog/app/context"
	aerrors "go.hackfix.me/rowlog/app/errors"
	"go.hackfix.me/rowlog/capability"
	ctypes "go.hackfix.me/rowlog/capability/types"
	"go.hackfix.me/rowlog/db"
	"go.hackfix.me/rowlog/db/migrator"
)

// Startup is the configuration of the application startup sequence. It can't
// be modified after it's created.
type Startup struct {
	connString   string
	dataDir      string
	migrations   *migrator.Registry
	capabilities []ctypes.Registration
}

// NewStartup returns a new Startup configuration. connString identifies the
// database (see db.ParseConnString), migrations is the schema applied to it,
// and capabilities are initialized in the given order.
func NewStartup(
	connString, dataDir string, migrations *migrator.Registry, capabilities []ctypes.Registration,
) (Startup, error) {
	if connString == "" {
		return Startup{}, errors.New("database connection string is required")
	}
	if migrations == nil {
		return Startup{}, errors.New("migration registry is required")
	}

	return Startup{
		connString:   connString,
		dataDir:      dataDir,
		migrations:   migrations,
		capabilities: slices.Clone(capabilities),
	}, nil
}

// ConnString returns the database connection string.
func (s Startup) ConnString() string { return s.connString }

// DataDir returns the application data directory.
func (s Startup) DataDir() string { return s.dataDir }

// Migrations returns the migration registry.
func (s Startup) Migrations() *migrator.Registry { return s.migrations }

// Capabilities returns a copy of the capability registrations.
func (s Startup) Capabilities() []ctypes.Registration { return slices.Clone(s.capabilities) }

// Start runs the startup sequence. It creates the data directory, opens the
// database unless appCtx already has one, applies all pending migrations and
// initializes the capabilities. Any migration failure is fatal, and the
// application must not continue running. On success, appCtx.DB and
// appCtx.Capabilities are ready to use.
func Start(appCtx *actx.Context, s Startup) error {
	if s.migrations == nil {
		return errors.New("startup configuration isn't initialized")
	}
	logger := appCtx.Logger.With("component", "startup")

	if s.dataDir != "" {
		if err := appCtx.FS.MkdirAll(s.dataDir, 0o700); err != nil {
			return fmt.Errorf("failed creating data directory '%s': %w", s.dataDir, err)
		}
	}

	if appCtx.DB == nil {
		d, err := db.Open(appCtx.Ctx, s.connString, s.dataDir, appCtx.TimeNow)
		if err != nil {
			return aerrors.NewWithCause("failed opening database", err, "conn_string", s.connString)
		}
		appCtx.DB = d
	}

	res, err := appCtx.DB.Migrate(s.migrations, appCtx.Logger)
	if err != nil {
		return aerrors.NewWithCause("failed migrating database", err,
			"path", appCtx.DB.Path(), "version", res.To)
	}
	logger.Debug("database schema ready", "version", res.To)

	mgr, err := capability.NewManager(s.Capabilities(), capability.WithLogger(appCtx.Logger))
	if err != nil {
		return fmt.Errorf("failed creating capability manager: %w", err)
	}
	if err = mgr.Init(appCtx.Ctx); err != nil {
		return err
	}
	appCtx.Capabilities = mgr
	logger.Debug("capabilities ready", "active", mgr.Active())

	return nil
}
