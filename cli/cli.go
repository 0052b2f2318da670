package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"go.hackfix.me/rowlog/app/config"
	actx "go.hackfix.me/rowlog/app/context"
)

// CLI is the command line interface of rowlog.
type CLI struct {
	Status    Status    `kong:"cmd,default='1',help='Show the database and ongoing sessions. This is the default command.'"`
	Session   Session   `kong:"cmd,help='Manage rowing sessions.'"`
	Migrate   Migrate   `kong:"cmd,help='Inspect database schema migrations.'"`
	Autostart Autostart `kong:"cmd,help='Manage launching rowlog on login.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: I'm deliberately not using kong.ConfigFlag or its support for reading
	// values from configuration files, since I want to manage configuration
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the rowlog configuration file.'"`
	DataDir    string           `kong:"default='${dataDir}',help='Path to the directory where rowlog data is stored.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	// Passed by the autostart entry.
	Flag1 bool `kong:"hidden,name='flag1'"`
	Flag2 bool `kong:"hidden,name='flag2'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(appCtx *actx.Context, configFilePath, dataDir, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("rowlog"),
		kong.Description("Track rowing sessions."),
		kong.UsageOnError(),
		kong.DefaultEnvars("ROWLOG"),
		kong.NamedMapper("duration", DurationMapper{}),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"dataDir":    dataDir,
			"version":    version,
		},
		kong.Writers(appCtx.Stdout, appCtx.Stderr),
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	if c.Flag1 || c.Flag2 {
		appCtx.Logger.Debug("launched on login", "flag1", c.Flag1, "flag2", c.Flag2)
	}

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}

	return strings.Join(commandPath(c.kctx), " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Session.Start.Duration == 0 && cfg.Sessions.DefaultDuration.Valid {
		c.Session.Start.Duration = cfg.Sessions.DefaultDuration.V
	}
}

// commandPath returns the names of the selected command and its parents.
func commandPath(kctx *kong.Context) []string {
	cmdPath := []string{}
	for _, p := range kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}
	return cmdPath
}

// subcommand returns the name of the selected subcommand at depth, where 0 is
// the top-level command.
func subcommand(kctx *kong.Context, depth int) string {
	cmdPath := commandPath(kctx)
	if depth >= len(cmdPath) {
		return ""
	}
	return cmdPath[depth]
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
