// Package autostart implements the autostart capability, which registers the
// application to be launched when the user logs in.
package autostart

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/rowlog/capability/types"
)

// Args are the arguments the application is launched with on login.
var Args = []string{"--flag1", "--flag2"}

const (
	desktopFile = "rowlog.desktop"
	plistLabel  = "me.hackfix.rowlog"
)

// Autostart manages the login launch entry of the application. On Linux and
// other XDG platforms this is a desktop entry in the autostart directory, and
// on macOS a LaunchAgent property list.
type Autostart struct {
	fs      vfs.FileSystem
	exePath string
	goos    string
	dir     string
	path    string
	render  func(exePath string, args []string) []byte
}

var _ types.Capability = &Autostart{}

// Option configures an Autostart.
type Option func(*Autostart)

// WithGOOS overrides the operating system the entry is created for.
func WithGOOS(goos string) Option {
	return func(a *Autostart) {
		a.goos = goos
	}
}

// WithDir overrides the directory the entry is created in.
func WithDir(dir string) Option {
	return func(a *Autostart) {
		a.dir = dir
	}
}

// New returns a new autostart capability that launches the executable at
// exePath.
func New(fsys vfs.FileSystem, exePath string, opts ...Option) *Autostart {
	a := &Autostart{fs: fsys, exePath: exePath, goos: runtime.GOOS}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Type implements the types.Capability interface.
func (a *Autostart) Type() types.Type {
	return types.Autostart
}

// Init implements the types.Capability interface. It fails on platforms
// without a supported autostart mechanism.
func (a *Autostart) Init(_ context.Context) error {
	if a.exePath == "" {
		return errors.New("executable path is required")
	}

	var defaultDir, file string
	switch a.goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		defaultDir = filepath.Join(xdg.ConfigHome, "autostart")
		file = desktopFile
		a.render = desktopEntry
	case "darwin":
		defaultDir = filepath.Join(xdg.Home, "Library", "LaunchAgents")
		file = plistLabel + ".plist"
		a.render = launchAgent
	default:
		return fmt.Errorf("autostart is not supported on %s", a.goos)
	}

	if a.dir == "" {
		a.dir = defaultDir
	}
	a.path = filepath.Join(a.dir, file)

	return nil
}

// Path returns the path of the autostart entry.
func (a *Autostart) Path() string {
	return a.path
}

// Enable creates or replaces the autostart entry.
func (a *Autostart) Enable() error {
	if a.render == nil {
		return errors.New("autostart capability isn't initialized")
	}
	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("failed creating directory '%s': %w", a.dir, err)
	}
	if err := vfs.WriteFile(a.fs, a.path, a.render(a.exePath, Args), 0o644); err != nil {
		return fmt.Errorf("failed writing autostart entry '%s': %w", a.path, err)
	}
	return nil
}

// Disable removes the autostart entry. It is not an error if the entry
// doesn't exist.
func (a *Autostart) Disable() error {
	if a.render == nil {
		return errors.New("autostart capability isn't initialized")
	}
	err := a.fs.Remove(a.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed removing autostart entry '%s': %w", a.path, err)
	}
	return nil
}

// IsEnabled returns true if the autostart entry exists.
func (a *Autostart) IsEnabled() (bool, error) {
	if a.render == nil {
		return false, errors.New("autostart capability isn't initialized")
	}
	if _, err := a.fs.Stat(a.path); err != nil {
		if vfs.IsErrNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed checking autostart entry '%s': %w", a.path, err)
	}
	return true, nil
}

func desktopEntry(exePath string, args []string) []byte {
	execLine := make([]string, 0, len(args)+1)
	execLine = append(execLine, strconv.Quote(exePath))
	execLine = append(execLine, args...)

	var buf bytes.Buffer
	buf.WriteString("[Desktop Entry]\n")
	buf.WriteString("Type=Application\n")
	buf.WriteString("Name=rowlog\n")
	buf.WriteString("Comment=Rowing session tracker\n")
	fmt.Fprintf(&buf, "Exec=%s\n", strings.Join(execLine, " "))
	buf.WriteString("Terminal=false\n")
	buf.WriteString("X-GNOME-Autostart-enabled=true\n")

	return buf.Bytes()
}

func launchAgent(exePath string, args []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" ` +
		`"http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	buf.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	buf.WriteString("\t<key>Label</key>\n")
	writeString(&buf, "\t", plistLabel)
	buf.WriteString("\t<key>ProgramArguments</key>\n\t<array>\n")
	writeString(&buf, "\t\t", exePath)
	for _, arg := range args {
		writeString(&buf, "\t\t", arg)
	}
	buf.WriteString("\t</array>\n")
	buf.WriteString("\t<key>RunAtLoad</key>\n\t<true/>\n")
	buf.WriteString("</dict>\n</plist>\n")

	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, indent, s string) {
	buf.WriteString(indent + "<string>")
	_ = xml.EscapeText(buf, []byte(s))
	buf.WriteString("</string>\n")
}
