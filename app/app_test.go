package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "go.hackfix.me/rowlog/app/errors"
)

func TestAppMigrateStatus(t *testing.T) {
	t.Parallel()

	tapp := newTestApp(t.Context(), t, testAppOptions{})

	err := tapp.Run("migrate", "status")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(tapp.stdout.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, strings.ToLower(lines[0]), "migration")
	assert.Contains(t, lines[1], "1-create_session_tables")
	assert.Contains(t, lines[1], "2025-01-01 09:30")
	assert.Contains(t, lines[2], "2-add_session_coaching")
	assert.NotContains(t, tapp.stdout.String(), "pending")
}

func TestAppAutostart(t *testing.T) {
	t.Parallel()

	tapp := newTestApp(t.Context(), t, testAppOptions{})
	entry := "/config/autostart/rowlog.desktop"

	require.NoError(t, tapp.Run("autostart", "status"))
	assert.Equal(t, "disabled ("+entry+")\n", tapp.stdout.String())

	require.NoError(t, tapp.Run("autostart", "enable"))
	assert.Contains(t, tapp.stderr.String(), "enabled autostart")
	data, err := vfs.ReadFile(tapp.fs, entry)
	require.NoError(t, err)
	assert.Contains(t, string(data), `Exec="/usr/local/bin/rowlog" --flag1 --flag2`)

	require.NoError(t, tapp.Run("autostart", "status"))
	assert.Equal(t, "enabled ("+entry+")\n", tapp.stdout.String())

	// The autostart entry launches the default command.
	require.NoError(t, tapp.Run("--flag1", "--flag2"))
	assert.Contains(t, tapp.stdout.String(), "Ongoing sessions: 0")

	require.NoError(t, tapp.Run("autostart", "disable"))
	require.NoError(t, tapp.Run("autostart", "status"))
	assert.Equal(t, "disabled ("+entry+")\n", tapp.stdout.String())
}

func TestAppAutostartUnsupported(t *testing.T) {
	t.Parallel()

	tapp := newTestApp(t.Context(), t, testAppOptions{goos: "plan9"})

	err := tapp.Run("autostart", "status")
	require.EqualError(t, err, "autostart is not available: capability 'autostart' is unavailable")
	var rerr *aerrors.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "See the 'failed initializing capability' warning above for the cause.", rerr.Hint())

	stderr := tapp.stderr.String()
	assert.Contains(t, stderr, "WRN")
	assert.Contains(t, stderr, "failed initializing capability; continuing without it")
	assert.Contains(t, stderr, "autostart is not supported on plan9")

	// The other commands work without it.
	require.NoError(t, tapp.Run())
	assert.Contains(t, tapp.stdout.String(), "Capabilities:     fs, dialog, shell\n")
}

func TestAppConfig(t *testing.T) {
	t.Parallel()

	tapp := newTestApp(t.Context(), t, testAppOptions{})
	require.NoError(t, tapp.fs.MkdirAll("/config/rowlog", 0o755))
	require.NoError(t, vfs.WriteFile(tapp.fs, "/config/rowlog/config.json",
		[]byte(`{"sessions":{"default_duration":"45m"},"shell":{"allow":["/usr/bin/*"]}}`), 0o644))

	require.NoError(t, tapp.Run("session", "start", "boat-1"))
	require.NoError(t, tapp.Run("session", "ls"))
	assert.Contains(t, tapp.stdout.String(), "(2025-01-01 10:15)")

	err := tapp.Run("session", "export", "s.csv", "--open")
	require.ErrorContains(t, err, "failed opening export file")
	assert.Empty(t, *tapp.shellCalls)
}

func TestAppConfigInvalid(t *testing.T) {
	t.Parallel()

	tapp := newTestApp(t.Context(), t, testAppOptions{})
	require.NoError(t, tapp.fs.MkdirAll("/config/rowlog", 0o755))
	require.NoError(t, vfs.WriteFile(tapp.fs, "/config/rowlog/config.json",
		[]byte(`{"sessions":{"default_duration":"soon"}}`), 0o644))

	err := tapp.Run("status")
	require.EqualError(t, err, "failed parsing configuration file: failed parsing "+
		"default session duration: invalid duration 'soon'")
}
