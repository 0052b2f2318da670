package fs

import (
	"context"
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	t.Parallel()

	base := memoryfs.New()
	f := New(base, "/data/rowlog")

	err := f.WriteFile("a.txt", []byte("x"), 0o644)
	require.EqualError(t, err, "filesystem capability isn't initialized")

	require.NoError(t, f.Init(context.Background()))

	require.NoError(t, f.WriteFile("exports/sessions.csv", []byte("id\n"), 0o644))
	data, err := vfs.ReadFile(base, "/data/rowlog/exports/sessions.csv")
	require.NoError(t, err)
	assert.Equal(t, "id\n", string(data))

	assert.Equal(t, "/data/rowlog", f.Root())

	abs, err := f.Abs("exports/sessions.csv")
	require.NoError(t, err)
	assert.Equal(t, "/data/rowlog/exports/sessions.csv", abs)

	for _, name := range []string{"../escape.txt", "/etc/passwd", ""} {
		err = f.WriteFile(name, []byte("x"), 0o644)
		assert.EqualError(t, err, "path '"+name+"' is outside of the filesystem scope")
	}
}

func TestFSInitNoRoot(t *testing.T) {
	t.Parallel()

	err := New(memoryfs.New(), "").Init(context.Background())
	assert.EqualError(t, err, "filesystem root directory is required")
}
