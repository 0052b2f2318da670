package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionInfoString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vi   VersionInfo
		exp  string
	}{
		{
			name: "ok/no_commit",
			vi:   VersionInfo{Semantic: "v0.1.0", GoVersion: "go1.24.2"},
			exp:  "v0.1.0 (go1.24.2)",
		},
		{
			name: "ok/commit",
			vi:   VersionInfo{Semantic: "v0.1.0", Commit: "0123456789abcdef", GoVersion: "go1.24.2"},
			exp:  "v0.1.0 (commit 0123456789ab, go1.24.2)",
		},
		{
			name: "ok/dirty",
			vi:   VersionInfo{Semantic: "v0.1.0", Commit: "abc", Dirty: true, GoVersion: "go1.24.2"},
			exp:  "v0.1.0 (commit abc-dirty, go1.24.2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.exp, tt.vi.String())
		})
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	vi, err := GetVersion()
	require.NoError(t, err)
	assert.NotEmpty(t, vi.Semantic)
	assert.NotEmpty(t, vi.GoVersion)
}
