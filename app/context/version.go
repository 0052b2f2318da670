package context

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// VersionInfo describes the build of the application.
type VersionInfo struct {
	Semantic  string
	Commit    string
	Dirty     bool
	GoVersion string
}

// String returns the version as a human readable string.
func (vi *VersionInfo) String() string {
	commit := vi.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		return fmt.Sprintf("%s (%s)", vi.Semantic, vi.GoVersion)
	}
	if vi.Dirty {
		commit += "-dirty"
	}

	return fmt.Sprintf("%s (commit %s, %s)", vi.Semantic, commit, vi.GoVersion)
}

// GetVersion returns the version information of the running binary.
func GetVersion() (*VersionInfo, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, errors.New("failed reading build information")
	}

	vi := &VersionInfo{
		Semantic:  bi.Main.Version,
		GoVersion: bi.GoVersion,
	}
	if vi.Semantic == "" || vi.Semantic == "(devel)" {
		vi.Semantic = "v0.0.0-dev"
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			vi.Commit = s.Value
		case "vcs.modified":
			vi.Dirty = s.Value == "true"
		}
	}

	return vi, nil
}
