package db

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultConnString identifies the application database file, relative to the
// data directory.
const DefaultConnString = "sqlite:main.db"

const connScheme = "sqlite:"

// ParseConnString returns the SQLite database path identified by connString,
// which must have the form `sqlite:<filename>`. Relative filenames are
// resolved under dataDir. Absolute paths, `:memory:` and `file:` URIs are
// returned as is.
func ParseConnString(connString, dataDir string) (string, error) {
	if !strings.HasPrefix(connString, connScheme) {
		return "", fmt.Errorf("invalid connection string '%s': expected the '%s' scheme", connString, connScheme)
	}

	name := strings.TrimPrefix(connString, connScheme)
	switch {
	case strings.TrimSpace(name) == "":
		return "", fmt.Errorf("invalid connection string '%s': missing database filename", connString)
	case name == ":memory:", strings.HasPrefix(name, "file:"), filepath.IsAbs(name):
		return name, nil
	case dataDir == "":
		return "", fmt.Errorf("cannot resolve relative database filename '%s' without a data directory", name)
	}

	return filepath.Join(dataDir, name), nil
}

// isMemory returns true if path refers to an in-memory database.
func isMemory(path string) bool {
	return strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:")
}

// dsn appends the connection pragmas to path. They're applied to every new
// connection in the pool, unlike a single PRAGMA statement.
func dsn(path string) string {
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	if !isMemory(path) {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}

	params := make([]string, len(pragmas))
	for i, p := range pragmas {
		params[i] = "_pragma=" + p
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + strings.Join(params, "&")
}
