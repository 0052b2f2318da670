package migrator

import (
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

var migrationFileRx = regexp.MustCompile(`^(\d+)-([\w-]+)\.(up|down)\.sql$`)

// LoadMigrations reads all SQL migration files in the root of fsys. Files must
// be named `{version}-{description}.up.sql`. Files not ending in `.sql` are
// ignored, and `.down.sql` files are rejected since rollbacks aren't supported.
func LoadMigrations(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed reading migrations directory: %w", err)
	}

	migs := make([]*Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, err := parseFileName(entry.Name())
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		if m.Direction != MigrationUp {
			return nil, fmt.Errorf("migration file '%s': down migrations are not supported", entry.Name())
		}

		script, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed reading migration file '%s': %w", entry.Name(), err)
		}
		m.Script = string(script)
		migs = append(migs, m)
	}

	return migs, nil
}

// parseFileName returns a Migration without a script from a migration file
// name, or nil if the file isn't an SQL file.
func parseFileName(name string) (*Migration, error) {
	match := migrationFileRx.FindStringSubmatch(name)
	if match == nil {
		if strings.HasSuffix(name, ".sql") {
			return nil, fmt.Errorf("invalid migration file name '%s'", name)
		}
		return nil, nil //nolint:nilnil // Not a migration file.
	}

	version, err := strconv.ParseUint(match[1], 10, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid version in migration file name '%s': %w", name, err)
	}
	dir, err := DirectionFromString(match[3])
	if err != nil {
		return nil, err
	}

	return &Migration{
		Version:     uint(version),
		Description: match[2],
		Direction:   dir,
	}, nil
}
