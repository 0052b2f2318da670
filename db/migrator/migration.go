package migrator

import (
	"fmt"
	"strings"

	"go.hackfix.me/rowlog/crypto"
)

// Direction is the direction a migration changes the schema in.
type Direction string

// Supported migration directions. Only MigrationUp migrations can be applied.
const (
	MigrationUp   Direction = "up"
	MigrationDown Direction = "down"
)

// DirectionFromString returns a valid Direction for the given string.
func DirectionFromString(val string) (Direction, error) {
	switch Direction(strings.ToLower(val)) {
	case MigrationUp:
		return MigrationUp, nil
	case MigrationDown:
		return MigrationDown, nil
	default:
		return "", fmt.Errorf("invalid migration direction '%s'", val)
	}
}

// Migration is a single versioned schema change.
type Migration struct {
	Version     uint
	Description string
	Script      string
	Direction   Direction

	checksum string
}

// Checksum returns the content hash of the migration script. It's computed when
// the migration is added to a Registry, and on demand otherwise.
func (m *Migration) Checksum() string {
	if m.checksum != "" {
		return m.checksum
	}
	return crypto.Checksum([]byte(m.Script))
}

// String returns a short label of the migration.
func (m *Migration) String() string {
	return fmt.Sprintf("%d-%s", m.Version, m.Description)
}
