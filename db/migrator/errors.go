package migrator

import (
	"errors"
	"fmt"
)

// ErrEmptyRegistry is returned when building a Registry without migrations.
var ErrEmptyRegistry = errors.New("migration registry is empty")

// DuplicateVersionError is returned when two migrations share a version.
type DuplicateVersionError struct {
	Version uint
	First   string
	Second  string
}

func (e DuplicateVersionError) Error() string {
	return fmt.Sprintf("migration version %d is declared twice: '%s' and '%s'",
		e.Version, e.First, e.Second)
}

// ChecksumMismatchError is returned when the script of an already applied
// migration differs from the one it was applied with.
type ChecksumMismatchError struct {
	Version  uint
	Recorded string
	Current  string
}

func (e ChecksumMismatchError) Error() string {
	return fmt.Sprintf("migration %d was modified after being applied: recorded checksum %s, current checksum %s",
		e.Version, e.Recorded, e.Current)
}

// UnknownVersionError is returned when the database records a migration that
// doesn't exist in the registry, i.e. it was written by a newer build.
type UnknownVersionError struct {
	Version uint
}

func (e UnknownVersionError) Error() string {
	return fmt.Sprintf("database has unknown migration version %d applied", e.Version)
}

// OutOfOrderError is returned when a migration older than the current database
// version was never applied.
type OutOfOrderError struct {
	Version uint
	Current uint
}

func (e OutOfOrderError) Error() string {
	return fmt.Sprintf("migration %d was never applied, but the database is at version %d",
		e.Version, e.Current)
}

// MigrationError is returned when applying a single migration fails. The
// database is left at the version preceding Version.
type MigrationError struct {
	Version     uint
	Description string
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("failed applying migration %d-%s: %s", e.Version, e.Description, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
