// Package migrator provides functionality to manage database schema migrations.
//
// Features:
// - Loads SQL migration files from an embedded filesystem with structured naming (`{version}-{name}.up.sql`)
// - Validates migrations into an immutable, version-ordered Registry
// - Content-addresses each migration script, so edits to shipped migrations are detected
// - Tracks applied migrations in a dedicated bookkeeping table
// - Applies pending migrations in ascending order, each in its own transaction
//
// Only forward (`up`) migrations are supported. Repairing a database is done by
// shipping a new forward migration.
package migrator
