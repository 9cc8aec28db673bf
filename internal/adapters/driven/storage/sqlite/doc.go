// Package sqlite provides a SQLite-backed token persister.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files,
// and every applied version is recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.unifiedhub/tokens.db
//
// # Thread Safety
//
// All operations are thread-safe. Save replaces the whole mapping inside one
// transaction, so a concurrent Load sees either the old or the new mapping.
package sqlite
