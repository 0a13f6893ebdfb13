// Package sqlite persists session records and scheduler state in SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database file backs two stores:
//
//   - SessionStore: one row per profile, written whole on every save
//   - SchedulerStore: background task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files and
// applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.saai/data/saai.db
package sqlite
