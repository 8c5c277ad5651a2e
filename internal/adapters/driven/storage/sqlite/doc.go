// Package sqlite provides the SQLite-backed movement dataset used by the
// analysis server.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single database holds the movement records and the
// embedding vectors computed for them, keyed by embedding model.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.lens/data/movements.db
//
// # Thread Safety
//
// All operations are thread-safe. The store relies on SQLite WAL mode and a
// busy timeout for concurrent readers during an import.
package sqlite
