// Package sqlite persists vector index generations with SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Queries go through sqlx.
//
// # Layout
//
// Every build writes a fresh database file, corpus-<generation>.db, inside the
// index directory. A small CURRENT file names the committed generation and is
// replaced with an atomic rename once the new database is fully written, so a
// crash mid-build leaves the previous generation current. Superseded database
// files are removed after the switch.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
package sqlite
