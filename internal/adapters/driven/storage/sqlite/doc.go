// Package sqlite provides a SQLite-based implementation of the document
// and chunk store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Both stores share one database:
//
//   - DocumentStore: uploaded documents and their cleaned text
//   - ChunkStore: chunk text and float32 embedding blobs, ranked by exact
//     cosine similarity in Go
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.askdoc/data/askdoc.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. A chunk replacement is a single transaction.
package sqlite
