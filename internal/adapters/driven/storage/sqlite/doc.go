// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements several ports
// through a single database connection:
//
//   - ChunkStore: filtered reads and similarity search over indexed chunks
//   - ChunkWriter: chunk upserts and document deletion
//   - DocumentCatalog: per-user document listings for @mention resolution
//   - MetricsSink and MetricsReader: the rag_metrics request log
//
// # Search
//
// Chunks are mirrored into an FTS5 table and ranked by bm25. When the store
// is given an embedding service and the candidate chunks carry vectors,
// similarity search ranks by cosine instead.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.arah/data/arah.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
