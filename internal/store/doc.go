// Package store provides SQLite-backed persistence for compiled queries.
//
// Two tables:
//   - compiled_queries: the compile cache, keyed by the canonical pattern-set
//     key (ir.PatternSetKey) and tagged with the compiler version that wrote it
//   - fallbacks: an append-only log of pattern sets the compiler refused,
//     with the refusal code and reason
//
// # Ordering
//
// Rows carry a logical seq, never a wall-clock timestamp. Every listing query
// orders by seq ASC, id ASC COLLATE BINARY so results are identical across
// runs.
//
// # Encoding
//
// Parameter tables are stored as a MessagePack array of name/value pairs so
// insertion order survives the round trip. Variable mappings and column lists
// are stored as JSON text.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
