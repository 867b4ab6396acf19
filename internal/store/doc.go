// Package store provides SQLite-backed local state for snrecon.
//
// Two tables:
//   - kv: the string key/value primitive used for leftover serials
//     ("leftover-serials:<scope>") and persisted undo snapshots
//     ("undo:<scope>")
//   - product_metadata: a cache of resolved product references
//
// Writes are upserts (ON CONFLICT DO UPDATE), so repeating one is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// MemoryKV offers the same key/value contract without a database, for
// tests and for running when the database cannot be opened.
package store
