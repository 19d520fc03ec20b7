// Package store provides SQLite-backed storage for plans and the pipeline
// runs that produced them.
//
// The store is an append-only archive with two tables:
//   - plans: canonical plan documents keyed by fingerprint
//   - runs: one record per pipeline run, linking an input plan to its output
//
// # Patterns
//
// Content addressing
//   - A plan's key is explain.Fingerprint of the plan
//   - Writing the same plan twice is a no-op
//
// Logical ordering
//   - Runs are ordered by seq, assigned on insert, never by wall time
//   - Queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
