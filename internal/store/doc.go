// Package store keeps a SQLite log of test runs.
//
// Each run gets a time-sortable UUIDv7 and one row per test file, holding
// the file's outcome, its recorded errors as canonical JSON, and the report
// digest used to compare runs. The harness only ever appends here; nothing
// read back from the store influences how tests execute.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Queries order by insertion sequence, never by timestamp, so two reads of
// the same database always agree.
package store
