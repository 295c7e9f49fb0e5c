// Package store provides SQLite-backed run history.
//
// Every run written through WriteRun produces:
//   - Runs: one row with the run's identity, mode, counts and exit status
//   - Outcomes: one row per report entry, keyed by (run_id, seq)
//
// # Ordering
//
//   - Outcomes are read back ORDER BY seq, which is registration order
//   - Runs are listed ORDER BY started_at DESC, id DESC; UUIDv7 IDs break
//     ties between runs started in the same nanosecond
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
