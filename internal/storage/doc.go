// Package storage persists tasks, their reminder state and the fire audit log.
//
// Drivers:
//   - file:   JSON snapshot (temp file + rename) guarded by a lock file, JSONL audit log
//   - sqlite: modernc.org/sqlite database with WAL and transactional update-by-id
//   - memory: process-local, used by tests and dry runs
//
// Every driver serialises UpdateTask per id so a reminder changed from the CLI
// and a reminder being rescheduled by the service never lose each other's write.
package storage
