// Package store provides persistent storage for users and tasks.
//
// # Architecture
//
// The package exposes two narrow interfaces:
//
//   - UserStore: idempotent upsert of authenticated Telegram users
//   - TaskStore: owner-scoped create, list, update, toggle and delete of tasks
//
// SQLStore implements both on database/sql. MockStore is an in-memory
// implementation for unit tests.
//
// # Backends
//
// Open picks the driver from the target string:
//
//   - postgres://... or postgresql://...: PostgreSQL via github.com/lib/pq
//   - sqlite://path, file:path, a bare path or :memory:: SQLite via modernc.org/sqlite
//
// SQLite connections are opened with these pragmas on every pooled connection:
//
//	PRAGMA foreign_keys=ON;
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// The schema is created on open. Queries are written with ? placeholders and
// rebound to $n for PostgreSQL.
//
// # Atomicity
//
// Every write is a single SQL statement, so no operation can leave a row half
// written. Task mutations filter on both id and owner_id in the same statement.
//
// # Error Handling
//
//   - ErrNotFound: the task does not exist or belongs to another owner
//   - ErrInvalidInput: blank text, invalid date, or an owner that never authenticated
//   - ErrUnavailable: timeout, cancellation, lost connection or lock contention;
//     safe to retry
//
// All methods accept context.Context and run under the configured query timeout.
package store
