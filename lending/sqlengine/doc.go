// Package sqlengine implements the circulation state transitions on top of a
// relational database, speaking PostgreSQL or SQLite through a pluggable
// database adapter (pgx pool, database/sql, or sqlx).
//
// The engine owns two tables, books and loans, and performs each transition
// (issue, return) inside a single transaction. Correctness under concurrency
// relies on conditional updates rather than locks: the losing side of a race
// observes zero affected rows and maps that to a conflict error. A partial
// unique index on open loans backs the "at most one open loan per copy"
// invariant in the store itself.
//
// Decision logic lives in the parent lending package as pure functions; this
// package contributes only storage, transactions, and observability.
package sqlengine
