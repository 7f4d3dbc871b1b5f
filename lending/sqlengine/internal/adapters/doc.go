// Package adapters provides database adapter implementations for the SQL
// lending engine.
//
// The adapter pattern lets the engine work with multiple database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters expose equivalent behavior
// through the DBAdapter interface, including transaction support, which the
// engine relies on for its atomic issue/return operations.
package adapters
