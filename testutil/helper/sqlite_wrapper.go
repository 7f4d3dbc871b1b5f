package helper

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite" // driver import

	"libcirc/lending"
	"libcirc/lending/sqlengine"
)

// SQLiteWrapper runs a circulation engine against an in-memory SQLite store
// so engine tests need no external database. The connection pool is capped
// at one connection: an in-memory SQLite database exists per connection, and
// a single connection also serializes concurrent transactions the way the
// engine expects a real store to.
type SQLiteWrapper struct {
	t      testing.TB
	db     *sql.DB
	engine *sqlengine.Engine
}

// NewSQLiteWrapper creates an in-memory store, builds an engine on it with
// the supplied options plus the SQLite dialect, and creates the schema.
func NewSQLiteWrapper(t testing.TB, options ...sqlengine.Option) *SQLiteWrapper {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	db.SetMaxOpenConns(1)

	options = append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite)}, options...)

	engine, err := sqlengine.NewEngineFromSQLDB(db, options...)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}

	if err = engine.CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	wrapper := &SQLiteWrapper{t: t, db: db, engine: engine}
	t.Cleanup(wrapper.Close)

	return wrapper
}

// Engine returns the engine under test.
func (w *SQLiteWrapper) Engine() *sqlengine.Engine {
	return w.engine
}

// DB returns the underlying database handle for direct seeding and probing.
func (w *SQLiteWrapper) DB() *sql.DB {
	return w.db
}

// Close closes the underlying database, discarding the in-memory store.
func (w *SQLiteWrapper) Close() {
	_ = w.db.Close()
}

// SeedBook inserts a book row directly and returns its id.
func (w *SQLiteWrapper) SeedBook(title, author string, status lending.BookStatus) lending.BookID {
	w.t.Helper()

	result, err := w.db.Exec(
		`INSERT INTO books (title, author, status) VALUES (?, ?, ?)`,
		title, author, status.String(),
	)
	if err != nil {
		w.t.Fatalf("seed book: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		w.t.Fatalf("seed book id: %v", err)
	}

	return lending.BookID(id)
}

// SeedOpenLoan inserts an open loan row directly and returns its id.
// The book row is not touched; pair it with a book seeded as issued.
func (w *SQLiteWrapper) SeedOpenLoan(bookID lending.BookID, memberID lending.MemberID, issueDate, dueDate lending.Date) lending.LoanID {
	w.t.Helper()

	result, err := w.db.Exec(
		`INSERT INTO loans (member_id, book_id, staff_id, issue_date, due_date, status) VALUES (?, ?, 1, ?, ?, 'open')`,
		int64(memberID), int64(bookID), issueDate.String(), dueDate.String(),
	)
	if err != nil {
		w.t.Fatalf("seed loan: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		w.t.Fatalf("seed loan id: %v", err)
	}

	return lending.LoanID(id)
}

// CountRows returns the number of rows in a table, for atomicity probes.
func (w *SQLiteWrapper) CountRows(table string) int {
	w.t.Helper()

	var count int
	if err := w.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count); err != nil {
		w.t.Fatalf("count rows in %s: %v", table, err)
	}

	return count
}

// FixedClock returns a clock pinned to the given calendar date at noon UTC.
func FixedClock(date lending.Date) func() time.Time {
	return func() time.Time {
		return date.Time().Add(12 * time.Hour)
	}
}
