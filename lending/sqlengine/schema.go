package sqlengine

import (
	"context"
	"errors"
	"fmt"

	"libcirc/lending"
)

// CreateSchema creates the books and loans tables and their indexes if they
// do not exist yet. The loans table carries a partial unique index on
// (book_id) for open loans, so the store itself rejects a second open loan
// for the same copy even if a bug slipped past the conditional update guard.
func (e *Engine) CreateSchema(ctx context.Context) error {
	for _, statement := range e.schemaStatements() {
		if _, err := e.db.Exec(ctx, statement); err != nil {
			e.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, statement)
			e.recordErrorMetrics(ctx, logActionSchema, errorTypeExec)

			return errors.Join(lending.ErrOperationFailed, err)
		}
	}

	return nil
}

// DropSchema drops the books and loans tables. Intended for tests and for
// the initdb command's reset flag.
func (e *Engine) DropSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, e.tables.Loans),
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, e.tables.Books),
	}

	for _, statement := range statements {
		if _, err := e.db.Exec(ctx, statement); err != nil {
			return errors.Join(lending.ErrOperationFailed, err)
		}
	}

	return nil
}

func (e *Engine) schemaStatements() []string {
	booksDDL := `CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	isbn TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'available'
)`

	loansDDL := `CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	member_id BIGINT NOT NULL,
	book_id BIGINT NOT NULL REFERENCES %s (id),
	staff_id BIGINT NOT NULL,
	issue_date DATE NOT NULL,
	due_date DATE NOT NULL,
	return_date DATE,
	fine_cents BIGINT NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'open'
)`

	if e.dialect == DialectSQLite {
		booksDDL = `CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	isbn TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'available'
)`

		loansDDL = `CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	member_id INTEGER NOT NULL,
	book_id INTEGER NOT NULL REFERENCES %s (id),
	staff_id INTEGER NOT NULL,
	issue_date TEXT NOT NULL,
	due_date TEXT NOT NULL,
	return_date TEXT,
	fine_cents INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'open'
)`
	}

	return []string{
		fmt.Sprintf(booksDDL, e.tables.Books),
		fmt.Sprintf(loansDDL, e.tables.Loans, e.tables.Books),
		fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %s_isbn_key ON %s (isbn) WHERE isbn <> ''`,
			e.tables.Books, e.tables.Books),
		fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_book ON %s (book_id) WHERE status = 'open'`,
			e.tables.Loans, e.tables.Loans),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_member_idx ON %s (member_id)`,
			e.tables.Loans, e.tables.Loans),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_due_date_idx ON %s (due_date) WHERE status = 'open'`,
			e.tables.Loans, e.tables.Loans),
	}
}
