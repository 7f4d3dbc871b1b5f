package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"libcirc/lending"
	"libcirc/lending/sqlengine/internal/adapters"
)

// Dialect selects the SQL flavor the engine generates. The engine speaks
// PostgreSQL in production and SQLite for embedded or test deployments.
type Dialect string

const (
	// DialectPostgres generates PostgreSQL-flavored SQL. This is the default.
	DialectPostgres Dialect = "postgres"

	// DialectSQLite generates SQLite-flavored SQL.
	DialectSQLite Dialect = "sqlite3"
)

const (
	defaultBooksTableName = "books"
	defaultLoansTableName = "loans"

	colID         = "id"
	colTitle      = "title"
	colAuthor     = "author"
	colISBN       = "isbn"
	colCategory   = "category"
	colStatus     = "status"
	colMemberID   = "member_id"
	colBookID     = "book_id"
	colStaffID    = "staff_id"
	colIssueDate  = "issue_date"
	colDueDate    = "due_date"
	colReturnDate = "return_date"
	colFineCents  = "fine_cents"
)

var (
	// ErrNilDatabaseConnection occurs when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName occurs when an option supplies an empty table name.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrUnknownDialect occurs when an option supplies a dialect the engine does not speak.
	ErrUnknownDialect = errors.New("unknown sql dialect")
)

// TableNames holds the names of the two tables the engine owns.
type TableNames struct {
	Books string
	Loans string
}

// Engine executes the circulation state transitions against a relational
// database. Each transition runs in a single transaction: the loan row and
// the book status row change together or not at all. Book status is guarded
// by conditional updates, so concurrent transitions on the same book resolve
// to exactly one winner without advisory locks.
type Engine struct {
	db               adapters.DBAdapter
	dialect          Dialect
	tables           TableNames
	clock            func() time.Time
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metricsCollector lending.MetricsCollector
	tracingCollector lending.TracingCollector
}

// NewEngineFromPGXPool creates a new Engine using a pgx Pool with optional configuration.
func NewEngineFromPGXPool(db *pgxpool.Pool, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewPGXAdapter(db), options...)
}

// NewEngineFromSQLDB creates a new Engine using a sql.DB with optional configuration.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLAdapter(db), options...)
}

// NewEngineFromSQLX creates a new Engine using a sqlx.DB with optional configuration.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newEngine(adapters.NewSQLXAdapter(db), options...)
}

func newEngine(db adapters.DBAdapter, options ...Option) (*Engine, error) {
	engine := &Engine{
		db:      db,
		dialect: DialectPostgres,
		tables: TableNames{
			Books: defaultBooksTableName,
			Loans: defaultLoansTableName,
		},
		clock: time.Now,
	}

	for _, option := range options {
		if err := option(engine); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// Today returns the current calendar date as seen by the engine's clock.
func (e *Engine) Today() lending.Date {
	return lending.DateOf(e.clock())
}

// builder returns a goqu dialect wrapper matching the configured dialect.
func (e *Engine) builder() goqu.DialectWrapper {
	return goqu.Dialect(string(e.dialect))
}

// dbRunner is the subset of operations shared by the pool adapter and an
// open transaction. Read helpers take it so they work in both contexts.
type dbRunner interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}
