// Package postgreswrapper runs the circulation engine against a real
// postgres instance for integration tests. The connection comes from
// LIBCIRC_TEST_DATABASE_URL; tests are skipped when it is not set, so the
// default test run stays hermetic on SQLite.
package postgreswrapper

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // postgres driver for the sqldb adapter variant

	"libcirc/lending/sqlengine"
)

// Adapter type constants, selected via the ADAPTER_TYPE environment variable.
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
)

const dsnEnvVar = "LIBCIRC_TEST_DATABASE_URL"

// Wrapper abstracts over the database adapter variants under test.
type Wrapper interface {
	Engine() *sqlengine.Engine
	Close()
}

// PGXPoolWrapper runs the engine on a pgx connection pool.
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	engine *sqlengine.Engine
}

func (w *PGXPoolWrapper) Engine() *sqlengine.Engine {
	return w.engine
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper runs the engine on a database/sql handle.
type SQLDBWrapper struct {
	db     *sql.DB
	engine *sqlengine.Engine
}

func (w *SQLDBWrapper) Engine() *sqlengine.Engine {
	return w.engine
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close()
}

// CreateWrapper connects to the test database and creates the circulation
// schema, picking the adapter from ADAPTER_TYPE (pgxpool by default). The
// test is skipped when no test database is configured.
func CreateWrapper(t testing.TB, options ...sqlengine.Option) Wrapper {
	t.Helper()

	dsn := os.Getenv(dsnEnvVar)
	if dsn == "" {
		t.Skipf("set %s to run postgres integration tests", dsnEnvVar)
	}

	ctx := context.Background()

	var wrapper Wrapper

	switch adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE")); adapterType {
	case typePGXPool, "":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			t.Fatalf("connect to postgres: %v", err)
		}

		engine, err := sqlengine.NewEngineFromPGXPool(pool, options...)
		if err != nil {
			t.Fatalf("create engine: %v", err)
		}

		wrapper = &PGXPoolWrapper{pool: pool, engine: engine}

	case typeSQLDB:
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}

		engine, err := sqlengine.NewEngineFromSQLDB(db, options...)
		if err != nil {
			t.Fatalf("create engine: %v", err)
		}

		wrapper = &SQLDBWrapper{db: db, engine: engine}

	default:
		t.Fatalf("unsupported adapter type from env: %s", adapterType)
	}

	if err := wrapper.Engine().CreateSchema(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	t.Cleanup(wrapper.Close)

	return wrapper
}

// SeedBook inserts an available book row directly and returns its id.
func SeedBook(t testing.TB, wrapper Wrapper, title, author string) int64 {
	t.Helper()

	query := `INSERT INTO books (title, author, status) VALUES ($1, $2, 'available') RETURNING id`

	var (
		id  int64
		err error
	)

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		err = w.pool.QueryRow(context.Background(), query, title, author).Scan(&id)
	case *SQLDBWrapper:
		err = w.db.QueryRow(query, title, author).Scan(&id)
	default:
		t.Fatalf("unsupported wrapper type: %T", w)
	}

	if err != nil {
		t.Fatalf("seed book: %v", err)
	}

	return id
}

// CleanUp empties the circulation tables so tests start from a blank library.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	query := `TRUNCATE TABLE loans, books RESTART IDENTITY`

	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err = w.pool.Exec(context.Background(), query)
	case *SQLDBWrapper:
		_, err = w.db.Exec(query)
	default:
		t.Fatalf("unsupported wrapper type: %T", w)
	}

	if err != nil {
		t.Fatalf("clean up circulation tables: %v", err)
	}
}
