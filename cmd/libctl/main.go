// Command libctl is the operator CLI for the circulation store: schema
// management, catalog and account seeding, and issue/return from the shell.
// It speaks to postgres or to a local sqlite file, selected by --driver.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite" // sqlite driver

	"libcirc/internal/accounts"
	"libcirc/internal/catalog"
	"libcirc/internal/reporting"
	"libcirc/lending/sqlengine"
)

type toolbox struct {
	db       *sqlx.DB
	engine   *sqlengine.Engine
	catalog  *catalog.Store
	accounts *accounts.Store
	reports  *reporting.Store
	serialID string
}

func main() {
	var (
		driver string
		dsn    string
	)

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Operate the library circulation store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&driver, "driver", "postgres", "database driver: postgres or sqlite")
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "database DSN (postgres URL or sqlite file path)")

	open := func() (*toolbox, error) {
		return openToolbox(driver, dsn)
	}

	root.AddCommand(
		newInitDBCommand(open),
		newAddBookCommand(open),
		newAddUserCommand(open),
		newIssueCommand(open),
		newReturnCommand(open),
		newListBooksCommand(open),
		newOverdueCommand(open),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openToolbox(driver, dsn string) (*toolbox, error) {
	if dsn == "" {
		return nil, fmt.Errorf("--dsn is required")
	}

	var (
		driverName string
		dialect    sqlengine.Dialect
		serialID   string
	)

	switch driver {
	case "postgres":
		driverName = "postgres"
		dialect = sqlengine.DialectPostgres
		serialID = accounts.SerialIDPostgres
	case "sqlite":
		driverName = "sqlite"
		dialect = sqlengine.DialectSQLite
		serialID = accounts.SerialIDSQLite
	default:
		return nil, fmt.Errorf("unknown driver %q, want postgres or sqlite", driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		// sqlite serializes writers; a single connection avoids busy errors.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	engine, err := sqlengine.NewEngineFromSQLX(db, sqlengine.WithDialect(dialect))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &toolbox{
		db:       db,
		engine:   engine,
		catalog:  catalog.NewStore(db, engine),
		accounts: accounts.NewStore(db, engine),
		reports:  reporting.NewStore(db),
		serialID: serialID,
	}, nil
}

func (t *toolbox) close() {
	_ = t.db.Close()
}

func newInitDBCommand(open func() (*toolbox, error)) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create the circulation and users schemas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tb, err := open()
			if err != nil {
				return err
			}
			defer tb.close()

			ctx := cmd.Context()

			if reset {
				if err = tb.engine.DropSchema(ctx); err != nil {
					return err
				}
				if _, err = tb.db.ExecContext(ctx, `DROP TABLE IF EXISTS users`); err != nil {
					return err
				}
			}

			if err = tb.engine.CreateSchema(ctx); err != nil {
				return err
			}

			if err = tb.accounts.CreateSchema(ctx, tb.serialID); err != nil {
				return err
			}

			fmt.Println("schema ready")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "drop all tables first, discarding every record")

	return cmd
}

func run(open func() (*toolbox, error), fn func(ctx context.Context, tb *toolbox) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		tb, err := open()
		if err != nil {
			return err
		}
		defer tb.close()

		return fn(cmd.Context(), tb)
	}
}
