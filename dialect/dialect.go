package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ErrUnknownDialect is returned when a dialect name or DSN scheme is not recognized.
var ErrUnknownDialect = errors.New("dialect: unknown dialect")

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for dbal connections.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// schemes maps PDO-style DSN prefixes to dialect names.
var schemes = map[string]string{
	"mysql":    MySQL,
	"pgsql":    Postgres,
	"postgres": Postgres,
	"sqlite":   SQLite,
}

// FromDSN splits a PDO-style DSN ("mysql:host=...;dbname=...") into the
// dialect name it selects and the remainder after the scheme separator.
func FromDSN(dsn string) (name, rest string, err error) {
	scheme, rest, ok := strings.Cut(dsn, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: missing scheme in dsn %q", ErrUnknownDialect, dsn)
	}
	name, ok = schemes[strings.ToLower(strings.TrimSpace(scheme))]
	if !ok {
		return "", "", fmt.Errorf("%w: scheme %q", ErrUnknownDialect, scheme)
	}
	return name, rest, nil
}

// Valid reports whether name is one of the supported dialects.
func Valid(name string) bool {
	switch name {
	case MySQL, SQLite, Postgres:
		return true
	}
	return false
}
