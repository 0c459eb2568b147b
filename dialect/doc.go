// Package dialect provides database dialect abstraction for dbal.
//
// This package defines the interfaces and types shared by the SQL builder,
// the schema inspectors and the connection layer, allowing dbal to support
// PostgreSQL, MySQL and SQLite from a single code path.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # DSN Schemes
//
// Connections are configured with PDO-style DSNs, and the dialect is derived
// from the scheme:
//
//	mysql:host=localhost;dbname=app     -> dialect.MySQL
//	pgsql:host=localhost;dbname=app     -> dialect.Postgres
//	sqlite:/var/lib/app.db              -> dialect.SQLite
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: driver wrapper, dialect adapters, lookups, query and DDL builders
//   - dialect/sql/schema: schema introspection and caching
package dialect
