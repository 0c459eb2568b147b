// Package sql generates dialect-specific SQL for MySQL, PostgreSQL and SQLite
// and wraps database/sql handles in the dialect.Driver contract.
//
// # Adapters
//
// An Adapter holds the syntax of one dialect: identifier quoting, type
// mapping, pagination and the few DDL statements that differ between
// databases. Syntax methods never touch the database.
//
//	a, _ := sql.NewAdapter(dialect.Postgres, sql.WithTablePrefix("app_"))
//	a.QuoteSQL("SELECT [[id]] FROM {{%users}}") // SELECT "id" FROM "app_users"
//	a.LimitOffset(0, 20)                        // LIMIT ALL OFFSET 20
//	a.ColumnType("string(64) NOT NULL")         // varchar(64) NOT NULL
//
// # Queries
//
// Query values are immutable. Each fluent method returns a new Query, so a
// base query may be extended in several directions and built repeatedly.
//
//	b, _ := sql.NewFactory(a).Builder()
//	q := b.Select("id", "name").From("users u").
//		Where(sql.EQ("status", "active")).
//		Filter(map[string]any{"age__gte": 18}).
//		OrderBy("-created_at").
//		Limit(10)
//	query, params, err := q.Build()
//
// Placeholders are named (":status", ":age") and unique within one statement.
// Binding them to driver placeholders is left to the executor.
//
// # Lookups
//
// Filter keys have the form "field__lookup". Supported lookups are exact,
// isnull, in, gt, gte, lt, lte, contains, startswith, endswith and range.
// Other recognized lookups produce no condition.
//
// # DDL
//
// Builder methods such as CreateTable, AddColumn or DropPrimaryKey return the
// statement text only. Statements SQLite cannot express fail with
// ErrNotSupported.
package sql
