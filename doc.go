// Package dbal runs SQL produced by the dialect/sql builders against MySQL,
// PostgreSQL and SQLite.
//
// A Connection owns one database handle, the Adapter of its dialect, a query
// Builder and a lazily created schema cache:
//
//	conn, err := dbal.Open(dbal.Config{DSN: "sqlite:app.db"})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	text, params, err := conn.QueryBuilder().
//		From("{{%users}}").
//		Filter(map[string]any{"age__gte": 18}).
//		OrderBy("-created_at").
//		Limit(10).
//		Build()
//	if err != nil {
//		return err
//	}
//	rows, err := conn.CreateCommand(text, params).QueryAll(ctx)
//
// Statements use named placeholders (":name"). Commands rebind them to the
// positional form of the driver before execution.
package dbal
