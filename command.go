package dbal

import (
	"context"
	"maps"

	"github.com/jmoiron/sqlx"

	"github.com/syssam/dbal/dialect"
	"github.com/syssam/dbal/dialect/sql"
)

// Command is one statement with its named parameters, ready to run on a
// Connection or a Tx.
type Command struct {
	conn        *Connection
	eq          dialect.ExecQuerier
	tx          *Tx
	text        string
	params      sql.Params
	invalidates []string
}

func newCommand(c *Connection, eq dialect.ExecQuerier, text string, params sql.Params) *Command {
	return &Command{conn: c, eq: eq, text: text, params: maps.Clone(params)}
}

// SQL returns the statement text as given.
func (c *Command) SQL() string { return c.text }

// Params returns the named parameters.
func (c *Command) Params() sql.Params { return c.params }

// BindValue sets the named parameter. name may be given with or without the
// leading colon.
func (c *Command) BindValue(name string, v any) *Command {
	if c.params == nil {
		c.params = sql.Params{}
	}
	if len(name) > 0 && name[0] == ':' {
		name = name[1:]
	}
	c.params[name] = v
	return c
}

// Invalidates names the tables whose schema cache entries are dropped once
// the command executed successfully. DDL commands should list the tables
// they change.
func (c *Command) Invalidates(tables ...string) *Command {
	c.invalidates = append(c.invalidates, tables...)
	return c
}

// Bind resolves the portable quoting of the statement and rebinds its named
// placeholders to the positional markers of the dialect. Colons inside
// quoted literals and identifiers, comments and "::" casts are left alone.
func (c *Command) Bind() (string, []any, error) {
	text := c.conn.adapter.QuoteSQL(c.text)
	bound, args, err := sql.BindNamed(c.conn.Dialect(), text, c.params)
	if err != nil {
		return "", nil, &BindError{SQL: text, Err: err}
	}
	if args == nil {
		args = []any{}
	}
	return bound, args, nil
}

// Execute runs a statement that returns no rows and reports the number of
// affected rows.
func (c *Command) Execute(ctx context.Context) (int64, error) {
	text, args, err := c.Bind()
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if err := c.eq.Exec(ctx, text, args, &res); err != nil {
		return 0, &ExecutionError{SQL: text, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some statements, DDL in particular, have no row count.
		n = 0
	}
	if c.tx != nil {
		c.tx.invalidates = append(c.tx.invalidates, c.invalidates...)
	} else {
		c.conn.invalidate(c.invalidates)
	}
	return n, nil
}

// query runs the statement and calls scan for every row.
func (c *Command) query(ctx context.Context, scan func(*sql.Rows) error) error {
	text, args, err := c.Bind()
	if err != nil {
		return err
	}
	rows := &sql.Rows{}
	if err := c.eq.Query(ctx, text, args, rows); err != nil {
		return &ExecutionError{SQL: text, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return &ExecutionError{SQL: text, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return &ExecutionError{SQL: text, Err: err}
	}
	return nil
}

// QueryAll returns every row keyed by column name.
func (c *Command) QueryAll(ctx context.Context) ([]map[string]any, error) {
	var all []map[string]any
	err := c.query(ctx, func(rows *sql.Rows) error {
		row, err := mapRow(rows)
		if err != nil {
			return err
		}
		all = append(all, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// QueryOne returns the first row, or nil if the statement returned none.
func (c *Command) QueryOne(ctx context.Context) (map[string]any, error) {
	var one map[string]any
	err := c.query(ctx, func(rows *sql.Rows) (err error) {
		if one == nil {
			one, err = mapRow(rows)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return one, nil
}

// QueryScalar returns the first column of the first row, or nil if the
// statement returned no row.
func (c *Command) QueryScalar(ctx context.Context) (any, error) {
	var (
		v     any
		found bool
	)
	err := c.query(ctx, func(rows *sql.Rows) error {
		if found {
			return nil
		}
		values, err := scanValues(rows)
		if err != nil {
			return err
		}
		v, found = values[0], true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// QueryColumn returns the first column of every row.
func (c *Command) QueryColumn(ctx context.Context) ([]any, error) {
	var column []any
	err := c.query(ctx, func(rows *sql.Rows) error {
		values, err := scanValues(rows)
		if err != nil {
			return err
		}
		column = append(column, values[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return column, nil
}

func mapRow(rows *sql.Rows) (map[string]any, error) {
	row := make(map[string]any)
	if err := sqlx.MapScan(rows, row); err != nil {
		return nil, err
	}
	for k, v := range row {
		row[k] = normalizeValue(v)
	}
	return row, nil
}

// scanValues scans the current row in column order.
func scanValues(rows *sql.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = normalizeValue(v)
	}
	return values, nil
}

// normalizeValue converts the []byte values text columns are reported as by
// some drivers to strings.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
