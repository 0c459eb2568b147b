package schema

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/dbal/dialect"
	"github.com/syssam/dbal/dialect/sql"
)

// SchemaNotFoundError is returned when the metadata of a table cannot be
// read into a TableSchema.
type SchemaNotFoundError struct {
	Table  string
	Reason string
	Err    error
}

func (e *SchemaNotFoundError) Error() string {
	msg := fmt.Sprintf("schema: table %q: %s", e.Table, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaNotFoundError) Unwrap() error { return e.Err }

// IsSchemaNotFound reports whether err is a SchemaNotFoundError.
func IsSchemaNotFound(err error) bool {
	var e *SchemaNotFoundError
	return errors.As(err, &e)
}

// inspector reads table metadata of one dialect.
type inspector interface {
	tableNames(ctx context.Context) ([]string, error)
	// inspect returns nil, nil when the table does not exist.
	inspect(ctx context.Context, table string) (*TableSchema, error)
}

// drivers opens the atlas driver of each dialect.
var drivers = map[string]func(atlas.ExecQuerier) (migrate.Driver, error){
	dialect.MySQL:    mysql.Open,
	dialect.Postgres: postgres.Open,
	dialect.SQLite:   sqlite.Open,
}

func newInspector(name string, drv dialect.ExecQuerier) (inspector, error) {
	open, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dialect.ErrUnknownDialect, name)
	}
	return &atlasInspector{
		dialect: name,
		open: func() (atlas.Inspector, error) {
			return open(execQuerier{drv})
		},
	}, nil
}

// atlasInspector reads the database through an atlas driver. The driver is
// opened on first use, since opening it queries the server version.
type atlasInspector struct {
	dialect string
	open    func() (atlas.Inspector, error)

	mu   sync.Mutex
	insp atlas.Inspector
}

func (i *atlasInspector) driver() (atlas.Inspector, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.insp == nil {
		insp, err := i.open()
		if err != nil {
			return nil, fmt.Errorf("schema: open %s inspector: %w", i.dialect, err)
		}
		i.insp = insp
	}
	return i.insp, nil
}

func (i *atlasInspector) inspectSchema(ctx context.Context, tables ...string) (*atlas.Schema, error) {
	insp, err := i.driver()
	if err != nil {
		return nil, err
	}
	s, err := insp.InspectSchema(ctx, "", &atlas.InspectOptions{Mode: atlas.InspectTables, Tables: tables})
	if atlas.IsNotExistError(err) {
		return nil, nil
	}
	return s, err
}

func (i *atlasInspector) tableNames(ctx context.Context) ([]string, error) {
	s, err := i.inspectSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: list tables: %w", err)
	}
	if s == nil {
		return nil, nil
	}
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		if i.dialect == dialect.SQLite && strings.HasPrefix(t.Name, "sqlite_") {
			continue
		}
		names = append(names, t.Name)
	}
	slices.Sort(names)
	return names, nil
}

func (i *atlasInspector) inspect(ctx context.Context, table string) (*TableSchema, error) {
	s, err := i.inspectSchema(ctx, table)
	if err != nil {
		return nil, &SchemaNotFoundError{Table: table, Reason: "inspect", Err: err}
	}
	if s == nil {
		return nil, nil
	}
	t, ok := s.Table(table)
	if !ok {
		return nil, nil
	}
	return tableSchema(i.dialect, t)
}

// execQuerier exposes a driver handle as the database/sql style querier
// atlas drivers read from.
type execQuerier struct {
	dialect.ExecQuerier
}

func (e execQuerier) QueryContext(ctx context.Context, query string, args ...any) (*stdsql.Rows, error) {
	rows := &sql.Rows{}
	if err := e.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	r, ok := rows.ColumnScanner.(*stdsql.Rows)
	if !ok {
		rows.Close()
		return nil, fmt.Errorf("schema: query returned %T, want *sql.Rows", rows.ColumnScanner)
	}
	return r, nil
}

func (e execQuerier) ExecContext(ctx context.Context, query string, args ...any) (stdsql.Result, error) {
	var res stdsql.Result
	if err := e.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

var nextval = regexp.MustCompile(`^nextval\('"?([^'"]+)"?'(?:::regclass)?\)$`)

// tableSchema converts an inspected atlas table.
func tableSchema(d string, t *atlas.Table) (*TableSchema, error) {
	ts := &TableSchema{Name: t.Name}
	for _, c := range t.Columns {
		cs, seq := columnSchema(d, t, c)
		if seq != "" {
			ts.Sequence = seq
		}
		ts.Columns = append(ts.Columns, cs)
	}
	if pk := t.PrimaryKey; pk != nil {
		cols, err := partNames(t.Name, pk, true)
		if err != nil {
			return nil, err
		}
		if err := ts.markPrimaryKey(cols); err != nil {
			return nil, err
		}
		if len(cols) == 1 && hasAttr[*sqlite.AutoIncrement](t.Attrs) {
			ts.Column(cols[0]).AutoIncrement, ts.Sequence = true, t.Name
		}
		name := pk.Name
		if name == "" {
			name = "PRIMARY"
		}
		ts.Indexes = append(ts.Indexes, &Index{Name: name, Columns: cols, Unique: true, Primary: true})
	}
	for _, idx := range t.Indexes {
		cols, err := partNames(t.Name, idx, false)
		if err != nil {
			return nil, err
		}
		ts.Indexes = append(ts.Indexes, &Index{Name: idx.Name, Columns: cols, Unique: idx.Unique})
	}
	for _, fk := range t.ForeignKeys {
		ts.ForeignKeys = append(ts.ForeignKeys, foreignKey(d, t, fk))
	}
	return ts, nil
}

// columnSchema converts c and returns the name of the sequence feeding it.
func columnSchema(d string, t *atlas.Table, c *atlas.Column) (*ColumnSchema, string) {
	cs := &ColumnSchema{Name: c.Name}
	var typ atlas.Type
	if c.Type != nil {
		cs.DBType, cs.Nullable, typ = c.Type.Raw, c.Type.Null, c.Type.Type
	}
	serial, _ := typ.(*postgres.SerialType)
	if serial != nil && cs.DBType == "" {
		cs.DBType = serial.T
	}
	cs.Type, cs.Size = normalize(d, cs.DBType)
	if cs.Size == 0 {
		switch typ := typ.(type) {
		case *atlas.StringType:
			cs.Size = typ.Size
		case *atlas.BinaryType:
			if typ.Size != nil {
				cs.Size = *typ.Size
			}
		}
		if cs.Size > 0 && !strings.Contains(cs.DBType, "(") {
			cs.DBType = fmt.Sprintf("%s(%d)", cs.DBType, cs.Size)
		}
	}
	switch x := c.Default.(type) {
	case *atlas.Literal:
		cs.Default = &x.V
	case *atlas.RawExpr:
		cs.Default = &x.X
	}
	var seq string
	switch {
	case cs.Default != nil && nextval.MatchString(*cs.Default):
		seq = nextval.FindStringSubmatch(*cs.Default)[1]
		cs.AutoIncrement, cs.Default = true, nil
	case serial != nil:
		cs.AutoIncrement = true
		seq = serial.SequenceName
		if seq == "" {
			seq = t.Name + "_" + c.Name + "_seq"
		}
	case hasAttr[*postgres.Identity](c.Attrs), hasAttr[*mysql.AutoIncrement](c.Attrs):
		cs.AutoIncrement = true
	case hasAttr[*sqlite.AutoIncrement](c.Attrs):
		cs.AutoIncrement = true
		seq = t.Name
	}
	return cs, seq
}

// hasAttr reports whether attrs holds an attribute of type T.
func hasAttr[T any](attrs []atlas.Attr) bool {
	for _, a := range attrs {
		if _, ok := a.(T); ok {
			return true
		}
	}
	return false
}

// partNames returns the columns of an index. Expression parts are kept as
// their SQL text, except in a primary key.
func partNames(table string, idx *atlas.Index, primary bool) ([]string, error) {
	names := make([]string, 0, len(idx.Parts))
	for _, p := range idx.Parts {
		switch {
		case p.C != nil:
			names = append(names, p.C.Name)
		case primary:
			return nil, &SchemaNotFoundError{Table: table, Reason: "primary key " + idx.Name + " holds an expression"}
		default:
			if x, ok := p.X.(*atlas.RawExpr); ok {
				names = append(names, x.X)
			}
		}
	}
	return names, nil
}

func foreignKey(d string, t *atlas.Table, fk *atlas.ForeignKey) *ForeignKey {
	f := &ForeignKey{
		Name:     fk.Symbol,
		OnUpdate: string(fk.OnUpdate),
		OnDelete: string(fk.OnDelete),
	}
	// SQLite reports unnamed constraints by their position.
	if _, err := strconv.Atoi(fk.Symbol); err == nil && d == dialect.SQLite {
		f.Name = "fk_" + t.Name + "_" + fk.Symbol
	}
	if fk.RefTable != nil {
		f.RefTable = fk.RefTable.Name
	}
	for _, c := range fk.Columns {
		f.Columns = append(f.Columns, c.Name)
	}
	for _, c := range fk.RefColumns {
		f.RefColumns = append(f.RefColumns, c.Name)
	}
	return f
}
