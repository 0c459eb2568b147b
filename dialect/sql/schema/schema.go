// Package schema reads live table metadata into TableSchema descriptors and
// caches them per connection.
//
// Cached entries are never expired by time. They are dropped by Invalidate,
// typically right after a DDL statement on the table ran, or bypassed with
// the refresh flag of TableSchema.
package schema

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/dbal/dialect/sql"
)

// Schema introspects the database bound to an adapter.
type Schema struct {
	adapter *sql.Adapter
	insp    inspector
	tables  map[string]*TableSchema
	log     *slog.Logger
}

// Option configures a Schema.
type Option func(*Schema)

// WithLogger sets the logger of the schema.
func WithLogger(l *slog.Logger) Option {
	return func(s *Schema) {
		s.log = l
	}
}

// New returns a Schema reading through the adapter's driver handle.
func New(a *sql.Adapter, opts ...Option) (*Schema, error) {
	h, err := a.Handle()
	if err != nil {
		return nil, err
	}
	insp, err := newInspector(a.Dialect(), h)
	if err != nil {
		return nil, err
	}
	s := &Schema{
		adapter: a,
		insp:    insp,
		tables:  make(map[string]*TableSchema),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Adapter returns the adapter of the schema.
func (s *Schema) Adapter() *sql.Adapter { return s.adapter }

// TableSchema returns the metadata of the named table, or nil if the table
// does not exist. The cached entry is used unless refresh is set. Names may
// use the "%" table prefix marker.
func (s *Schema) TableSchema(ctx context.Context, name string, refresh bool) (*TableSchema, error) {
	name = s.adapter.TableName(name)
	if t, ok := s.tables[name]; ok && !refresh {
		return t, nil
	}
	t, err := s.insp.inspect(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		delete(s.tables, name)
		s.log.DebugContext(ctx, "schema: table not found", "table", name)
		return nil, nil
	}
	s.tables[name] = t
	s.log.DebugContext(ctx, "schema: table loaded", "table", name, "columns", len(t.Columns), "indexes", len(t.Indexes))
	return t, nil
}

// TableNames returns the names of all base tables.
func (s *Schema) TableNames(ctx context.Context) ([]string, error) {
	return s.insp.tableNames(ctx)
}

// TableSchemas returns the metadata of every table.
func (s *Schema) TableSchemas(ctx context.Context, refresh bool) ([]*TableSchema, error) {
	names, err := s.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]*TableSchema, 0, len(names))
	for _, name := range names {
		t, err := s.TableSchema(ctx, name, refresh)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// FindUniqueIndexes returns the unique indexes of t, primary key excluded,
// keyed by index name.
func (s *Schema) FindUniqueIndexes(t *TableSchema) map[string][]string {
	found := make(map[string][]string)
	for _, idx := range t.Indexes {
		if idx.Unique && !idx.Primary {
			found[idx.Name] = slices.Clone(idx.Columns)
		}
	}
	return found
}

// ColumnType maps an abstract column type to the native one.
func (s *Schema) ColumnType(abstract string) (string, error) {
	return s.adapter.ColumnType(abstract)
}

// Invalidate drops the cached entries of the given tables.
func (s *Schema) Invalidate(tables ...string) {
	for _, name := range tables {
		delete(s.tables, s.adapter.TableName(name))
	}
}

// InvalidateAll empties the cache.
func (s *Schema) InvalidateAll() {
	clear(s.tables)
}

// Cached returns the names of the cached tables.
func (s *Schema) Cached() []string {
	return slices.Sorted(maps.Keys(s.tables))
}

// Tables returns the cached tables ordered by name.
func (s *Schema) Tables() []*TableSchema {
	tables := make([]*TableSchema, 0, len(s.tables))
	for _, name := range s.Cached() {
		tables = append(tables, s.tables[name])
	}
	return tables
}

// snapshot is the encoded form of the cache.
type snapshot struct {
	Dialect string                  `msgpack:"dialect"`
	Tables  map[string]*TableSchema `msgpack:"tables"`
}

// Export writes the cached tables to w.
func (s *Schema) Export(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(snapshot{Dialect: s.adapter.Dialect(), Tables: s.tables}); err != nil {
		return fmt.Errorf("schema: export: %w", err)
	}
	return nil
}

// Import loads tables written by Export into the cache. Imported entries
// behave like cached ones: TableSchema with refresh still reads the database.
func (s *Schema) Import(r io.Reader) error {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("schema: import: %w", err)
	}
	if snap.Dialect != s.adapter.Dialect() {
		return fmt.Errorf("schema: import: snapshot of dialect %q into %q", snap.Dialect, s.adapter.Dialect())
	}
	for name, t := range snap.Tables {
		if t != nil {
			s.tables[name] = t
		}
	}
	s.log.Debug("schema: snapshot imported", "tables", len(snap.Tables))
	return nil
}
