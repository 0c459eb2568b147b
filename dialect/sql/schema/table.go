package schema

import "slices"

// TableSchema describes a table as reported by the database.
type TableSchema struct {
	Name        string          `msgpack:"name"`
	Columns     []*ColumnSchema `msgpack:"columns"`
	Indexes     []*Index        `msgpack:"indexes"`
	ForeignKeys []*ForeignKey   `msgpack:"foreign_keys"`
	// PrimaryKey holds the primary key columns in key order.
	PrimaryKey []string `msgpack:"primary_key"`
	// Sequence is the sequence backing the serial primary key, if any.
	Sequence string `msgpack:"sequence,omitempty"`
}

// ColumnSchema describes one column.
type ColumnSchema struct {
	Name string `msgpack:"name"`
	// Type is the abstract type ("string", "int", "bool", ...).
	Type string `msgpack:"type"`
	// DBType is the native type as reported by the database.
	DBType        string  `msgpack:"db_type"`
	Size          int     `msgpack:"size,omitempty"`
	Nullable      bool    `msgpack:"nullable"`
	Default       *string `msgpack:"default,omitempty"`
	PrimaryKey    bool    `msgpack:"primary_key"`
	AutoIncrement bool    `msgpack:"auto_increment"`
}

// Index describes a table index.
type Index struct {
	Name    string   `msgpack:"name"`
	Columns []string `msgpack:"columns"`
	Unique  bool     `msgpack:"unique"`
	Primary bool     `msgpack:"primary"`
}

// ForeignKey describes a foreign key constraint.
type ForeignKey struct {
	Name       string   `msgpack:"name"`
	Columns    []string `msgpack:"columns"`
	RefTable   string   `msgpack:"ref_table"`
	RefColumns []string `msgpack:"ref_columns"`
	OnUpdate   string   `msgpack:"on_update,omitempty"`
	OnDelete   string   `msgpack:"on_delete,omitempty"`
}

// Column returns the named column or nil.
func (t *TableSchema) Column(name string) *ColumnSchema {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns the column names in table order.
func (t *TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the named index or nil.
func (t *TableSchema) Index(name string) *Index {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx
		}
	}
	return nil
}

// IndexNames returns the names of the plain, non-unique indexes.
func (t *TableSchema) IndexNames() []string {
	return t.indexNames(func(idx *Index) bool { return !idx.Unique && !idx.Primary })
}

// UniqueIndexNames returns the names of the unique indexes, primary key
// excluded.
func (t *TableSchema) UniqueIndexNames() []string {
	return t.indexNames(func(idx *Index) bool { return idx.Unique && !idx.Primary })
}

func (t *TableSchema) indexNames(keep func(*Index) bool) []string {
	var names []string
	for _, idx := range t.Indexes {
		if keep(idx) {
			names = append(names, idx.Name)
		}
	}
	slices.Sort(names)
	return names
}

// ForeignKeyNames returns the foreign key constraint names.
func (t *TableSchema) ForeignKeyNames() []string {
	names := make([]string, len(t.ForeignKeys))
	for i, fk := range t.ForeignKeys {
		names[i] = fk.Name
	}
	slices.Sort(names)
	return names
}

// markPrimaryKey sets PrimaryKey from cols and flags the matching columns.
func (t *TableSchema) markPrimaryKey(cols []string) error {
	t.PrimaryKey = cols
	for _, name := range cols {
		c := t.Column(name)
		if c == nil {
			return &SchemaNotFoundError{Table: t.Name, Reason: "primary key column " + name + " not found"}
		}
		c.PrimaryKey, c.Nullable = true, false
	}
	return nil
}
