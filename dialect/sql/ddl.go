package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/dbal/dialect"
)

// ColumnSpec is one entry of a CREATE TABLE definition. Type is an abstract
// column type such as "string(64) NOT NULL". An entry with an empty Name is
// written verbatim, e.g. a table constraint "PRIMARY KEY (a, b)".
type ColumnSpec struct {
	Name string
	Type string
}

// ForeignKeyAction is a referential action of a foreign key.
type ForeignKeyAction string

// Referential actions.
const (
	NoAction   ForeignKeyAction = "NO ACTION"
	Restrict   ForeignKeyAction = "RESTRICT"
	Cascade    ForeignKeyAction = "CASCADE"
	SetNull    ForeignKeyAction = "SET NULL"
	SetDefault ForeignKeyAction = "SET DEFAULT"
)

// ddlDialect holds the statements whose shape differs between dialects.
// Arguments arrive already quoted.
type ddlDialect interface {
	defaultValues() string
	addColumn() string
	renameTable(from, to string) string
	alterColumn(table, column, typ string) (string, error)
	dropIndex(name, table string) string
	addConstraint() bool
	dropForeignKey(name, table string) string
	dropPrimaryKey(name, table string) string
	truncate(table string) string
	resetSequence(a *Adapter, name string, start int) string
	checkIntegrity(a *Adapter, check bool, table string) (string, error)
}

type mysqlDDL struct{}

func (mysqlDDL) defaultValues() string { return "() VALUES ()" }

func (mysqlDDL) addColumn() string { return "ADD" }

func (mysqlDDL) renameTable(from, to string) string {
	return "RENAME TABLE " + from + " TO " + to
}

func (mysqlDDL) alterColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + table + " CHANGE " + column + " " + column + " " + typ, nil
}

func (mysqlDDL) dropIndex(name, table string) string {
	return "DROP INDEX " + name + " ON " + table
}

func (mysqlDDL) addConstraint() bool { return true }

func (mysqlDDL) dropForeignKey(name, table string) string {
	return "ALTER TABLE " + table + " DROP FOREIGN KEY " + name
}

func (mysqlDDL) dropPrimaryKey(_, table string) string {
	return "ALTER TABLE " + table + " DROP PRIMARY KEY"
}

func (mysqlDDL) truncate(table string) string { return "TRUNCATE TABLE " + table }

func (mysqlDDL) resetSequence(a *Adapter, name string, start int) string {
	return "ALTER TABLE " + a.QuoteTable(name) + " AUTO_INCREMENT=" + strconv.Itoa(start)
}

func (mysqlDDL) checkIntegrity(_ *Adapter, check bool, _ string) (string, error) {
	return "SET FOREIGN_KEY_CHECKS = " + boolDigit(check), nil
}

type postgresDDL struct{}

func (postgresDDL) defaultValues() string { return "DEFAULT VALUES" }

func (postgresDDL) addColumn() string { return "ADD COLUMN" }

func (postgresDDL) renameTable(from, to string) string {
	return "ALTER TABLE " + from + " RENAME TO " + to
}

func (postgresDDL) alterColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + table + " ALTER COLUMN " + column + " TYPE " + typ, nil
}

func (postgresDDL) dropIndex(name, _ string) string { return "DROP INDEX " + name }

func (postgresDDL) addConstraint() bool { return true }

func (postgresDDL) dropForeignKey(name, table string) string {
	return "ALTER TABLE " + table + " DROP CONSTRAINT " + name
}

func (postgresDDL) dropPrimaryKey(name, table string) string {
	return "ALTER TABLE " + table + " DROP CONSTRAINT " + name
}

func (postgresDDL) truncate(table string) string { return "TRUNCATE TABLE " + table }

// resetSequence accepts a sequence name ("users_id_seq") or a table name
// with an optional column ("users.user_id", "id" by default). The sequence
// of a table is looked up by the server, so renamed tables and identity
// columns are covered.
func (postgresDDL) resetSequence(a *Adapter, name string, start int) string {
	name = a.TableName(name)
	if strings.HasSuffix(name, "_seq") {
		return "ALTER SEQUENCE " + a.QuoteIdentifier(name) + " RESTART WITH " + strconv.Itoa(start)
	}
	table, column := name, "id"
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		table, column = name[:i], name[i+1:]
	}
	return "SELECT setval(pg_get_serial_sequence(" + a.QuoteString(a.QuoteIdentifier(table)) + ", " +
		a.QuoteString(column) + "), " + strconv.Itoa(start) + ", false)"
}

func (postgresDDL) checkIntegrity(a *Adapter, check bool, table string) (string, error) {
	if table == "" {
		return "", fmt.Errorf("dialect/sql: postgres integrity check requires a table")
	}
	mode := "DISABLE"
	if check {
		mode = "ENABLE"
	}
	return "ALTER TABLE " + a.QuoteTable(table) + " " + mode + " TRIGGER ALL", nil
}

type sqliteDDL struct{}

func (sqliteDDL) defaultValues() string { return "DEFAULT VALUES" }

func (sqliteDDL) addColumn() string { return "ADD COLUMN" }

func (sqliteDDL) renameTable(from, to string) string {
	return "ALTER TABLE " + from + " RENAME TO " + to
}

func (sqliteDDL) alterColumn(string, string, string) (string, error) {
	return "", notSupported(dialect.SQLite, "ALTER COLUMN")
}

func (sqliteDDL) dropIndex(name, _ string) string { return "DROP INDEX " + name }

func (sqliteDDL) addConstraint() bool { return false }

func (sqliteDDL) dropForeignKey(string, string) string { return "" }

func (sqliteDDL) dropPrimaryKey(string, string) string { return "" }

func (sqliteDDL) truncate(table string) string { return "DELETE FROM " + table }

// resetSequence upserts the sqlite_sequence row, which does not exist
// before the first insert into the table. The table has no key, so the row
// is matched by rowid.
func (sqliteDDL) resetSequence(a *Adapter, name string, start int) string {
	table := a.QuoteString(a.TableName(name))
	return "INSERT OR REPLACE INTO sqlite_sequence (rowid, name, seq) VALUES ((SELECT rowid FROM sqlite_sequence WHERE name = " +
		table + "), " + table + ", " + strconv.Itoa(start-1) + ")"
}

func (sqliteDDL) checkIntegrity(_ *Adapter, check bool, _ string) (string, error) {
	return "PRAGMA foreign_keys = " + boolDigit(check), nil
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (b *Builder) columns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.adapter.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func (b *Builder) constraint(stmt string) error {
	if !b.adapter.caps.ddl.addConstraint() {
		return notSupported(b.adapter.Dialect(), stmt)
	}
	return nil
}

// CreateTable renders a CREATE TABLE statement. options, if not empty, is
// appended after the closing parenthesis (e.g. "ENGINE=InnoDB").
func (b *Builder) CreateTable(table string, cols []ColumnSpec, options string) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("dialect/sql: create table %q without columns", table)
	}
	defs := make([]string, len(cols))
	for i, c := range cols {
		if c.Name == "" {
			defs[i] = "\t" + c.Type
			continue
		}
		typ, err := b.adapter.ColumnType(c.Type)
		if err != nil {
			return "", err
		}
		defs[i] = "\t" + b.adapter.QuoteIdentifier(c.Name) + " " + typ
	}
	s := "CREATE TABLE " + b.adapter.QuoteTable(table) + " (\n" + strings.Join(defs, ",\n") + "\n)"
	if options != "" {
		s += " " + options
	}
	return b.quoteSQL(s), nil
}

// quoteSQL resolves the portable quoting left by table and column names
// given as "{{%table}}" or "[[column]]".
func (b *Builder) quoteSQL(s string) string { return b.adapter.QuoteSQL(s) }

// DropTable renders a DROP TABLE statement.
func (b *Builder) DropTable(table string) string {
	return b.quoteSQL("DROP TABLE " + b.adapter.QuoteTable(table))
}

// DropTableIfExists renders a DROP TABLE IF EXISTS statement.
func (b *Builder) DropTableIfExists(table string) string {
	return b.quoteSQL("DROP TABLE IF EXISTS " + b.adapter.QuoteTable(table))
}

// RenameTable renders a statement renaming table from to to.
func (b *Builder) RenameTable(from, to string) string {
	return b.quoteSQL(b.adapter.caps.ddl.renameTable(b.adapter.QuoteTable(from), b.adapter.QuoteTable(to)))
}

// AddColumn renders a statement adding a column of the given abstract type.
func (b *Builder) AddColumn(table, column, typ string) (string, error) {
	native, err := b.adapter.ColumnType(typ)
	if err != nil {
		return "", err
	}
	return b.quoteSQL("ALTER TABLE " + b.adapter.QuoteTable(table) + " " + b.adapter.caps.ddl.addColumn() + " " +
		b.adapter.QuoteIdentifier(column) + " " + native), nil
}

// DropColumn renders a statement dropping a column.
func (b *Builder) DropColumn(table, column string) string {
	return b.quoteSQL("ALTER TABLE " + b.adapter.QuoteTable(table) + " DROP COLUMN " + b.adapter.QuoteIdentifier(column))
}

// RenameColumn renders a statement renaming a column.
func (b *Builder) RenameColumn(table, from, to string) string {
	return b.quoteSQL("ALTER TABLE " + b.adapter.QuoteTable(table) + " RENAME COLUMN " +
		b.adapter.QuoteIdentifier(from) + " TO " + b.adapter.QuoteIdentifier(to))
}

// AlterColumn renders a statement changing the type of a column.
func (b *Builder) AlterColumn(table, column, typ string) (string, error) {
	native, err := b.adapter.ColumnType(typ)
	if err != nil {
		return "", err
	}
	s, err := b.adapter.caps.ddl.alterColumn(b.adapter.QuoteTable(table), b.adapter.QuoteIdentifier(column), native)
	if err != nil {
		return "", err
	}
	return b.quoteSQL(s), nil
}

// CreateIndex renders a CREATE [UNIQUE] INDEX statement.
func (b *Builder) CreateIndex(table, name string, cols []string, unique bool) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("dialect/sql: index %q has no columns", name)
	}
	s := "CREATE INDEX "
	if unique {
		s = "CREATE UNIQUE INDEX "
	}
	return b.quoteSQL(s + b.adapter.QuoteIdentifier(name) + " ON " + b.adapter.QuoteTable(table) + " (" + b.columns(cols) + ")"), nil
}

// DropIndex renders a DROP INDEX statement.
func (b *Builder) DropIndex(table, name string) string {
	return b.quoteSQL(b.adapter.caps.ddl.dropIndex(b.adapter.QuoteIdentifier(name), b.adapter.QuoteTable(table)))
}

// ForeignKey describes a foreign key constraint to add.
type ForeignKey struct {
	Name       string
	Table      string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   ForeignKeyAction
	OnUpdate   ForeignKeyAction
}

// AddForeignKey renders a statement adding a foreign key constraint.
func (b *Builder) AddForeignKey(fk ForeignKey) (string, error) {
	if err := b.constraint("ADD FOREIGN KEY"); err != nil {
		return "", err
	}
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
		return "", fmt.Errorf("dialect/sql: foreign key %q has mismatched columns", fk.Name)
	}
	s := "ALTER TABLE " + b.adapter.QuoteTable(fk.Table) + " ADD CONSTRAINT " + b.adapter.QuoteIdentifier(fk.Name) +
		" FOREIGN KEY (" + b.columns(fk.Columns) + ") REFERENCES " + b.adapter.QuoteTable(fk.RefTable) +
		" (" + b.columns(fk.RefColumns) + ")"
	if fk.OnDelete != "" {
		s += " ON DELETE " + string(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		s += " ON UPDATE " + string(fk.OnUpdate)
	}
	return b.quoteSQL(s), nil
}

// DropForeignKey renders a statement dropping a foreign key constraint.
func (b *Builder) DropForeignKey(table, name string) (string, error) {
	if err := b.constraint("DROP FOREIGN KEY"); err != nil {
		return "", err
	}
	return b.quoteSQL(b.adapter.caps.ddl.dropForeignKey(b.adapter.QuoteIdentifier(name), b.adapter.QuoteTable(table))), nil
}

// AddPrimaryKey renders a statement adding a primary key over cols.
func (b *Builder) AddPrimaryKey(table, name string, cols []string) (string, error) {
	if err := b.constraint("ADD PRIMARY KEY"); err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("dialect/sql: primary key %q has no columns", name)
	}
	return b.quoteSQL("ALTER TABLE " + b.adapter.QuoteTable(table) + " ADD CONSTRAINT " + b.adapter.QuoteIdentifier(name) +
		" PRIMARY KEY (" + b.columns(cols) + ")"), nil
}

// DropPrimaryKey renders a statement dropping the primary key. name is
// ignored by MySQL which has a single unnamed primary key per table.
func (b *Builder) DropPrimaryKey(table, name string) (string, error) {
	if err := b.constraint("DROP PRIMARY KEY"); err != nil {
		return "", err
	}
	return b.quoteSQL(b.adapter.caps.ddl.dropPrimaryKey(b.adapter.QuoteIdentifier(name), b.adapter.QuoteTable(table))), nil
}

// Truncate renders a statement removing every row of table.
func (b *Builder) Truncate(table string) string {
	return b.quoteSQL(b.adapter.caps.ddl.truncate(b.adapter.QuoteTable(table)))
}

// ResetSequence renders a statement making the next generated key of the
// sequence, or of the table's serial primary key, equal start.
func (b *Builder) ResetSequence(name string, start int) (string, error) {
	if start < 1 {
		return "", fmt.Errorf("dialect/sql: sequence start %d must be positive", start)
	}
	return b.quoteSQL(b.adapter.caps.ddl.resetSequence(b.adapter, name, start)), nil
}

// CheckIntegrity renders a statement enabling or disabling foreign key
// enforcement. PostgreSQL scopes it to table; other dialects ignore table.
func (b *Builder) CheckIntegrity(check bool, table string) (string, error) {
	s, err := b.adapter.caps.ddl.checkIntegrity(b.adapter, check, table)
	if err != nil {
		return "", err
	}
	return b.quoteSQL(s), nil
}
