package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/dbal/dialect"
)

// limitStyle selects how LIMIT and OFFSET are spelled.
type limitStyle uint8

const (
	// limitOffsetKeywords renders "LIMIT n OFFSET m".
	limitOffsetKeywords limitStyle = iota
	// limitOffsetComma renders "LIMIT m, n".
	limitOffsetComma
)

// capabilities is the per-dialect syntax table. Adding a dialect means adding
// one table and one ddlDialect implementation.
type capabilities struct {
	name string
	// quote quotes a single identifier part.
	quote func(string) string
	// unbounded is the limit value used when only an offset is given.
	unbounded   string
	limitStyle  limitStyle
	random      string
	unionParens bool
	// escapeBackslash is set for dialects treating backslash as an escape
	// character inside string literals.
	escapeBackslash bool
	types           map[string]string
	ddl             ddlDialect
}

func backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

var dialects = map[string]*capabilities{
	dialect.MySQL: {
		name:            dialect.MySQL,
		quote:           backtick,
		unbounded:       "18446744073709551615",
		limitStyle:      limitOffsetComma,
		random:          "RAND()",
		unionParens:     true,
		escapeBackslash: true,
		ddl:             mysqlDDL{},
		types: map[string]string{
			"pk":        "int(11) NOT NULL AUTO_INCREMENT PRIMARY KEY",
			"bigpk":     "bigint(20) NOT NULL AUTO_INCREMENT PRIMARY KEY",
			"string":    "varchar(255)",
			"text":      "text",
			"smallint":  "smallint(6)",
			"int":       "int(11)",
			"bigint":    "bigint(20)",
			"float":     "float",
			"double":    "double",
			"decimal":   "decimal(10,0)",
			"datetime":  "datetime",
			"timestamp": "timestamp",
			"time":      "time",
			"date":      "date",
			"binary":    "blob",
			"bool":      "tinyint(1)",
			"money":     "decimal(19,4)",
		},
	},
	dialect.Postgres: {
		name:        dialect.Postgres,
		quote:       pq.QuoteIdentifier,
		unbounded:   "ALL",
		limitStyle:  limitOffsetKeywords,
		random:      "RANDOM()",
		unionParens: true,
		ddl:         postgresDDL{},
		types: map[string]string{
			"pk":        "serial NOT NULL PRIMARY KEY",
			"bigpk":     "bigserial NOT NULL PRIMARY KEY",
			"string":    "varchar(255)",
			"text":      "text",
			"smallint":  "smallint",
			"int":       "integer",
			"bigint":    "bigint",
			"float":     "double precision",
			"double":    "double precision",
			"decimal":   "numeric(10,0)",
			"datetime":  "timestamp(0)",
			"timestamp": "timestamp(0)",
			"time":      "time(0)",
			"date":      "date",
			"binary":    "bytea",
			"bool":      "boolean",
			"money":     "numeric(19,4)",
		},
	},
	dialect.SQLite: {
		name:       dialect.SQLite,
		quote:      backtick,
		unbounded:  "-1",
		limitStyle: limitOffsetKeywords,
		random:     "RANDOM()",
		// SQLite rejects parenthesized compound SELECT members.
		unionParens: false,
		ddl:         sqliteDDL{},
		types: map[string]string{
			"pk":        "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
			"bigpk":     "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
			"string":    "varchar(255)",
			"text":      "text",
			"smallint":  "smallint",
			"int":       "integer",
			"bigint":    "bigint",
			"float":     "float",
			"double":    "double",
			"decimal":   "decimal(10,0)",
			"datetime":  "datetime",
			"timestamp": "timestamp",
			"time":      "time",
			"date":      "date",
			"binary":    "blob",
			"bool":      "boolean",
			"money":     "decimal(19,4)",
		},
	},
}

// typeAliases maps alternative abstract names onto the canonical ones.
var typeAliases = map[string]string{
	"integer": "int",
	"boolean": "bool",
}

// Adapter renders dialect-specific SQL fragments and owns the driver handle
// of one connection.
type Adapter struct {
	caps    *capabilities
	prefix  string
	handle  dialect.ExecQuerier
	lookups LookupCollection
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTablePrefix sets the prefix substituted for "%" in table names
// written as {{%name}}.
func WithTablePrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = prefix
	}
}

// NewAdapter returns the adapter for the given dialect name.
func NewAdapter(name string, opts ...AdapterOption) (*Adapter, error) {
	caps, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dialect.ErrUnknownDialect, name)
	}
	a := &Adapter{caps: caps, lookups: DefaultLookups()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Bind attaches the driver handle statements are executed on.
func (a *Adapter) Bind(h dialect.ExecQuerier) {
	a.handle = h
}

// Handle returns the bound driver handle, or ErrNotConfigured.
func (a *Adapter) Handle() (dialect.ExecQuerier, error) {
	if a.handle == nil {
		return nil, fmt.Errorf("%w: %s adapter has no driver handle", ErrNotConfigured, a.caps.name)
	}
	return a.handle, nil
}

// Dialect returns the dialect name.
func (a *Adapter) Dialect() string { return a.caps.name }

// TablePrefix returns the configured table prefix.
func (a *Adapter) TablePrefix() string { return a.prefix }

// Lookups returns the lookup collection of this adapter.
func (a *Adapter) Lookups() LookupCollection { return a.lookups }

// QuoteIdentifier quotes a column or generic identifier. Dotted names are
// quoted per part, "*" and expressions containing parentheses are left as is.
func (a *Adapter) QuoteIdentifier(name string) string {
	if name == "*" || strings.ContainsAny(name, "()") || hasPortableQuote(name) || a.isQuoted(name) {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" && !a.isQuoted(p) {
			parts[i] = a.caps.quote(p)
		}
	}
	return strings.Join(parts, ".")
}

// QuoteTable quotes a table name, substituting the table prefix for "%".
func (a *Adapter) QuoteTable(name string) string {
	if strings.ContainsAny(name, "()") || hasPortableQuote(name) {
		return name
	}
	return a.QuoteIdentifier(a.TableName(name))
}

// TableName resolves the "%" prefix marker without quoting. A name wrapped
// in the portable "{{...}}" quotes is unwrapped.
func (a *Adapter) TableName(name string) string {
	if strings.HasPrefix(name, "{{") && strings.HasSuffix(name, "}}") {
		name = name[2 : len(name)-2]
	}
	return strings.ReplaceAll(name, "%", a.prefix)
}

func (a *Adapter) isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case '`', '"':
		return s[len(s)-1] == s[0]
	}
	return false
}

// portableQuote matches {{table}}, {{%table}} and [[column]] placeholders.
var portableQuote = regexp.MustCompile(`\{\{(%?[\w\-\. ]+%?)\}\}|\[\[([\w\-\. ]+)\]\]`)

func hasPortableQuote(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "[[")
}

// QuoteSQL rewrites the portable quoting placeholders of text into the
// dialect's native identifier quoting.
func (a *Adapter) QuoteSQL(text string) string {
	if !hasPortableQuote(text) {
		return text
	}
	return portableQuote.ReplaceAllStringFunc(text, func(m string) string {
		inner := m[2 : len(m)-2]
		if m[0] == '{' {
			return a.QuoteTable(inner)
		}
		return a.QuoteIdentifier(inner)
	})
}

// QuoteString renders s as an SQL string literal.
func (a *Adapter) QuoteString(s string) string {
	if a.caps.escapeBackslash {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// RandomOrder returns the expression ordering rows randomly.
func (a *Adapter) RandomOrder() string { return a.caps.random }

// abstractType splits "string(64) NOT NULL" into name, size and the rest.
var abstractType = regexp.MustCompile(`^(\w+)(?:\s*\(([^)]*)\))?(.*)$`)

// sizeGroup matches the first parenthesized group of a native type.
var sizeGroup = regexp.MustCompile(`\([^)]*\)`)

// ColumnType maps an abstract column type to the dialect's native type.
// A size given on the abstract type replaces the native default size and any
// trailing modifiers are kept verbatim.
func (a *Adapter) ColumnType(typ string) (string, error) {
	m := abstractType.FindStringSubmatch(strings.TrimSpace(typ))
	if m == nil {
		return "", &UnknownColumnTypeError{Dialect: a.caps.name, Type: typ}
	}
	key := strings.ToLower(m[1])
	if alias, ok := typeAliases[key]; ok {
		key = alias
	}
	native, ok := a.caps.types[key]
	if !ok {
		return "", &UnknownColumnTypeError{Dialect: a.caps.name, Type: typ}
	}
	if m[2] != "" {
		native = sizeGroup.ReplaceAllLiteralString(native, "("+m[2]+")")
	}
	return native + m[3], nil
}

// LimitOffset renders the pagination clause. A limit <= 0 means no limit and
// an offset <= 0 means no offset; with neither the clause is empty.
func (a *Adapter) LimitOffset(limit, offset int) string {
	hasLimit, hasOffset := limit > 0, offset > 0
	if !hasLimit && !hasOffset {
		return ""
	}
	n := a.caps.unbounded
	if hasLimit {
		n = strconv.Itoa(limit)
	}
	if !hasOffset {
		return "LIMIT " + n
	}
	if a.caps.limitStyle == limitOffsetComma {
		return "LIMIT " + strconv.Itoa(offset) + ", " + n
	}
	return "LIMIT " + n + " OFFSET " + strconv.Itoa(offset)
}
