package sql

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// Factory wires an Adapter and a LookupBuilder into ready Builders.
type Factory struct {
	adapter    *Adapter
	collection LookupCollection
	lookups    *LookupBuilder
	log        *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithLogger sets the logger used by the builders of the factory.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.log = l
	}
}

// WithLookups replaces the adapter's lookup collection.
func WithLookups(c LookupCollection) FactoryOption {
	return func(f *Factory) {
		f.collection = c
	}
}

// NewFactory returns a factory for the given adapter.
func NewFactory(a *Adapter, opts ...FactoryOption) *Factory {
	f := &Factory{adapter: a, log: slog.Default()}
	if a != nil {
		f.collection = a.Lookups()
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.collection != nil {
		f.lookups = NewLookupBuilder(f.collection, f.quote, WithLookupLogger(f.log))
	}
	return f
}

func (f *Factory) quote(s string) string {
	if f.adapter == nil {
		return s
	}
	return f.adapter.QuoteIdentifier(s)
}

// Builder returns a query builder bound to the factory's adapter.
func (f *Factory) Builder() (*Builder, error) {
	if f.adapter == nil {
		return nil, fmt.Errorf("%w: query builder has no adapter", ErrNotConfigured)
	}
	if f.lookups == nil || f.lookups.lookups == nil {
		return nil, fmt.Errorf("%w: query builder has no lookup collection", ErrNotConfigured)
	}
	return &Builder{adapter: f.adapter, lookups: f.lookups}, nil
}

// Dialect returns a builder for the given dialect with default lookups and
// no driver handle.
func Dialect(name string, opts ...AdapterOption) (*Builder, error) {
	a, err := NewAdapter(name, opts...)
	if err != nil {
		return nil, err
	}
	return NewFactory(a).Builder()
}

// Builder produces SQL statements for one dialect. It never executes them.
type Builder struct {
	adapter *Adapter
	lookups *LookupBuilder
}

// Adapter returns the adapter of the builder.
func (b *Builder) Adapter() *Adapter { return b.adapter }

// Select starts a SELECT query with the given columns.
func (b *Builder) Select(columns ...string) Query {
	return Query{b: b}.Select(columns...)
}

// From starts a SELECT * query over the given tables.
func (b *Builder) From(tables ...string) Query {
	return Query{b: b}.From(tables...)
}

// JoinKind is the type of a JOIN clause.
type JoinKind string

// Join kinds.
const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
	RightJoin JoinKind = "RIGHT JOIN"
	CrossJoin JoinKind = "CROSS JOIN"
)

// RandomOrder is the OrderBy sentinel ordering rows randomly.
const RandomOrder = "?"

type join struct {
	kind  JoinKind
	table string
	on    Cond
}

type union struct {
	q   Query
	all bool
}

// Query is an immutable SELECT accumulator. Every method returns a new
// value and leaves the receiver unchanged, so a Query may be shared and
// built repeatedly.
type Query struct {
	b        *Builder
	distinct bool
	columns  []string
	from     []string
	joins    []join
	where    Cond
	groupBy  []string
	having   Cond
	orderBy  []string
	limit    int
	offset   int
	unions   []union
}

// appendClone appends to a copy of s so the receiver's backing array is
// never shared between values.
func appendClone[T any](s []T, vs ...T) []T {
	return append(slices.Clip(s), vs...)
}

// Select adds columns to the select list.
func (q Query) Select(columns ...string) Query {
	q.columns = appendClone(q.columns, columns...)
	return q
}

// Distinct sets the DISTINCT modifier.
func (q Query) Distinct() Query {
	q.distinct = true
	return q
}

// From sets the tables to select from. A table may carry an alias
// ("users u" or "users AS u").
func (q Query) From(tables ...string) Query {
	q.from = slices.Clone(tables)
	return q
}

// Join appends a join clause. on may be nil for CROSS JOIN.
func (q Query) Join(kind JoinKind, table string, on Cond) Query {
	q.joins = appendClone(q.joins, join{kind: kind, table: table, on: on})
	return q
}

// InnerJoin appends an INNER JOIN clause.
func (q Query) InnerJoin(table string, on Cond) Query { return q.Join(InnerJoin, table, on) }

// LeftJoin appends a LEFT JOIN clause.
func (q Query) LeftJoin(table string, on Cond) Query { return q.Join(LeftJoin, table, on) }

// RightJoin appends a RIGHT JOIN clause.
func (q Query) RightJoin(table string, on Cond) Query { return q.Join(RightJoin, table, on) }

// Where replaces the WHERE condition.
func (q Query) Where(c Cond) Query {
	q.where = c
	return q
}

// AndWhere combines c with the current WHERE condition using AND.
func (q Query) AndWhere(c Cond) Query {
	if q.where == nil {
		return q.Where(c)
	}
	q.where = And(q.where, c)
	return q
}

// OrWhere combines c with the current WHERE condition using OR.
func (q Query) OrWhere(c Cond) Query {
	if q.where == nil {
		return q.Where(c)
	}
	q.where = Or(q.where, c)
	return q
}

// Filter adds lookup filters such as {"age__gte": 18} with AND.
func (q Query) Filter(filters map[string]any) Query {
	return q.AndWhere(Filter(filters))
}

// GroupBy appends GROUP BY columns.
func (q Query) GroupBy(columns ...string) Query {
	q.groupBy = appendClone(q.groupBy, columns...)
	return q
}

// Having replaces the HAVING condition.
func (q Query) Having(c Cond) Query {
	q.having = c
	return q
}

// OrderBy appends ORDER BY terms. "-name" orders descending, "name DESC"
// is kept as written and RandomOrder orders randomly.
func (q Query) OrderBy(terms ...string) Query {
	q.orderBy = appendClone(q.orderBy, terms...)
	return q
}

// Limit sets the maximum number of rows. Zero or less means no limit.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// Offset sets the number of rows to skip.
func (q Query) Offset(n int) Query {
	q.offset = n
	return q
}

// Union appends a UNION (or UNION ALL) member.
func (q Query) Union(other Query, all bool) Query {
	q.unions = appendClone(q.unions, union{q: other, all: all})
	return q
}

// Build renders the statement and its parameters. It does not modify q and
// returns the same output for the same q.
func (q Query) Build() (string, Params, error) {
	if q.b == nil {
		return "", nil, fmt.Errorf("%w: query has no builder", ErrNotConfigured)
	}
	r := newRenderer(q.b)
	s, err := q.render(r)
	if err != nil {
		return "", nil, err
	}
	return q.b.adapter.QuoteSQL(s), r.params, nil
}

// ToSQL renders the statement text only.
func (q Query) ToSQL() (string, error) {
	s, _, err := q.Build()
	return s, err
}

func (q Query) render(r *renderer) (string, error) {
	if q.b == nil {
		return "", fmt.Errorf("%w: query has no builder", ErrNotConfigured)
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.columns) == 0 {
		b.WriteString("*")
	} else {
		for i, c := range q.columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.aliased(c, r.adapter.QuoteIdentifier))
		}
	}
	if len(q.from) > 0 {
		b.WriteString(" FROM ")
		for i, t := range q.from {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.aliased(t, r.adapter.QuoteTable))
		}
	}
	for _, j := range q.joins {
		b.WriteString(" " + string(j.kind) + " " + r.aliased(j.table, r.adapter.QuoteTable))
		on, err := r.cond(j.on)
		if err != nil {
			return "", err
		}
		if on != "" {
			b.WriteString(" ON " + on)
		}
	}
	where, err := r.cond(q.where)
	if err != nil {
		return "", err
	}
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	if len(q.groupBy) > 0 {
		cols := make([]string, len(q.groupBy))
		for i, c := range q.groupBy {
			cols[i] = r.adapter.QuoteIdentifier(c)
		}
		b.WriteString(" GROUP BY " + strings.Join(cols, ", "))
	}
	having, err := r.cond(q.having)
	if err != nil {
		return "", err
	}
	if having != "" {
		b.WriteString(" HAVING " + having)
	}
	if len(q.orderBy) > 0 {
		terms := make([]string, len(q.orderBy))
		for i, t := range q.orderBy {
			terms[i] = r.orderTerm(t)
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if lo := r.adapter.LimitOffset(q.limit, q.offset); lo != "" {
		b.WriteString(" " + lo)
	}
	if len(q.unions) == 0 {
		return b.String(), nil
	}
	s := r.member(q, b.String(), false)
	for _, u := range q.unions {
		sub, err := u.q.render(r)
		if err != nil {
			return "", err
		}
		op := " UNION "
		if u.all {
			op = " UNION ALL "
		}
		s += op + r.member(u.q, sub, len(u.q.unions) > 0)
	}
	return s, nil
}

// member wraps the rendered union member s of q. Without parenthesized
// members (SQLite), a member that is ordered, limited or compound itself is
// turned into a subquery.
func (r *renderer) member(q Query, s string, compound bool) string {
	switch {
	case r.adapter.caps.unionParens:
		return "(" + s + ")"
	case compound, len(q.orderBy) > 0, r.adapter.LimitOffset(q.limit, q.offset) != "":
		return "SELECT * FROM (" + s + ")"
	}
	return s
}

// aliasRe splits "name AS alias" and "name alias".
var aliasRe = regexp.MustCompile(`(?i)^(.*?)(?:\s+as\s+|\s+)([\w\-\.]+)$`)

// aliased quotes a column or table reference that may carry an alias.
// Expressions containing parentheses are left untouched.
func (r *renderer) aliased(s string, quote func(string) string) string {
	if strings.Contains(s, "(") {
		return s
	}
	if m := aliasRe.FindStringSubmatch(s); m != nil {
		return quote(m[1]) + " " + r.adapter.QuoteIdentifier(m[2])
	}
	return quote(s)
}

var orderRe = regexp.MustCompile(`(?i)^(.+?)\s+(asc|desc)$`)

func (r *renderer) orderTerm(t string) string {
	switch {
	case t == RandomOrder:
		return r.adapter.RandomOrder()
	case strings.Contains(t, "("):
		return t
	case strings.HasPrefix(t, "-"):
		return r.adapter.QuoteIdentifier(t[1:]) + " DESC"
	}
	if m := orderRe.FindStringSubmatch(t); m != nil {
		return r.adapter.QuoteIdentifier(m[1]) + " " + strings.ToUpper(m[2])
	}
	return r.adapter.QuoteIdentifier(t)
}

// Insert renders an INSERT statement. Columns are written in sorted order
// and an empty values map inserts a row of defaults.
func (b *Builder) Insert(table string, values map[string]any) (string, Params, error) {
	cols := sortedKeys(values)
	p := Params{}
	t := b.adapter.QuoteTable(table)
	if len(cols) == 0 {
		return "INSERT INTO " + t + " " + b.adapter.caps.ddl.defaultValues(), p, nil
	}
	quoted := make([]string, len(cols))
	ph := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = b.adapter.QuoteIdentifier(c)
		ph[i] = p.bind(c, values[c])
	}
	s := "INSERT INTO " + t + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
	return b.adapter.QuoteSQL(s), p, nil
}

// BatchInsert renders a multi-row INSERT statement.
func (b *Builder) BatchInsert(table string, columns []string, rows [][]any) (string, Params, error) {
	if len(columns) == 0 || len(rows) == 0 {
		return "", nil, fmt.Errorf("dialect/sql: batch insert into %q requires columns and rows", table)
	}
	p := Params{}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.adapter.QuoteIdentifier(c)
	}
	values := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("dialect/sql: batch insert row %d has %d values, expect %d", i, len(row), len(columns))
		}
		ph := make([]string, len(row))
		for j, v := range row {
			ph[j] = p.bind(columns[j], v)
		}
		values[i] = "(" + strings.Join(ph, ", ") + ")"
	}
	s := "INSERT INTO " + b.adapter.QuoteTable(table) + " (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(values, ", ")
	return b.adapter.QuoteSQL(s), p, nil
}

// Update renders an UPDATE statement. where may be nil.
func (b *Builder) Update(table string, values map[string]any, where Cond) (string, Params, error) {
	cols := sortedKeys(values)
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("dialect/sql: update of %q has no values", table)
	}
	r := newRenderer(b)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = b.adapter.QuoteIdentifier(c) + " = " + r.params.bind(c, values[c])
	}
	s := "UPDATE " + b.adapter.QuoteTable(table) + " SET " + strings.Join(sets, ", ")
	w, err := r.cond(where)
	if err != nil {
		return "", nil, err
	}
	if w != "" {
		s += " WHERE " + w
	}
	return b.adapter.QuoteSQL(s), r.params, nil
}

// Delete renders a DELETE statement. where may be nil.
func (b *Builder) Delete(table string, where Cond) (string, Params, error) {
	r := newRenderer(b)
	s := "DELETE FROM " + b.adapter.QuoteTable(table)
	w, err := r.cond(where)
	if err != nil {
		return "", nil, err
	}
	if w != "" {
		s += " WHERE " + w
	}
	return b.adapter.QuoteSQL(s), r.params, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
