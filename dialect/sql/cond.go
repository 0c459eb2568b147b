package sql

import (
	"fmt"
	"slices"
	"strings"
)

// Cond is a WHERE, HAVING or ON condition.
type Cond interface {
	render(r *renderer) (string, error)
}

// renderer carries the state of one Build call.
type renderer struct {
	adapter *Adapter
	lookups *LookupBuilder
	params  Params
}

func newRenderer(b *Builder) *renderer {
	return &renderer{adapter: b.adapter, lookups: b.lookups, params: Params{}}
}

func (r *renderer) column(name string) string { return r.adapter.QuoteIdentifier(name) }

// cond renders c, treating nil as no condition.
func (r *renderer) cond(c Cond) (string, error) {
	if c == nil {
		return "", nil
	}
	return c.render(r)
}

type rawCond struct {
	sql    string
	params Params
}

// Raw returns a literal condition. Placeholders in sql are written as
// ":name" and their values passed in params.
func Raw(sql string, params Params) Cond {
	return rawCond{sql: sql, params: params}
}

func (c rawCond) render(r *renderer) (string, error) {
	if err := r.params.merge(c.params); err != nil {
		return "", err
	}
	return c.sql, nil
}

// HashEq returns a condition requiring every column to equal its value.
// A nil value renders IS NULL and a list renders IN.
func HashEq(values map[string]any) Cond {
	return hashCond(values)
}

type hashCond map[string]any

func (c hashCond) render(r *renderer) (string, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := c[k]
		var (
			s   string
			err error
		)
		if _, ok := toSlice(v); ok {
			s, err = opCond{op: "IN", field: k, value: v}.render(r)
		} else if q, ok := v.(Query); ok {
			s, err = opCond{op: "IN", field: k, value: q}.render(r)
		} else {
			s, err = opCond{op: "=", field: k, value: v}.render(r)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " AND "), nil
}

type opCond struct {
	op    string
	field string
	value any
}

// Op returns the structured condition "field operator value". Supported
// operators: = <> != < <= > >= LIKE, NOT LIKE, IN, NOT IN, BETWEEN and
// NOT BETWEEN. IN accepts a list or a Query.
func Op(operator, field string, value any) Cond {
	return opCond{op: strings.ToUpper(strings.Join(strings.Fields(operator), " ")), field: field, value: value}
}

func (c opCond) render(r *renderer) (string, error) {
	col := r.column(c.field)
	switch c.op {
	case "=", "<>", "!=", "<", "<=", ">", ">=":
		if isNil(c.value) {
			switch c.op {
			case "=":
				return col + " IS NULL", nil
			case "<>", "!=":
				return col + " IS NOT NULL", nil
			}
		}
		return col + " " + c.op + " " + r.params.bind(c.field, c.value), nil
	case "LIKE", "NOT LIKE":
		return col + " " + c.op + " " + r.params.bind(c.field, c.value), nil
	case "IN", "NOT IN":
		if q, ok := c.value.(Query); ok {
			s, err := q.render(r)
			if err != nil {
				return "", err
			}
			return col + " " + c.op + " (" + s + ")", nil
		}
		vs, ok := toSlice(c.value)
		if !ok {
			return "", fmt.Errorf("dialect/sql: operator %s expects a list, got %T", c.op, c.value)
		}
		if len(vs) == 0 {
			if c.op == "IN" {
				return "0=1", nil
			}
			return "", nil
		}
		return col + " " + c.op + " (" + bindAll(r.params, c.field, vs) + ")", nil
	case "BETWEEN", "NOT BETWEEN":
		vs, ok := toSlice(c.value)
		if !ok || len(vs) != 2 {
			return "", fmt.Errorf("dialect/sql: operator %s expects two bounds", c.op)
		}
		return col + " " + c.op + " " + r.params.bind(c.field, vs[0]) + " AND " + r.params.bind(c.field, vs[1]), nil
	}
	return "", fmt.Errorf("dialect/sql: unsupported operator %q", c.op)
}

type nullCond struct {
	field string
	not   bool
}

func (c nullCond) render(r *renderer) (string, error) {
	if c.not {
		return r.column(c.field) + " IS NOT NULL", nil
	}
	return r.column(c.field) + " IS NULL", nil
}

type groupCond struct {
	op    string
	conds []Cond
}

// And joins conditions with AND. Nil and empty conditions are skipped.
func And(conds ...Cond) Cond { return groupCond{op: "AND", conds: conds} }

// Or joins conditions with OR. Nil and empty conditions are skipped.
func Or(conds ...Cond) Cond { return groupCond{op: "OR", conds: conds} }

func (c groupCond) render(r *renderer) (string, error) {
	parts := make([]string, 0, len(c.conds))
	for _, sub := range c.conds {
		s, err := r.cond(sub)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	for i, s := range parts {
		parts[i] = "(" + s + ")"
	}
	return strings.Join(parts, " "+c.op+" "), nil
}

type notCond struct{ c Cond }

// Not negates a condition.
func Not(c Cond) Cond { return notCond{c} }

func (c notCond) render(r *renderer) (string, error) {
	s, err := r.cond(c.c)
	if err != nil || s == "" {
		return s, err
	}
	return "NOT (" + s + ")", nil
}

type filterCond map[string]any

// Filter returns a condition built from "field__lookup" keys by the
// builder's lookup collection, e.g. {"age__gte": 18}.
func Filter(filters map[string]any) Cond { return filterCond(filters) }

func (c filterCond) render(r *renderer) (string, error) {
	return r.lookups.Build(r.params, c)
}

type existsCond struct {
	q   Query
	not bool
}

// Exists returns an EXISTS (subquery) condition.
func Exists(q Query) Cond { return existsCond{q: q} }

// NotExists returns a NOT EXISTS (subquery) condition.
func NotExists(q Query) Cond { return existsCond{q: q, not: true} }

func (c existsCond) render(r *renderer) (string, error) {
	s, err := c.q.render(r)
	if err != nil {
		return "", err
	}
	if c.not {
		return "NOT EXISTS (" + s + ")", nil
	}
	return "EXISTS (" + s + ")", nil
}

type columnsCond struct {
	op          string
	left, right string
}

// ColumnsEQ returns a condition comparing two columns, as used in join
// clauses: ColumnsEQ("u.id", "p.user_id").
func ColumnsEQ(left, right string) Cond { return ColumnsOp("=", left, right) }

// ColumnsOp returns the condition "left operator right" over two columns.
func ColumnsOp(operator, left, right string) Cond {
	return columnsCond{op: operator, left: left, right: right}
}

func (c columnsCond) render(r *renderer) (string, error) {
	return r.column(c.left) + " " + c.op + " " + r.column(c.right), nil
}
