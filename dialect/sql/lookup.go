package sql

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
)

// LookupSeparator separates a field name from its lookup in a filter key.
const LookupSeparator = "__"

// LookupKind identifies a filter operator.
type LookupKind uint8

// Lookup kinds. Kinds after LookupRange are recognized but have no default
// implementation; filtering with them produces no condition.
const (
	LookupUnknown LookupKind = iota
	LookupExact
	LookupIsNull
	LookupIn
	LookupGT
	LookupGTE
	LookupLT
	LookupLTE
	LookupContains
	LookupStartsWith
	LookupEndsWith
	LookupRange
	LookupIContains
	LookupIStartsWith
	LookupIEndsWith
	LookupYear
	LookupMonth
	LookupDay
	LookupWeekDay
	LookupHour
	LookupMinute
	LookupSecond
	LookupSearch
	LookupRegex
	LookupIRegex
)

var lookupNames = [...]string{
	LookupUnknown:     "unknown",
	LookupExact:       "exact",
	LookupIsNull:      "isnull",
	LookupIn:          "in",
	LookupGT:          "gt",
	LookupGTE:         "gte",
	LookupLT:          "lt",
	LookupLTE:         "lte",
	LookupContains:    "contains",
	LookupStartsWith:  "startswith",
	LookupEndsWith:    "endswith",
	LookupRange:       "range",
	LookupIContains:   "icontains",
	LookupIStartsWith: "istartswith",
	LookupIEndsWith:   "iendswith",
	LookupYear:        "year",
	LookupMonth:       "month",
	LookupDay:         "day",
	LookupWeekDay:     "week_day",
	LookupHour:        "hour",
	LookupMinute:      "minute",
	LookupSecond:      "second",
	LookupSearch:      "search",
	LookupRegex:       "regex",
	LookupIRegex:      "iregex",
}

// String returns the lookup name as written in filter keys.
func (k LookupKind) String() string {
	if int(k) < len(lookupNames) {
		return lookupNames[k]
	}
	return lookupNames[LookupUnknown]
}

// ParseLookupKind returns the kind for a lookup name.
func ParseLookupKind(name string) (LookupKind, bool) {
	for k, n := range lookupNames {
		if k != int(LookupUnknown) && n == name {
			return LookupKind(k), true
		}
	}
	return LookupUnknown, false
}

// ParsedFilter is one "field__lookup" filter entry after parsing.
type ParsedFilter struct {
	Key    string
	Field  string
	Lookup string
	Kind   LookupKind
	Value  any
}

// ParseFilter parses a filter key. A key without a separator uses the exact
// lookup. Keys with more than one separator are rejected, as multi-level
// lookups are not implemented.
func ParseFilter(key string, value any) (ParsedFilter, error) {
	parts := strings.Split(key, LookupSeparator)
	f := ParsedFilter{Key: key, Field: parts[0], Value: value, Kind: LookupExact, Lookup: LookupExact.String()}
	if f.Field == "" {
		return f, &InvalidFilterValueError{Key: key, Reason: "empty field name"}
	}
	switch len(parts) {
	case 1:
	case 2:
		f.Lookup = parts[1]
		f.Kind, _ = ParseLookupKind(parts[1])
	default:
		return f, &InvalidFilterValueError{Key: key, Reason: "multi-level lookups are not implemented"}
	}
	return f, nil
}

// Field is the column a lookup applies to.
type Field struct {
	// Name is the field as written in the filter key.
	Name string
	// Column is the dialect-quoted column.
	Column string
}

// LookupFunc renders one lookup, binding its values into p.
type LookupFunc func(p Params, f Field, v any) (string, error)

// LookupCollection maps lookup kinds to their fragment generators.
type LookupCollection map[LookupKind]LookupFunc

// DefaultLookups returns the lookups shared by all dialects.
func DefaultLookups() LookupCollection {
	return LookupCollection{
		LookupExact:      lookupExact,
		LookupIsNull:     lookupIsNull,
		LookupIn:         lookupIn,
		LookupGT:         compare(">"),
		LookupGTE:        compare(">="),
		LookupLT:         compare("<"),
		LookupLTE:        compare("<="),
		LookupContains:   like(LookupContains, "%", "%"),
		LookupStartsWith: like(LookupStartsWith, "", "%"),
		LookupEndsWith:   like(LookupEndsWith, "%", ""),
		LookupRange:      lookupRange,
	}
}

func lookupExact(p Params, f Field, v any) (string, error) {
	if isNil(v) {
		return f.Column + " IS NULL", nil
	}
	return f.Column + " = " + p.bind(f.Name, v), nil
}

func lookupIsNull(p Params, f Field, v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", &InvalidFilterValueError{Key: f.Name + LookupSeparator + "isnull", Reason: fmt.Sprintf("expect bool, got %T", v)}
	}
	if b {
		return f.Column + " IS NULL", nil
	}
	return f.Column + " IS NOT NULL", nil
}

func lookupIn(p Params, f Field, v any) (string, error) {
	vs, ok := toSlice(v)
	if !ok {
		return "", &InvalidFilterValueError{Key: f.Name + LookupSeparator + "in", Reason: fmt.Sprintf("expect a list, got %T", v)}
	}
	if len(vs) == 0 {
		return "0=1", nil
	}
	return f.Column + " IN (" + bindAll(p, f.Name, vs) + ")", nil
}

func compare(op string) LookupFunc {
	return func(p Params, f Field, v any) (string, error) {
		return f.Column + " " + op + " " + p.bind(f.Name, v), nil
	}
}

// like matches a pattern built from v, which must be non-nil.
func like(kind LookupKind, before, after string) LookupFunc {
	return func(p Params, f Field, v any) (string, error) {
		if v == nil {
			return "", &InvalidFilterValueError{Key: f.Name + LookupSeparator + kind.String(), Reason: "expect a value, got nil"}
		}
		return f.Column + " LIKE " + p.bind(f.Name, before+fmt.Sprint(v)+after), nil
	}
}

func lookupRange(p Params, f Field, v any) (string, error) {
	vs, ok := toSlice(v)
	if !ok || len(vs) != 2 {
		return "", &InvalidFilterValueError{Key: f.Name + LookupSeparator + "range", Reason: "expect exactly two bounds"}
	}
	return f.Column + " BETWEEN " + p.bind(f.Name, vs[0]) + " AND " + p.bind(f.Name, vs[1]), nil
}

func bindAll(p Params, hint string, vs []any) string {
	ph := make([]string, len(vs))
	for i, v := range vs {
		ph[i] = p.bind(hint, v)
	}
	return strings.Join(ph, ", ")
}

// toSlice converts any slice or array, except []byte, to []any.
func toSlice(v any) ([]any, bool) {
	if vs, ok := v.([]any); ok {
		return vs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	vs := make([]any, rv.Len())
	for i := range vs {
		vs[i] = rv.Index(i).Interface()
	}
	return vs, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// LookupBuilder translates filter maps into WHERE fragments.
type LookupBuilder struct {
	lookups LookupCollection
	quote   func(string) string
	log     *slog.Logger
}

// LookupOption configures a LookupBuilder.
type LookupOption func(*LookupBuilder)

// WithLookupLogger sets the logger reporting skipped lookups.
func WithLookupLogger(l *slog.Logger) LookupOption {
	return func(b *LookupBuilder) {
		b.log = l
	}
}

// NewLookupBuilder returns a builder over the given collection. quote
// quotes column names and may be nil.
func NewLookupBuilder(c LookupCollection, quote func(string) string, opts ...LookupOption) *LookupBuilder {
	b := &LookupBuilder{lookups: c, quote: quote, log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	if b.quote == nil {
		b.quote = func(s string) string { return s }
	}
	return b
}

// Condition renders a single parsed filter. Lookups without an
// implementation return an empty fragment.
func (b *LookupBuilder) Condition(p Params, f ParsedFilter) (string, error) {
	if b == nil || b.lookups == nil {
		return "", fmt.Errorf("%w: lookup collection", ErrNotConfigured)
	}
	fn, ok := b.lookups[f.Kind]
	if !ok {
		b.log.Warn("dialect/sql: lookup not implemented, filter ignored", "key", f.Key, "lookup", f.Lookup)
		return "", nil
	}
	return fn(p, Field{Name: f.Field, Column: b.quote(f.Field)}, f.Value)
}

// Build renders all filters joined with AND. Keys are processed in sorted
// order so the output is stable.
func (b *LookupBuilder) Build(p Params, filters map[string]any) (string, error) {
	if b == nil || b.lookups == nil {
		return "", fmt.Errorf("%w: lookup collection", ErrNotConfigured)
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		f, err := ParseFilter(k, filters[k])
		if err != nil {
			return "", err
		}
		s, err := b.Condition(p, f)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " AND "), nil
}
