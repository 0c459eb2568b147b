package sql

// EQ returns a "field = value" condition.
func EQ(field string, v any) Cond { return Op("=", field, v) }

// NEQ returns a "field <> value" condition.
func NEQ(field string, v any) Cond { return Op("<>", field, v) }

// GT returns a "field > value" condition.
func GT(field string, v any) Cond { return Op(">", field, v) }

// GTE returns a "field >= value" condition.
func GTE(field string, v any) Cond { return Op(">=", field, v) }

// LT returns a "field < value" condition.
func LT(field string, v any) Cond { return Op("<", field, v) }

// LTE returns a "field <= value" condition.
func LTE(field string, v any) Cond { return Op("<=", field, v) }

// In returns a "field IN (...)" condition.
func In(field string, vs ...any) Cond { return Op("IN", field, vs) }

// NotIn returns a "field NOT IN (...)" condition.
func NotIn(field string, vs ...any) Cond { return Op("NOT IN", field, vs) }

// Between returns a "field BETWEEN low AND high" condition.
func Between(field string, low, high any) Cond { return Op("BETWEEN", field, []any{low, high}) }

// Like returns a "field LIKE pattern" condition. The pattern is bound as is.
func Like(field, pattern string) Cond { return Op("LIKE", field, pattern) }

// Contains returns a condition matching values containing substr.
func Contains(field, substr string) Cond { return Like(field, "%"+substr+"%") }

// HasPrefix returns a condition matching values starting with prefix.
func HasPrefix(field, prefix string) Cond { return Like(field, prefix+"%") }

// HasSuffix returns a condition matching values ending with suffix.
func HasSuffix(field, suffix string) Cond { return Like(field, "%"+suffix) }

// IsNull returns a "field IS NULL" condition.
func IsNull(field string) Cond { return nullCond{field: field} }

// NotNull returns a "field IS NOT NULL" condition.
func NotNull(field string) Cond { return nullCond{field: field, not: true} }

// TypedField is a column name carrying the Go type of its values, so that
// predicates built from it are checked at compile time.
//
// Usage:
//
//	var Age = sql.TypedField[int]("age")
//	q.Where(Age.GTE(18))
type TypedField[T any] string

// Name returns the field name.
func (f TypedField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f TypedField[T]) EQ(v T) Cond { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f TypedField[T]) NEQ(v T) Cond { return NEQ(string(f), v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f TypedField[T]) GT(v T) Cond { return GT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f TypedField[T]) GTE(v T) Cond { return GTE(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f TypedField[T]) LT(v T) Cond { return LT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f TypedField[T]) LTE(v T) Cond { return LTE(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f TypedField[T]) In(vs ...T) Cond { return Op("IN", string(f), vs) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f TypedField[T]) NotIn(vs ...T) Cond { return Op("NOT IN", string(f), vs) }

// IsNull returns a predicate that checks if the field is NULL.
func (f TypedField[T]) IsNull() Cond { return IsNull(string(f)) }

// NotNull returns a predicate that checks if the field is not NULL.
func (f TypedField[T]) NotNull() Cond { return NotNull(string(f)) }

// StringField is a string column with pattern-matching predicates.
type StringField struct{ TypedField[string] }

// String returns a StringField for the given column.
func String(name string) StringField { return StringField{TypedField[string](name)} }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) Cond { return Contains(f.Name(), v) }

// HasPrefix returns a predicate that checks if the field has the given prefix.
func (f StringField) HasPrefix(v string) Cond { return HasPrefix(f.Name(), v) }

// HasSuffix returns a predicate that checks if the field has the given suffix.
func (f StringField) HasSuffix(v string) Cond { return HasSuffix(f.Name(), v) }
