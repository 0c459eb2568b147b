package sql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned when an adapter or builder is used before
	// its driver handle or lookup collection is bound.
	ErrNotConfigured = errors.New("dialect/sql: not configured")

	// ErrNotSupported is returned for statements the dialect cannot express.
	ErrNotSupported = errors.New("dialect/sql: not supported by dialect")
)

// UnknownColumnTypeError is returned when an abstract column type has no
// mapping in the dialect's type table.
type UnknownColumnTypeError struct {
	Dialect string
	Type    string
}

// Error returns the error string.
func (e *UnknownColumnTypeError) Error() string {
	return fmt.Sprintf("dialect/sql: unknown column type %q for dialect %s", e.Type, e.Dialect)
}

// IsUnknownColumnType returns true if the error is an UnknownColumnTypeError.
func IsUnknownColumnType(err error) bool {
	var e *UnknownColumnTypeError
	return errors.As(err, &e)
}

// InvalidFilterValueError is returned when a filter key or value cannot be
// translated into a condition, e.g. a range lookup without exactly two bounds.
type InvalidFilterValueError struct {
	Key    string
	Reason string
}

// Error returns the error string.
func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("dialect/sql: invalid filter %q: %s", e.Key, e.Reason)
}

// IsInvalidFilterValue returns true if the error is an InvalidFilterValueError.
func IsInvalidFilterValue(err error) bool {
	var e *InvalidFilterValueError
	return errors.As(err, &e)
}

// notSupported wraps ErrNotSupported with the statement and dialect names.
func notSupported(dialect, stmt string) error {
	return fmt.Errorf("%w: %s on %s", ErrNotSupported, stmt, dialect)
}

// errorCoder is implemented by pq.Error and modernc.org/sqlite errors.
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by drivers exposing numeric error codes.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by errors that provide SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// violation describes how each driver reports one kind of constraint failure.
type violation struct {
	sqlState     string
	mysqlNumbers []uint16
	messages     []string
}

var (
	uniqueViolation = violation{
		sqlState:     pgUniqueViolation,
		mysqlNumbers: []uint16{mysqlDuplicateEntry},
		messages:     []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKeyViolation = violation{
		sqlState:     pgForeignKeyViolation,
		mysqlNumbers: []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		messages:     []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkViolation = violation{
		sqlState:     pgCheckViolation,
		mysqlNumbers: []uint16{mysqlCheckConstraintViolate},
		messages:     []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
)

func (v violation) match(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == v.sqlState {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == v.sqlState {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok {
		for _, n := range v.mysqlNumbers {
			if e.Number() == n {
				return true
			}
		}
	}
	// Fallback to string matching for drivers that don't implement interfaces.
	return containsAny(err.Error(), v.messages...)
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool { return uniqueViolation.match(err) }

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool { return foreignKeyViolation.match(err) }

// IsCheckConstraintError reports if the error resulted from a check constraint violation.
func IsCheckConstraintError(err error) bool { return checkViolation.match(err) }

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
