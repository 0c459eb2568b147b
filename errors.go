package dbal

import (
	"errors"
	"fmt"

	"github.com/syssam/dbal/dialect/sql"
)

// ErrTxDone is returned when a Tx is used after Commit or Rollback.
var ErrTxDone = errors.New("dbal: transaction has already been committed or rolled back")

// ExecutionError wraps a failure reported by the database for a statement.
// The message keeps the native driver text.
type ExecutionError struct {
	SQL string // Statement after placeholder rebinding
	Err error  // Driver error
}

// Error returns the error string.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("dbal: executing %q: %v", e.SQL, e.Err)
}

// Unwrap returns the driver error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}

// BindError is returned when the named parameters of a statement cannot be
// rebound, typically because a placeholder has no value. Nothing was sent to
// the database.
type BindError struct {
	SQL string
	Err error
}

// Error returns the error string.
func (e *BindError) Error() string {
	return fmt.Sprintf("dbal: binding %q: %v", e.SQL, e.Err)
}

// Unwrap returns the underlying error.
func (e *BindError) Unwrap() error {
	return e.Err
}

// IsBindError returns true if the error is a BindError.
func IsBindError(err error) bool {
	var e *BindError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err      error // Error returned by the transaction body
	Rollback error // Error returned by Rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("dbal: rollback failed: %v (after: %v)", e.Rollback, e.Err)
}

// Unwrap returns both errors.
func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.Rollback}
}

// IsUniqueConstraintError reports whether err is a unique constraint
// violation, in any of the supported dialects.
func IsUniqueConstraintError(err error) bool { return sql.IsUniqueConstraintError(err) }

// IsForeignKeyConstraintError reports whether err is a foreign key
// constraint violation.
func IsForeignKeyConstraintError(err error) bool { return sql.IsForeignKeyConstraintError(err) }

// IsCheckConstraintError reports whether err is a check constraint
// violation.
func IsCheckConstraintError(err error) bool { return sql.IsCheckConstraintError(err) }

// IsConstraintError reports whether err is any constraint violation.
func IsConstraintError(err error) bool { return sql.IsConstraintError(err) }
