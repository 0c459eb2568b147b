package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is one problem found by a validation pass.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking marks changes that lose data or fail on existing rows.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult collects the errors and warnings of a validation pass.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors reports whether any error was found.
func (r *ValidationResult) HasErrors() bool { return len(r.Errors) > 0 }

// HasWarnings reports whether any warning was found.
func (r *ValidationResult) HasWarnings() bool { return len(r.Warnings) > 0 }

// HasBreakingChanges reports whether an error or warning is breaking.
func (r *ValidationResult) HasBreakingChanges() bool {
	breaking := func(e *ValidationError) bool { return e.Breaking }
	return slices.ContainsFunc(r.Errors, breaking) || slices.ContainsFunc(r.Warnings, breaking)
}

func (r *ValidationResult) String() string {
	if !r.HasErrors() && !r.HasWarnings() {
		return "No issues found"
	}
	var b strings.Builder
	section := func(title string, list []*ValidationError) {
		if len(list) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, e := range list {
			b.WriteString("  - " + e.Error())
			if e.Breaking {
				b.WriteString(" [BREAKING]")
			}
			b.WriteByte('\n')
		}
	}
	section("Errors", r.Errors)
	section("Warnings", r.Warnings)
	return b.String()
}

// add records e as an error, or as a warning when allowed is set.
func (r *ValidationResult) add(e *ValidationError, allowed bool) {
	if allowed {
		r.Warnings = append(r.Warnings, e)
	} else {
		r.Errors = append(r.Errors, e)
	}
}

func (r *ValidationResult) warn(table, column, format string, args ...any) {
	r.Warnings = append(r.Warnings, &ValidationError{Table: table, Column: column, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) merge(other *ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ValidateOption configures ValidateDiff.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn    bool
	allowDropTable     bool
	allowDropIndex     bool
	allowNullToNotNull bool
}

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) { c.allowDropColumn = true }
}

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) { c.allowDropTable = true }
}

// AllowDropIndex reports dropped indexes as warnings.
func AllowDropIndex() ValidateOption {
	return func(c *validateConfig) { c.allowDropIndex = true }
}

// AllowNullToNotNull reports NULL to NOT NULL changes as warnings.
func AllowNullToNotNull() ValidateOption {
	return func(c *validateConfig) { c.allowNullToNotNull = true }
}

// ValidateDiff compares the current tables with the desired ones, usually a
// live database against an imported snapshot, and reports what a migration
// between them would break.
//
//	result := schema.ValidateDiff(current, desired)
//	if result.HasBreakingChanges() {
//		log.Fatal(result)
//	}
func ValidateDiff(current, desired []*TableSchema, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	want := byName(desired)
	for _, t := range current {
		d, ok := want[t.Name]
		if !ok {
			result.add(&ValidationError{Table: t.Name, Message: "table will be dropped", Breaking: true}, cfg.allowDropTable)
			continue
		}
		diffTable(t, d, cfg, result)
	}
	return result
}

func byName(tables []*TableSchema) map[string]*TableSchema {
	m := make(map[string]*TableSchema, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}

func diffTable(current, desired *TableSchema, cfg *validateConfig, result *ValidationResult) {
	name := current.Name
	for _, c := range current.Columns {
		if desired.Column(c.Name) == nil {
			result.add(&ValidationError{Table: name, Column: c.Name, Message: "column will be dropped", Breaking: true}, cfg.allowDropColumn)
		}
	}
	unique := uniqueColumns(current)
	for col := range uniqueColumns(desired) {
		if !unique[col] && current.Column(col) != nil {
			result.warn(name, col, "adding UNIQUE constraint may fail if duplicate values exist")
		}
	}
	for _, want := range desired.Columns {
		have := current.Column(want.Name)
		switch {
		case have == nil:
			if !want.Nullable && want.Default == nil && !want.AutoIncrement {
				result.warn(name, want.Name, "new NOT NULL column without default value may fail if table has data")
			}
			continue
		case have.Type != want.Type:
			result.warn(name, want.Name, "column type changing from %s to %s", have.Type, want.Type)
		case have.Size > 0 && want.Size > 0 && want.Size < have.Size:
			result.warn(name, want.Name, "column size reducing from %d to %d may truncate data", have.Size, want.Size)
		}
		if have.Nullable && !want.Nullable {
			result.add(&ValidationError{
				Table:    name,
				Column:   want.Name,
				Message:  "column changing from NULL to NOT NULL may fail if column has NULL values",
				Breaking: true,
			}, cfg.allowNullToNotNull)
		}
	}
	for _, idx := range current.Indexes {
		if !idx.Primary && desired.Index(idx.Name) == nil {
			result.add(&ValidationError{Table: name, Message: fmt.Sprintf("index %q will be dropped", idx.Name)}, cfg.allowDropIndex)
		}
	}
}

// uniqueColumns returns the columns covered by a single-column unique index.
func uniqueColumns(t *TableSchema) map[string]bool {
	cols := make(map[string]bool)
	for _, idx := range t.Indexes {
		if idx.Unique && !idx.Primary && len(idx.Columns) == 1 {
			cols[idx.Columns[0]] = true
		}
	}
	return cols
}

// ValidateTable checks a single table for internal consistency.
func ValidateTable(t *TableSchema) *ValidationResult {
	result := &ValidationResult{}
	if len(t.PrimaryKey) == 0 {
		result.warn(t.Name, "", "table has no primary key")
	}
	cols := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if cols[c.Name] {
			result.Errors = append(result.Errors, &ValidationError{Table: t.Name, Column: c.Name, Message: "duplicate column name"})
		}
		cols[c.Name] = true
	}
	seen := make(map[string]bool, len(t.Indexes))
	for _, idx := range t.Indexes {
		if seen[idx.Name] {
			result.Errors = append(result.Errors, &ValidationError{Table: t.Name, Message: "duplicate index name: " + idx.Name})
		}
		seen[idx.Name] = true
		for _, c := range idx.Columns {
			if !cols[c] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("index %q references non-existent column %q", idx.Name, c),
				})
			}
		}
	}
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			if !cols[c] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key %q references non-existent column %q", fk.Name, c),
				})
			}
		}
	}
	return result
}

// ValidateSchema validates every table and the foreign key targets between
// them.
func ValidateSchema(tables []*TableSchema) *ValidationResult {
	result := &ValidationResult{}
	names := make(map[string]bool, len(tables))
	for _, t := range tables {
		if names[t.Name] {
			result.Errors = append(result.Errors, &ValidationError{Table: t.Name, Message: "duplicate table name"})
		}
		names[t.Name] = true
		result.merge(ValidateTable(t))
	}
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if !names[fk.RefTable] {
				result.Errors = append(result.Errors, &ValidationError{
					Table:   t.Name,
					Message: fmt.Sprintf("foreign key references non-existent table %q", fk.RefTable),
				})
			}
		}
	}
	return result
}
