package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/dbal/dialect"
)

// Params maps named placeholders (without the leading colon) to their values.
type Params map[string]any

// Expr is a raw SQL expression used as a value. It is rendered verbatim
// instead of being bound as a parameter.
type Expr string

// bind records v under a placeholder name derived from hint that is unique
// within p, and returns the placeholder text.
func (p Params) bind(hint string, v any) string {
	if e, ok := v.(Expr); ok {
		return string(e)
	}
	base := placeholderName(hint)
	name := base
	for i := 1; ; i++ {
		if _, ok := p[name]; !ok {
			break
		}
		name = base + "_" + strconv.Itoa(i)
	}
	p[name] = v
	return ":" + name
}

// merge copies caller-named params into p. A name bound twice is an error,
// since both fragments would silently share one value.
func (p Params) merge(other Params) error {
	for k, v := range other {
		k = strings.TrimPrefix(k, ":")
		if _, ok := p[k]; ok {
			return fmt.Errorf("dialect/sql: duplicate parameter %q", k)
		}
		p[k] = v
	}
	return nil
}

// placeholderName turns a field reference such as "u.age" into a name made of
// letters, digits and underscores.
func placeholderName(hint string) string {
	var sb strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		case r == '.' || r == ' ' || r == '-':
			sb.WriteByte('_')
		}
	}
	name := strings.Trim(sb.String(), "_")
	if name == "" {
		return "p"
	}
	if name[0] >= '0' && name[0] <= '9' {
		return "p" + name
	}
	return name
}

// BindNamed rewrites the :name placeholders of query to the positional
// markers of the dialect ("$1" for PostgreSQL, "?" otherwise) and returns
// the values in marker order. Quoted strings, quoted identifiers, comments
// and "::" casts are copied untouched. A placeholder without a value is an
// error.
func BindNamed(d, query string, p Params) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.Grow(len(query))
	for i := 0; i < len(query); {
		switch c := query[i]; {
		case c == '\'' || c == '"' || c == '`':
			j := skipQuoted(d, query, i)
			sb.WriteString(query[i:j])
			i = j
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				j = len(query) - i
			}
			sb.WriteString(query[i : i+j])
			i += j
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			j := strings.Index(query[i+2:], "*/")
			if j < 0 {
				j = len(query) - i
			} else {
				j += 4
			}
			sb.WriteString(query[i : i+j])
			i += j
		case c == ':' && strings.HasPrefix(query[i:], "::"):
			sb.WriteString("::")
			i += 2
		case c == ':' && i+1 < len(query) && isNameStart(query[i+1]):
			j := i + 1
			for j < len(query) && isNamePart(query[j]) {
				j++
			}
			name := query[i+1 : j]
			v, ok := p[name]
			if !ok {
				return "", nil, fmt.Errorf("dialect/sql: missing value for parameter %q", name)
			}
			args = append(args, v)
			if d == dialect.Postgres {
				sb.WriteString("$" + strconv.Itoa(len(args)))
			} else {
				sb.WriteByte('?')
			}
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), args, nil
}

// skipQuoted returns the index just past the quoted token starting at i.
// A doubled quote character escapes itself. MySQL also accepts backslash
// escapes in strings.
func skipQuoted(d, query string, i int) int {
	q := query[i]
	for j := i + 1; j < len(query); j++ {
		switch {
		case query[j] == '\\' && q != '`' && d == dialect.MySQL:
			j++
		case query[j] == q:
			if j+1 < len(query) && query[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(query)
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNamePart(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}
