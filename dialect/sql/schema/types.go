package schema

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/dbal/dialect"
)

// abstractTypes maps lowercase native base types to abstract types.
var abstractTypes = map[string]string{
	"tinyint":    "smallint",
	"smallint":   "smallint",
	"int2":       "smallint",
	"mediumint":  "int",
	"int":        "int",
	"integer":    "int",
	"int4":       "int",
	"serial":     "int",
	"bigint":     "bigint",
	"int8":       "bigint",
	"bigserial":  "bigint",
	"float":      "float",
	"real":       "float",
	"float4":     "float",
	"double":     "double",
	"float8":     "double",
	"decimal":    "decimal",
	"numeric":    "decimal",
	"money":      "money",
	"char":       "string",
	"character":  "string",
	"varchar":    "string",
	"string":     "string",
	"enum":       "string",
	"set":        "string",
	"uuid":       "string",
	"text":       "text",
	"tinytext":   "text",
	"mediumtext": "text",
	"longtext":   "text",
	"clob":       "text",
	"json":       "text",
	"jsonb":      "text",
	"date":       "date",
	"time":       "time",
	"datetime":   "datetime",
	"timestamp":  "timestamp",
	"year":       "date",
	"blob":       "binary",
	"tinyblob":   "binary",
	"longblob":   "binary",
	"mediumblob": "binary",
	"binary":     "binary",
	"varbinary":  "binary",
	"bytea":      "binary",
	"bool":       "bool",
	"boolean":    "bool",
	"bit":        "bool",
}

// nativeType splits "varchar(64)", "int(10) unsigned" or "timestamp(0)
// without time zone" into the leading type word and size.
var nativeType = regexp.MustCompile(`^([a-z][a-z0-9_]*)\s*(?:\((\d+)(?:\s*,\s*\d+)?\))?(?:\s|$)`)

// normalize returns the abstract type and size for a native type string.
func normalize(d, native string) (string, int) {
	typ := strings.ToLower(strings.TrimSpace(native))
	m := nativeType.FindStringSubmatch(typ)
	if m == nil {
		if d == dialect.SQLite {
			return affinity(typ), 0
		}
		return "string", 0
	}
	base, size := m[1], 0
	if m[2] != "" {
		size, _ = strconv.Atoi(m[2])
	}
	if d == dialect.MySQL && base == "tinyint" && size == 1 {
		return "bool", size
	}
	if abs, ok := abstractTypes[base]; ok {
		return abs, size
	}
	if d == dialect.SQLite {
		return affinity(typ), size
	}
	return "string", size
}

// affinity applies SQLite's column affinity rules to declared types the
// table does not know, such as "unsigned big int" or "nvarchar".
func affinity(base string) string {
	switch {
	case strings.Contains(base, "int"):
		return "int"
	case strings.Contains(base, "char"), strings.Contains(base, "clob"), strings.Contains(base, "text"):
		return "string"
	case strings.Contains(base, "blob"), base == "":
		return "binary"
	case strings.Contains(base, "real"), strings.Contains(base, "floa"), strings.Contains(base, "doub"):
		return "double"
	}
	return "decimal"
}
