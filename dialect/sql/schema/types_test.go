package schema

import (
	"testing"

	"github.com/syssam/dbal/dialect"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		dialect string
		native  string
		typ     string
		size    int
	}{
		{dialect.MySQL, "int(11)", "int", 11},
		{dialect.MySQL, "int(10) unsigned", "int", 10},
		{dialect.MySQL, "tinyint(1)", "bool", 1},
		{dialect.MySQL, "tinyint(4)", "smallint", 4},
		{dialect.MySQL, "varchar(255)", "string", 255},
		{dialect.MySQL, "decimal(10,2)", "decimal", 10},
		{dialect.MySQL, "enum('a','b')", "string", 0},
		{dialect.MySQL, "longblob", "binary", 0},
		{dialect.MySQL, "geometry", "string", 0},
		{dialect.Postgres, "integer", "int", 0},
		{dialect.Postgres, "character varying", "string", 0},
		{dialect.Postgres, "timestamp without time zone", "timestamp", 0},
		{dialect.Postgres, "double precision", "double", 0},
		{dialect.Postgres, "boolean", "bool", 0},
		{dialect.Postgres, "bytea", "binary", 0},
		{dialect.Postgres, "jsonb", "text", 0},
		{dialect.SQLite, "INTEGER", "int", 0},
		{dialect.SQLite, "VARCHAR(64)", "string", 64},
		{dialect.SQLite, "unsigned big int", "int", 0},
		{dialect.SQLite, "nvarchar(20)", "string", 20},
		{dialect.SQLite, "", "binary", 0},
		{dialect.SQLite, "floating point", "int", 0},
		{dialect.SQLite, "real", "float", 0},
		{dialect.SQLite, "whatever", "decimal", 0},
	}
	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.native, func(t *testing.T) {
			typ, size := normalize(tt.dialect, tt.native)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.size, size)
		})
	}
}
