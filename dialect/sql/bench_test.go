package sql

import (
	"testing"

	"github.com/syssam/dbal/dialect"
)

var benchDialects = []string{dialect.SQLite, dialect.MySQL, dialect.Postgres}

func benchBuilder(b *testing.B, name string) *Builder {
	qb, err := Dialect(name)
	if err != nil {
		b.Fatal(err)
	}
	return qb
}

func BenchmarkInsert(b *testing.B) {
	values := map[string]any{
		"id": 1, "age": 30, "first_name": "Ariel", "last_name": "Mashraki",
		"nickname": "a8m", "created_at": "2009-11-10 23:00:00",
	}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			qb := benchBuilder(b, d)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _, _ = qb.Insert("users", values)
			}
		})
	}
}

func BenchmarkSelect_Simple(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			qb := benchBuilder(b, d)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _, _ = qb.Select("id", "name", "email").From("users").Build()
			}
		})
	}
}

func BenchmarkSelect_WithJoins(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			qb := benchBuilder(b, d)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _, _ = qb.Select("u.id", "u.name", "p.title").
					From("users u").
					LeftJoin("posts p", ColumnsEQ("u.id", "p.user_id")).
					Where(EQ("u.active", true)).
					OrderBy("-u.created_at").
					Limit(10).
					Build()
			}
		})
	}
}

func BenchmarkSelect_Filter(b *testing.B) {
	filters := map[string]any{
		"age__gte":          18,
		"name__startswith":  "a",
		"status__in":        []string{"active", "pending"},
		"created_at__range": []string{"2024-01-01", "2024-12-31"},
	}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			qb := benchBuilder(b, d)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _, _ = qb.From("users").Filter(filters).Limit(20).Offset(40).Build()
			}
		})
	}
}

func BenchmarkUpdate(b *testing.B) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			qb := benchBuilder(b, d)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _, _ = qb.Update("users", map[string]any{"name": "a8m", "age": 31}, EQ("id", 1))
			}
		})
	}
}

func BenchmarkCreateTable(b *testing.B) {
	cols := []ColumnSpec{
		{Name: "id", Type: "pk"},
		{Name: "name", Type: "string(64) NOT NULL"},
		{Name: "active", Type: "bool"},
		{Name: "created_at", Type: "datetime"},
	}
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			qb := benchBuilder(b, d)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = qb.CreateTable("users", cols, "")
			}
		})
	}
}
