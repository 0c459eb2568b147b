package sql

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/syssam/dbal/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("age__gte", 18)
	require.NoError(t, err)
	assert.Equal(t, "age", f.Field)
	assert.Equal(t, LookupGTE, f.Kind)
	assert.Equal(t, 18, f.Value)

	f, err = ParseFilter("name", "a8m")
	require.NoError(t, err)
	assert.Equal(t, LookupExact, f.Kind)
	assert.Equal(t, "exact", f.Lookup)

	f, err = ParseFilter("name__soundex", "x")
	require.NoError(t, err)
	assert.Equal(t, LookupUnknown, f.Kind)
	assert.Equal(t, "soundex", f.Lookup)

	for _, key := range []string{"a__b__c", "__gt", ""} {
		_, err := ParseFilter(key, 1)
		require.Error(t, err, key)
		assert.True(t, IsInvalidFilterValue(err), key)
	}
}

func TestLookupKindString(t *testing.T) {
	for k := LookupExact; k <= LookupIRegex; k++ {
		got, ok := ParseLookupKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseLookupKind("unknown")
	assert.False(t, ok)
	assert.Equal(t, "unknown", LookupKind(200).String())
}

func mysqlLookups(opts ...LookupOption) *LookupBuilder {
	a, _ := NewAdapter(dialect.MySQL)
	return NewLookupBuilder(a.Lookups(), a.QuoteIdentifier, opts...)
}

func TestLookupBuilder(t *testing.T) {
	tests := []struct {
		name    string
		filters map[string]any
		want    string
		params  Params
	}{
		{
			name:    "gte",
			filters: map[string]any{"age__gte": 18},
			want:    "`age` >= :age",
			params:  Params{"age": 18},
		},
		{
			name:    "exact",
			filters: map[string]any{"name": "a8m"},
			want:    "`name` = :name",
			params:  Params{"name": "a8m"},
		},
		{
			name:    "exact_nil",
			filters: map[string]any{"deleted_at__exact": nil},
			want:    "`deleted_at` IS NULL",
			params:  Params{},
		},
		{
			name:    "isnull",
			filters: map[string]any{"deleted_at__isnull": true, "email__isnull": false},
			want:    "`deleted_at` IS NULL AND `email` IS NOT NULL",
			params:  Params{},
		},
		{
			name:    "in",
			filters: map[string]any{"id__in": []int{1, 2, 3}},
			want:    "`id` IN (:id, :id_1, :id_2)",
			params:  Params{"id": 1, "id_1": 2, "id_2": 3},
		},
		{
			name:    "in_empty",
			filters: map[string]any{"id__in": []int{}},
			want:    "0=1",
			params:  Params{},
		},
		{
			name:    "like",
			filters: map[string]any{"a__contains": "x", "b__startswith": "y", "c__endswith": "z"},
			want:    "`a` LIKE :a AND `b` LIKE :b AND `c` LIKE :c",
			params:  Params{"a": "%x%", "b": "y%", "c": "%z"},
		},
		{
			name:    "range",
			filters: map[string]any{"age__range": []int{18, 65}},
			want:    "`age` BETWEEN :age AND :age_1",
			params:  Params{"age": 18, "age_1": 65},
		},
		{
			name:    "same_field",
			filters: map[string]any{"age__gt": 18, "age__lt": 65},
			want:    "`age` > :age AND `age` < :age_1",
			params:  Params{"age": 18, "age_1": 65},
		},
		{
			name:    "dotted",
			filters: map[string]any{"u.age__lte": 3},
			want:    "`u`.`age` <= :u_age",
			params:  Params{"u_age": 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Params{}
			got, err := mysqlLookups().Build(p, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.params, p)
		})
	}
}

func TestLookupBuilderErrors(t *testing.T) {
	for _, filters := range []map[string]any{
		{"age__range": []int{1}},
		{"age__range": []int{1, 2, 3}},
		{"age__range": 5},
		{"deleted_at__isnull": "yes"},
		{"id__in": 1},
		{"a__b__c": 1},
		{"name__contains": nil},
		{"name__startswith": nil},
		{"name__endswith": nil},
	} {
		_, err := mysqlLookups().Build(Params{}, filters)
		require.Error(t, err, filters)
		assert.True(t, IsInvalidFilterValue(err), filters)
	}

	_, err := NewLookupBuilder(nil, nil).Build(Params{}, map[string]any{"a": 1})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestLookupBuilderSkipsUnimplemented(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	p := Params{}
	got, err := mysqlLookups(WithLookupLogger(l)).Build(p, map[string]any{
		"name__icontains": "x",
		"created__year":   2024,
		"title__soundex":  "y",
		"id":              7,
	})
	require.NoError(t, err)
	assert.Equal(t, "`id` = :id", got)
	assert.Equal(t, Params{"id": 7}, p)
	assert.Contains(t, buf.String(), "name__icontains")
	assert.Contains(t, buf.String(), "created__year")
	assert.Contains(t, buf.String(), "title__soundex")
}

func TestLookupCollectionOverride(t *testing.T) {
	c := DefaultLookups()
	c[LookupIContains] = func(p Params, f Field, v any) (string, error) {
		return "LOWER(" + f.Column + ") LIKE LOWER(" + p.bind(f.Name, v) + ")", nil
	}
	p := Params{}
	got, err := NewLookupBuilder(c, nil).Build(p, map[string]any{"name__icontains": "%A%"})
	require.NoError(t, err)
	assert.Equal(t, "LOWER(name) LIKE LOWER(:name)", got)
	assert.Equal(t, Params{"name": "%A%"}, p)
}
