package sql

import (
	"regexp"
	"testing"

	"github.com/syssam/dbal/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builder(t testing.TB, name string, opts ...AdapterOption) *Builder {
	t.Helper()
	b, err := Dialect(name, opts...)
	require.NoError(t, err)
	return b
}

func TestFactoryNotConfigured(t *testing.T) {
	_, err := NewFactory(nil).Builder()
	require.ErrorIs(t, err, ErrNotConfigured)

	a, err := NewAdapter(dialect.MySQL)
	require.NoError(t, err)
	_, err = NewFactory(a, WithLookups(nil)).Builder()
	require.ErrorIs(t, err, ErrNotConfigured)

	_, _, err = Query{}.Build()
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestSelect(t *testing.T) {
	b := builder(t, dialect.MySQL)
	tests := []struct {
		name   string
		q      Query
		want   string
		params Params
	}{
		{
			name: "star",
			q:    b.From("users"),
			want: "SELECT * FROM `users`",
		},
		{
			name:   "where_order_limit",
			q:      b.Select("id", "name").From("users").Where(EQ("status", "active")).OrderBy("-created_at").Limit(10),
			want:   "SELECT `id`, `name` FROM `users` WHERE `status` = :status ORDER BY `created_at` DESC LIMIT 10",
			params: Params{"status": "active"},
		},
		{
			name: "distinct_alias",
			q:    b.Select("u.id", "u.name AS n").Distinct().From("users AS u"),
			want: "SELECT DISTINCT `u`.`id`, `u`.`name` `n` FROM `users` `u`",
		},
		{
			name: "join",
			q: b.Select("u.id", "p.title").From("users u").
				LeftJoin("posts p", ColumnsEQ("u.id", "p.user_id")).
				InnerJoin("groups g", And(ColumnsEQ("g.id", "u.group_id"), EQ("g.active", true))),
			want: "SELECT `u`.`id`, `p`.`title` FROM `users` `u` LEFT JOIN `posts` `p` ON `u`.`id` = `p`.`user_id` " +
				"INNER JOIN `groups` `g` ON (`g`.`id` = `u`.`group_id`) AND (`g`.`active` = :g_active)",
			params: Params{"g_active": true},
		},
		{
			name:   "group_having",
			q:      b.Select("user_id", "COUNT(*) AS n").From("orders").GroupBy("user_id").Having(GT("n", 1)),
			want:   "SELECT `user_id`, COUNT(*) AS n FROM `orders` GROUP BY `user_id` HAVING `n` > :n",
			params: Params{"n": 1},
		},
		{
			name: "order_terms",
			q:    b.From("users").OrderBy("name", "age desc", "?"),
			want: "SELECT * FROM `users` ORDER BY `name`, `age` DESC, RAND()",
		},
		{
			name: "offset_only",
			q:    b.From("users").Offset(20),
			want: "SELECT * FROM `users` LIMIT 20, 18446744073709551615",
		},
		{
			name:   "hash",
			q:      b.From("users").Where(HashEq(map[string]any{"status": "a", "id": []int{1, 2}, "deleted_at": nil})),
			want:   "SELECT * FROM `users` WHERE `deleted_at` IS NULL AND `id` IN (:id, :id_1) AND `status` = :status",
			params: Params{"id": 1, "id_1": 2, "status": "a"},
		},
		{
			name:   "or_not",
			q:      b.From("users").Where(EQ("a", 1)).OrWhere(Not(In("b", 2, 3))),
			want:   "SELECT * FROM `users` WHERE (`a` = :a) OR (NOT (`b` IN (:b, :b_1)))",
			params: Params{"a": 1, "b": 2, "b_1": 3},
		},
		{
			name:   "subquery",
			q:      b.From("users").Where(Op("in", "id", b.Select("user_id").From("posts").Where(GT("likes", 10)))),
			want:   "SELECT * FROM `users` WHERE `id` IN (SELECT `user_id` FROM `posts` WHERE `likes` > :likes)",
			params: Params{"likes": 10},
		},
		{
			name:   "exists",
			q:      b.From("users u").Where(Exists(b.Select("p.id").From("posts p").Where(ColumnsEQ("p.user_id", "u.id")))),
			want:   "SELECT * FROM `users` `u` WHERE EXISTS (SELECT `p`.`id` FROM `posts` `p` WHERE `p`.`user_id` = `u`.`id`)",
			params: Params{},
		},
		{
			name:   "raw",
			q:      b.From("users").Where(Raw("[[age]] > :min", Params{"min": 3})),
			want:   "SELECT * FROM `users` WHERE `age` > :min",
			params: Params{"min": 3},
		},
		{
			name:   "between_null",
			q:      b.From("users").Where(And(Between("age", 1, 9), NEQ("email", nil), IsNull("x"))),
			want:   "SELECT * FROM `users` WHERE (`age` BETWEEN :age AND :age_1) AND (`email` IS NOT NULL) AND (`x` IS NULL)",
			params: Params{"age": 1, "age_1": 9},
		},
		{
			name:   "typed",
			q:      b.From("users").Where(And(TypedField[int]("age").GTE(18), String("name").HasPrefix("a"))),
			want:   "SELECT * FROM `users` WHERE (`age` >= :age) AND (`name` LIKE :name)",
			params: Params{"age": 18, "name": "a%"},
		},
		{
			name: "empty_in",
			q:    b.From("users").Where(In("id")),
			want: "SELECT * FROM `users` WHERE 0=1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, params, err := tt.q.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.params == nil {
				tt.params = Params{}
			}
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestSelectPagination(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{dialect.MySQL, "SELECT * FROM `t` LIMIT 10, 5"},
		{dialect.Postgres, `SELECT * FROM "t" LIMIT 5 OFFSET 10`},
		{dialect.SQLite, "SELECT * FROM `t` LIMIT 5 OFFSET 10"},
	}
	for _, tt := range tests {
		got, err := builder(t, tt.dialect).From("t").Limit(5).Offset(10).ToSQL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSelectUnion(t *testing.T) {
	q := func(b *Builder) Query {
		return b.From("a").Union(b.From("b"), true).Union(b.From("c"), false)
	}
	got, err := q(builder(t, dialect.MySQL)).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "(SELECT * FROM `a`) UNION ALL (SELECT * FROM `b`) UNION (SELECT * FROM `c`)", got)

	got, err = q(builder(t, dialect.SQLite)).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `a` UNION ALL SELECT * FROM `b` UNION SELECT * FROM `c`", got)

	// SQLite rejects ORDER BY and LIMIT on compound members.
	b := builder(t, dialect.SQLite)
	got, err = b.Select("name").From("users").OrderBy("id").Limit(1).
		Union(b.Select("name").From("users"), false).
		Union(b.From("a").Union(b.From("b"), true), false).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT `name` FROM `users` ORDER BY `id` LIMIT 1) UNION SELECT `name` FROM `users`"+
		" UNION SELECT * FROM (SELECT * FROM `a` UNION ALL SELECT * FROM `b`)", got)

	got, err = builder(t, dialect.Postgres).From("a").Limit(1).Union(builder(t, dialect.Postgres).From("b"), false).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `(SELECT * FROM "a" LIMIT 1) UNION (SELECT * FROM "b")`, got)
}

func TestSelectTablePrefix(t *testing.T) {
	got, err := builder(t, dialect.Postgres, WithTablePrefix("app_")).
		Select("[[id]]").From("{{%users}}").Where(Raw("[[id]] = 1", nil)).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "app_users" WHERE "id" = 1`, got)

	got, err = builder(t, dialect.Postgres, WithTablePrefix("app_")).From("%users").ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "app_users"`, got)
}

func TestQueryImmutable(t *testing.T) {
	b := builder(t, dialect.SQLite)
	base := b.Select("id").From("users").Where(EQ("active", true))
	q1 := base.Select("name").OrderBy("name")
	q2 := base.Select("email").Limit(3)

	s1, _, err := q1.Build()
	require.NoError(t, err)
	s2, _, err := q2.Build()
	require.NoError(t, err)
	s0, p0, err := base.Build()
	require.NoError(t, err)

	assert.Equal(t, "SELECT `id`, `name` FROM `users` WHERE `active` = :active ORDER BY `name`", s1)
	assert.Equal(t, "SELECT `id`, `email` FROM `users` WHERE `active` = :active LIMIT 3", s2)
	assert.Equal(t, "SELECT `id` FROM `users` WHERE `active` = :active", s0)

	// Building again yields the same output.
	again, pAgain, err := base.Build()
	require.NoError(t, err)
	assert.Equal(t, s0, again)
	assert.Equal(t, p0, pAgain)
}

func TestPlaceholdersUnique(t *testing.T) {
	b := builder(t, dialect.Postgres)
	q := b.From("users").
		Where(And(EQ("age", 1), GT("age", 5))).
		Filter(map[string]any{"age__lt": 10, "age__in": []int{7, 8}})
	got, params, err := q.Build()
	require.NoError(t, err)
	require.Len(t, params, 5)
	seen := make(map[string]bool)
	for _, ph := range placeholderRe.FindAllString(got, -1) {
		name := ph[1:]
		assert.False(t, seen[name], "placeholder %s used twice", name)
		seen[name] = true
		assert.Contains(t, params, name)
	}
	assert.Len(t, seen, len(params))
}

var placeholderRe = regexp.MustCompile(`:\w+`)

func TestDuplicateRawParams(t *testing.T) {
	b := builder(t, dialect.MySQL)
	_, _, err := b.From("t").Where(And(Raw("a = :x", Params{"x": 1}), Raw("b = :x", Params{"x": 2}))).Build()
	require.Error(t, err)
}

func TestUnsupportedOperator(t *testing.T) {
	b := builder(t, dialect.MySQL)
	_, _, err := b.From("t").Where(Op("~~", "a", 1)).Build()
	require.Error(t, err)
	_, _, err = b.From("t").Where(Op("between", "a", 1)).Build()
	require.Error(t, err)
}

func TestInsert(t *testing.T) {
	tests := []struct {
		dialect string
		values  map[string]any
		want    string
		params  Params
	}{
		{
			dialect: dialect.MySQL,
			values:  map[string]any{"name": "a8m", "age": 30},
			want:    "INSERT INTO `users` (`age`, `name`) VALUES (:age, :name)",
			params:  Params{"age": 30, "name": "a8m"},
		},
		{
			dialect: dialect.Postgres,
			values:  map[string]any{"name": "a8m", "created_at": Expr("NOW()")},
			want:    `INSERT INTO "users" ("created_at", "name") VALUES (NOW(), :name)`,
			params:  Params{"name": "a8m"},
		},
		{
			dialect: dialect.MySQL,
			want:    "INSERT INTO `users` () VALUES ()",
			params:  Params{},
		},
		{
			dialect: dialect.Postgres,
			want:    `INSERT INTO "users" DEFAULT VALUES`,
			params:  Params{},
		},
		{
			dialect: dialect.SQLite,
			want:    "INSERT INTO `users` DEFAULT VALUES",
			params:  Params{},
		},
	}
	for _, tt := range tests {
		got, params, err := builder(t, tt.dialect).Insert("users", tt.values)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.params, params)
	}
}

func TestBatchInsert(t *testing.T) {
	b := builder(t, dialect.Postgres)
	got, params, err := b.BatchInsert("users", []string{"id", "name"}, [][]any{{1, "a"}, {2, "b"}})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("id", "name") VALUES (:id, :name), (:id_1, :name_1)`, got)
	assert.Equal(t, Params{"id": 1, "name": "a", "id_1": 2, "name_1": "b"}, params)

	_, _, err = b.BatchInsert("users", []string{"id", "name"}, [][]any{{1}})
	require.Error(t, err)
	_, _, err = b.BatchInsert("users", nil, nil)
	require.Error(t, err)
}

func TestUpdateDelete(t *testing.T) {
	b := builder(t, dialect.MySQL)
	got, params, err := b.Update("users", map[string]any{"age": 3}, EQ("age", 2))
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `age` = :age WHERE `age` = :age_1", got)
	assert.Equal(t, Params{"age": 3, "age_1": 2}, params)

	got, params, err = b.Update("users", map[string]any{"name": "x", "score": Expr("score + 1")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `users` SET `name` = :name, `score` = score + 1", got)
	assert.Equal(t, Params{"name": "x"}, params)

	_, _, err = b.Update("users", nil, nil)
	require.Error(t, err)

	got, params, err = b.Delete("users", Filter(map[string]any{"id__in": []int{1, 2}}))
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `id` IN (:id, :id_1)", got)
	assert.Equal(t, Params{"id": 1, "id_1": 2}, params)

	got, _, err = b.Delete("users", nil)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users`", got)
}
