package sql

import (
	"testing"

	"github.com/syssam/dbal/dialect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	cols := []ColumnSpec{
		{Name: "id", Type: "pk"},
		{Name: "name", Type: "string(64) NOT NULL"},
		{Name: "active", Type: "bool"},
	}
	tests := []struct {
		dialect string
		options string
		want    string
	}{
		{
			dialect: dialect.MySQL,
			options: "ENGINE=InnoDB",
			want: "CREATE TABLE `users` (\n" +
				"\t`id` int(11) NOT NULL AUTO_INCREMENT PRIMARY KEY,\n" +
				"\t`name` varchar(64) NOT NULL,\n" +
				"\t`active` tinyint(1)\n" +
				") ENGINE=InnoDB",
		},
		{
			dialect: dialect.Postgres,
			want: "CREATE TABLE \"users\" (\n" +
				"\t\"id\" serial NOT NULL PRIMARY KEY,\n" +
				"\t\"name\" varchar(64) NOT NULL,\n" +
				"\t\"active\" boolean\n" +
				")",
		},
		{
			dialect: dialect.SQLite,
			want: "CREATE TABLE `users` (\n" +
				"\t`id` integer PRIMARY KEY AUTOINCREMENT NOT NULL,\n" +
				"\t`name` varchar(64) NOT NULL,\n" +
				"\t`active` boolean\n" +
				")",
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			got, err := builder(t, tt.dialect).CreateTable("users", cols, tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateTableConstraint(t *testing.T) {
	got, err := builder(t, dialect.SQLite).CreateTable("post_tags", []ColumnSpec{
		{Name: "post_id", Type: "int NOT NULL"},
		{Name: "tag_id", Type: "int NOT NULL"},
		{Type: "PRIMARY KEY ([[post_id]], [[tag_id]])"},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE `post_tags` (\n\t`post_id` integer NOT NULL,\n\t`tag_id` integer NOT NULL,\n\tPRIMARY KEY (`post_id`, `tag_id`)\n)", got)

	_, err = builder(t, dialect.SQLite).CreateTable("t", []ColumnSpec{{Name: "g", Type: "geometry"}}, "")
	require.True(t, IsUnknownColumnType(err))
	_, err = builder(t, dialect.SQLite).CreateTable("t", nil, "")
	require.Error(t, err)
}

func TestTableStatements(t *testing.T) {
	my, pg, lite := builder(t, dialect.MySQL), builder(t, dialect.Postgres), builder(t, dialect.SQLite)

	assert.Equal(t, "DROP TABLE `t`", my.DropTable("t"))
	assert.Equal(t, `DROP TABLE IF EXISTS "t"`, pg.DropTableIfExists("t"))

	assert.Equal(t, "RENAME TABLE `a` TO `b`", my.RenameTable("a", "b"))
	assert.Equal(t, `ALTER TABLE "a" RENAME TO "b"`, pg.RenameTable("a", "b"))
	assert.Equal(t, "ALTER TABLE `a` RENAME TO `b`", lite.RenameTable("a", "b"))

	assert.Equal(t, "TRUNCATE TABLE `t`", my.Truncate("t"))
	assert.Equal(t, `TRUNCATE TABLE "t"`, pg.Truncate("t"))
	assert.Equal(t, "DELETE FROM `t`", lite.Truncate("t"))
}

func TestColumnStatements(t *testing.T) {
	my, pg, lite := builder(t, dialect.MySQL), builder(t, dialect.Postgres), builder(t, dialect.SQLite)

	got, err := my.AddColumn("t", "c", "string")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` ADD `c` varchar(255)", got)
	got, err = pg.AddColumn("t", "c", "int NOT NULL DEFAULT 0")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "t" ADD COLUMN "c" integer NOT NULL DEFAULT 0`, got)
	got, err = lite.AddColumn("t", "c", "text")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` ADD COLUMN `c` text", got)
	_, err = lite.AddColumn("t", "c", "json")
	require.True(t, IsUnknownColumnType(err))

	assert.Equal(t, "ALTER TABLE `t` DROP COLUMN `c`", my.DropColumn("t", "c"))
	assert.Equal(t, `ALTER TABLE "t" RENAME COLUMN "a" TO "b"`, pg.RenameColumn("t", "a", "b"))
	assert.Equal(t, "ALTER TABLE `t` RENAME COLUMN `a` TO `b`", lite.RenameColumn("t", "a", "b"))

	got, err = my.AlterColumn("t", "c", "bigint")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` CHANGE `c` `c` bigint(20)", got)
	got, err = pg.AlterColumn("t", "c", "bigint")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "t" ALTER COLUMN "c" TYPE bigint`, got)
	_, err = lite.AlterColumn("t", "c", "bigint")
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestIndexStatements(t *testing.T) {
	my, pg := builder(t, dialect.MySQL), builder(t, dialect.Postgres)

	got, err := my.CreateIndex("t", "idx_ab", []string{"a", "b"}, true)
	require.NoError(t, err)
	assert.Equal(t, "CREATE UNIQUE INDEX `idx_ab` ON `t` (`a`, `b`)", got)
	got, err = pg.CreateIndex("t", "idx_a", []string{"a"}, false)
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX "idx_a" ON "t" ("a")`, got)
	_, err = pg.CreateIndex("t", "idx", nil, false)
	require.Error(t, err)

	assert.Equal(t, "DROP INDEX `idx_ab` ON `t`", my.DropIndex("t", "idx_ab"))
	assert.Equal(t, `DROP INDEX "idx_a"`, pg.DropIndex("t", "idx_a"))
}

func TestConstraintStatements(t *testing.T) {
	my, pg, lite := builder(t, dialect.MySQL), builder(t, dialect.Postgres), builder(t, dialect.SQLite)
	fk := ForeignKey{
		Name:       "fk_user",
		Table:      "posts",
		Columns:    []string{"user_id"},
		RefTable:   "users",
		RefColumns: []string{"id"},
		OnDelete:   Cascade,
	}

	got, err := pg.AddForeignKey(fk)
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "posts" ADD CONSTRAINT "fk_user" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`, got)
	fk.OnUpdate = Restrict
	got, err = my.AddForeignKey(fk)
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `posts` ADD CONSTRAINT `fk_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ON DELETE CASCADE ON UPDATE RESTRICT", got)
	_, err = lite.AddForeignKey(fk)
	require.ErrorIs(t, err, ErrNotSupported)
	_, err = my.AddForeignKey(ForeignKey{Name: "x", Table: "a", Columns: []string{"b"}, RefTable: "c"})
	require.Error(t, err)

	got, err = my.DropForeignKey("posts", "fk_user")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `posts` DROP FOREIGN KEY `fk_user`", got)
	got, err = pg.DropForeignKey("posts", "fk_user")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "posts" DROP CONSTRAINT "fk_user"`, got)
	_, err = lite.DropForeignKey("posts", "fk_user")
	require.ErrorIs(t, err, ErrNotSupported)

	got, err = my.AddPrimaryKey("t", "pk_t", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` ADD CONSTRAINT `pk_t` PRIMARY KEY (`a`, `b`)", got)
	_, err = lite.AddPrimaryKey("t", "pk_t", []string{"a"})
	require.ErrorIs(t, err, ErrNotSupported)

	got, err = my.DropPrimaryKey("t", "pk_t")
	require.NoError(t, err)
	assert.Equal(t, "ALTER TABLE `t` DROP PRIMARY KEY", got)
	got, err = pg.DropPrimaryKey("t", "t_pkey")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "t" DROP CONSTRAINT "t_pkey"`, got)
	_, err = lite.DropPrimaryKey("t", "pk_t")
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestResetSequence(t *testing.T) {
	tests := []struct {
		dialect string
		name    string
		start   int
		want    string
	}{
		{dialect.MySQL, "users", 5, "ALTER TABLE `users` AUTO_INCREMENT=5"},
		{dialect.Postgres, "users", 1, `SELECT setval(pg_get_serial_sequence('"users"', 'id'), 1, false)`},
		{dialect.Postgres, "%orders.number", 7, `SELECT setval(pg_get_serial_sequence('"app_orders"', 'number'), 7, false)`},
		{dialect.Postgres, "users_id_seq", 1, `ALTER SEQUENCE "users_id_seq" RESTART WITH 1`},
		{dialect.Postgres, "orders_seq", 3, `ALTER SEQUENCE "orders_seq" RESTART WITH 3`},
		{dialect.SQLite, "users", 5, "INSERT OR REPLACE INTO sqlite_sequence (rowid, name, seq) VALUES " +
			"((SELECT rowid FROM sqlite_sequence WHERE name = 'users'), 'users', 4)"},
		{dialect.SQLite, "{{%users}}", 1, "INSERT OR REPLACE INTO sqlite_sequence (rowid, name, seq) VALUES " +
			"((SELECT rowid FROM sqlite_sequence WHERE name = 'app_users'), 'app_users', 0)"},
	}
	for _, tt := range tests {
		got, err := builder(t, tt.dialect, WithTablePrefix("app_")).ResetSequence(tt.name, tt.start)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := builder(t, dialect.MySQL).ResetSequence("users", 0)
	require.Error(t, err)
}

func TestPortableNames(t *testing.T) {
	pg := builder(t, dialect.Postgres, WithTablePrefix("app_"))
	assert.Equal(t, `DROP TABLE "app_users"`, pg.DropTable("{{%users}}"))
	assert.Equal(t, `DROP TABLE IF EXISTS "app_users"`, pg.DropTableIfExists("{{%users}}"))
	assert.Equal(t, `ALTER TABLE "app_users" RENAME TO "app_people"`, pg.RenameTable("{{%users}}", "{{%people}}"))
	assert.Equal(t, `TRUNCATE TABLE "app_users"`, pg.Truncate("{{%users}}"))
	assert.Equal(t, `ALTER TABLE "app_users" DROP COLUMN "age"`, pg.DropColumn("{{%users}}", "[[age]]"))
	assert.Equal(t, `ALTER TABLE "app_users" RENAME COLUMN "a" TO "b"`, pg.RenameColumn("{{%users}}", "[[a]]", "[[b]]"))
	assert.Equal(t, `DROP INDEX "idx_age"`, pg.DropIndex("{{%users}}", "[[idx_age]]"))

	got, err := pg.AddColumn("{{%users}}", "[[nick]]", "string(32)")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_users" ADD COLUMN "nick" varchar(32)`, got)
	got, err = pg.AlterColumn("{{%users}}", "[[age]]", "bigint")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_users" ALTER COLUMN "age" TYPE bigint`, got)
	got, err = pg.CreateIndex("{{%users}}", "idx_age", []string{"[[age]]"}, false)
	require.NoError(t, err)
	assert.Equal(t, `CREATE INDEX "idx_age" ON "app_users" ("age")`, got)
	got, err = pg.AddForeignKey(ForeignKey{Name: "fk_user", Table: "{{%posts}}", Columns: []string{"user_id"}, RefTable: "{{%users}}", RefColumns: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_posts" ADD CONSTRAINT "fk_user" FOREIGN KEY ("user_id") REFERENCES "app_users" ("id")`, got)
	got, err = pg.DropForeignKey("{{%posts}}", "fk_user")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_posts" DROP CONSTRAINT "fk_user"`, got)
	got, err = pg.AddPrimaryKey("{{%users}}", "pk_users", []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_users" ADD CONSTRAINT "pk_users" PRIMARY KEY ("id")`, got)
	got, err = pg.DropPrimaryKey("{{%users}}", "pk_users")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_users" DROP CONSTRAINT "pk_users"`, got)
	got, err = pg.CheckIntegrity(false, "{{%users}}")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "app_users" DISABLE TRIGGER ALL`, got)
	got, err = pg.ResetSequence("{{%users}}", 2)
	require.NoError(t, err)
	assert.Equal(t, `SELECT setval(pg_get_serial_sequence('"app_users"', 'id'), 2, false)`, got)

	assert.Equal(t, "DROP INDEX `idx_age` ON `app_users`", builder(t, dialect.MySQL, WithTablePrefix("app_")).DropIndex("{{%users}}", "idx_age"))
}

func TestCheckIntegrity(t *testing.T) {
	got, err := builder(t, dialect.MySQL).CheckIntegrity(false, "")
	require.NoError(t, err)
	assert.Equal(t, "SET FOREIGN_KEY_CHECKS = 0", got)

	got, err = builder(t, dialect.Postgres).CheckIntegrity(true, "t")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "t" ENABLE TRIGGER ALL`, got)
	_, err = builder(t, dialect.Postgres).CheckIntegrity(true, "")
	require.Error(t, err)

	got, err = builder(t, dialect.SQLite).CheckIntegrity(true, "")
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA foreign_keys = 1", got)
}
