package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/modelq"
	"github.com/syssam/modelq/dialect"
	"github.com/syssam/modelq/dialect/sql"
	"github.com/syssam/modelq/schema/edge"
	"github.com/syssam/modelq/schema/field"
)

func articleModels(t *testing.T) (article, comment *modelq.Model) {
	t.Helper()
	r := modelq.NewRegistry()
	require.NoError(t, r.Register(
		modelq.Definition{
			Name: "Article",
			Fields: []field.Field{
				field.Serial("id"),
				field.Text("title").NotNull(),
				field.Text("summary"),
				field.Count("comment_count", "comments"),
			},
			Edges: []edge.Edge{edge.HasMany("comments", "Comment")},
		},
		modelq.Definition{
			Name:   "Comment",
			Fields: []field.Field{field.Serial("id"), field.Text("body")},
			Edges:  []edge.Edge{edge.BelongsTo("article", "Article")},
		},
	))
	require.NoError(t, r.Link())
	return r.MustModel("Article"), r.MustModel("Comment")
}

// revisionProperty builds a detached property the way a schema diff would:
// declared on a throwaway model representing the next revision.
func revisionProperty(t *testing.T, f field.Field) *modelq.Property {
	t.Helper()
	r := modelq.NewRegistry()
	require.NoError(t, r.Register(modelq.Definition{
		Name:   "Revision",
		Fields: []field.Field{field.Serial("id"), f},
	}))
	require.NoError(t, r.Link())
	p, ok := r.MustModel("Revision").Property(f.Descriptor().Name)
	require.True(t, ok)
	return p
}

func migrateFixture(t *testing.T, opts ...MigrateOption) (*Migrate, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMigrate(sql.OpenDB(dialect.Postgres, db), opts...), mock
}

func TestCreateQuery(t *testing.T) {
	article, comment := articleModels(t)
	m := NewMigrate(nil)

	t.Run("skips_virtual_properties", func(t *testing.T) {
		query, args := m.CreateQuery(article)
		assert.Equal(t,
			`CREATE TABLE IF NOT EXISTS "articles" ("id" serial PRIMARY KEY, "title" text NOT NULL, "summary" text)`,
			query,
		)
		assert.Empty(t, args)
	})

	t.Run("synthesized_foreign_key", func(t *testing.T) {
		query, _ := m.CreateQuery(comment)
		assert.Equal(t,
			`CREATE TABLE IF NOT EXISTS "comments" ("id" serial PRIMARY KEY, "body" text, "article_id" integer REFERENCES "articles"("id"))`,
			query,
		)
	})

	t.Run("schema_qualified", func(t *testing.T) {
		query, _ := NewMigrate(nil, WithSchemaName("app")).CreateQuery(article)
		assert.Equal(t,
			`CREATE TABLE IF NOT EXISTS "app"."articles" ("id" serial PRIMARY KEY, "title" text NOT NULL, "summary" text)`,
			query,
		)
	})
}

func TestCreate(t *testing.T) {
	article, comment := articleModels(t)

	t.Run("creates_tables_in_order", func(t *testing.T) {
		m, mock := migrateFixture(t)
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "articles" ("id" serial PRIMARY KEY, "title" text NOT NULL, "summary" text)`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "comments" ("id" serial PRIMARY KEY, "body" text, "article_id" integer REFERENCES "articles"("id"))`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.Create(context.Background(), article, comment))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates_schema_first", func(t *testing.T) {
		m, mock := migrateFixture(t, WithSchemaName("app"))
		mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "app"`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "app"."articles" ("id" serial PRIMARY KEY, "title" text NOT NULL, "summary" text)`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.Create(context.Background(), article))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps_driver_errors", func(t *testing.T) {
		m, mock := migrateFixture(t)
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "articles" ("id" serial PRIMARY KEY, "title" text NOT NULL, "summary" text)`).
			WillReturnError(errors.New("permission denied"))

		err := m.Create(context.Background(), article)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `create table "articles"`)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAlterQuery(t *testing.T) {
	article, _ := articleModels(t)
	m := NewMigrate(nil)

	t.Run("add_drop_modify", func(t *testing.T) {
		summary, ok := article.Property("summary")
		require.True(t, ok)
		changes := Changes{
			Added:   []*modelq.Property{revisionProperty(t, field.Int("views").NotNull())},
			Removed: []*modelq.Property{summary},
			Changed: []*modelq.Property{revisionProperty(t, field.String("title", 200))},
		}
		query, args, ok := m.AlterQuery(article, changes)
		require.True(t, ok)
		assert.Equal(t,
			`ALTER TABLE "articles" ADD COLUMN "views" integer NOT NULL, DROP COLUMN "summary", ALTER COLUMN "title" TYPE varchar(200)`,
			query,
		)
		assert.Empty(t, args)
	})

	t.Run("empty_changes", func(t *testing.T) {
		_, _, ok := m.AlterQuery(article, Changes{})
		assert.False(t, ok)
	})

	t.Run("only_virtual_changes", func(t *testing.T) {
		changes := Changes{
			Added: []*modelq.Property{revisionProperty(t, field.Int("cached").Virtual())},
		}
		_, _, ok := m.AlterQuery(article, changes)
		assert.False(t, ok)
	})
}

// TestAlterRoundTrip checks that adding and then removing the same
// property restores the original column list: the ADD COLUMN clause
// carries exactly the column text the next revision's CREATE would, and
// the DROP names the same column.
func TestAlterRoundTrip(t *testing.T) {
	article, _ := articleModels(t)
	m := NewMigrate(nil)
	views := revisionProperty(t, field.Int("views").NotNull())

	before, _ := m.CreateQuery(article)

	addQuery, _, ok := m.AlterQuery(article, Changes{Added: []*modelq.Property{views}})
	require.True(t, ok)
	assert.Equal(t, `ALTER TABLE "articles" ADD COLUMN "views" integer NOT NULL`, addQuery)

	// The added column text matches what a CREATE of the next revision
	// would emit for it.
	r := modelq.NewRegistry()
	require.NoError(t, r.Register(modelq.Definition{
		Name: "Article",
		Fields: []field.Field{
			field.Serial("id"),
			field.Text("title").NotNull(),
			field.Text("summary"),
			field.Int("views").NotNull(),
		},
	}))
	require.NoError(t, r.Link())
	after, _ := m.CreateQuery(r.MustModel("Article"))
	assert.Contains(t, after, `"views" integer NOT NULL`)

	dropQuery, _, ok := m.AlterQuery(article, Changes{Removed: []*modelq.Property{views}})
	require.True(t, ok)
	assert.Equal(t, `ALTER TABLE "articles" DROP COLUMN "views"`, dropQuery)

	// Dropping what was added leaves the original column list.
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "articles" ("id" serial PRIMARY KEY, "title" text NOT NULL, "summary" text)`, before)
}

func TestAlter(t *testing.T) {
	article, _ := articleModels(t)

	t.Run("executes_statement", func(t *testing.T) {
		m, mock := migrateFixture(t)
		mock.ExpectExec(`ALTER TABLE "articles" ADD COLUMN "views" integer`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		changes := Changes{Added: []*modelq.Property{revisionProperty(t, field.Int("views"))}}
		require.NoError(t, m.Alter(context.Background(), article, changes))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no_exec_on_empty_changes", func(t *testing.T) {
		m, mock := migrateFixture(t)
		require.NoError(t, m.Alter(context.Background(), article, Changes{}))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDropQuery(t *testing.T) {
	article, _ := articleModels(t)

	query, _ := NewMigrate(nil).DropQuery(article, false)
	assert.Equal(t, `DROP TABLE IF EXISTS "articles"`, query)

	query, _ = NewMigrate(nil).DropQuery(article, true)
	assert.Equal(t, `DROP TABLE IF EXISTS "articles" CASCADE`, query)

	query, _ = NewMigrate(nil, WithSchemaName("app")).DropQuery(article, true)
	assert.Equal(t, `DROP TABLE IF EXISTS "app"."articles" CASCADE`, query)
}

func TestRawMigrations(t *testing.T) {
	t.Run("deduplicates_by_content", func(t *testing.T) {
		m, _ := migrateFixture(t)
		assert.True(t, m.Raw(`CREATE INDEX "idx_articles_title" ON "articles" ("title")`, `DROP INDEX "idx_articles_title"`))
		assert.False(t, m.Raw(`CREATE INDEX "idx_articles_title" ON "articles" ("title")`, `DROP INDEX "idx_articles_title"`))
		assert.Equal(t, 1, m.RawCount())
	})

	t.Run("apply_in_registration_order", func(t *testing.T) {
		m, mock := migrateFixture(t)
		m.Raw("CREATE INDEX a ON t (x)", "DROP INDEX a")
		m.Raw("CREATE INDEX b ON t (y)", "DROP INDEX b")

		mock.ExpectExec("CREATE INDEX a ON t (x)").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX b ON t (y)").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.ApplyRaw(context.Background()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback_in_reverse_order", func(t *testing.T) {
		m, mock := migrateFixture(t)
		m.Raw("CREATE INDEX a ON t (x)", "DROP INDEX a")
		m.Raw("ANALYZE t", "") // no inverse, skipped on rollback
		m.Raw("CREATE INDEX b ON t (y)", "DROP INDEX b")

		mock.ExpectExec("DROP INDEX b").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DROP INDEX a").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, m.RollbackRaw(context.Background()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("apply_error_names_migration", func(t *testing.T) {
		m, mock := migrateFixture(t)
		m.Raw("CREATE INDEX a ON t (x)", "DROP INDEX a")

		mock.ExpectExec("CREATE INDEX a ON t (x)").WillReturnError(errors.New("exists"))

		err := m.ApplyRaw(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "raw migration")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
