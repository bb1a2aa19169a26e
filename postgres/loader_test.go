package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemakit/schemakit/schema"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func columnRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"column_name", "data_type", "udt_name", "is_nullable", "is_identity",
		"column_default", "character_maximum_length", "numeric_precision", "numeric_scale",
	})
}

func TestLoadTableSchema(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.columns`).
		WithArgs("posts", "").
		WillReturnRows(columnRows().
			AddRow("id", "bigint", "int8", "NO", "YES", nil, 0, 64, 0).
			AddRow("title", "character varying", "varchar", "NO", "NO", nil, 255, 0, 0).
			AddRow("published", "boolean", "bool", "YES", "NO", "false", 0, 0, 0))
	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("posts", "", "PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("posts_pkey", "id"))

	ts, err := loader.LoadTableSchema(context.Background(), schema.ResolveTableName("posts", ""))
	require.NoError(t, err)
	require.NotNil(t, ts)

	assert.Equal(t, "posts", ts.Name)
	assert.Equal(t, []string{"id", "title", "published"}, ts.ColumnNames())
	assert.Equal(t, []string{"id"}, ts.PrimaryKey)

	id := ts.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, schema.TypeBigInt, id.Type)
	assert.True(t, id.AutoIncrement)
	assert.True(t, id.PrimaryKey)
	assert.False(t, id.Nullable)

	title := ts.Column("title")
	require.NotNil(t, title)
	assert.Equal(t, schema.TypeString, title.Type)
	assert.Equal(t, 255, title.Size)

	published := ts.Column("published")
	require.NotNil(t, published)
	assert.Equal(t, schema.TypeBoolean, published.Type)
	assert.True(t, published.Nullable)
	assert.Equal(t, "false", published.Default)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTableSchema_MissingTable(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.columns`).
		WithArgs("ghost", "").
		WillReturnRows(columnRows())

	ts, err := loader.LoadTableSchema(context.Background(), schema.ResolveTableName("ghost", ""))
	require.NoError(t, err)
	assert.Nil(t, ts)
}

func TestLoadTableSchema_SerialDefault(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.columns`).
		WithArgs("posts", "").
		WillReturnRows(columnRows().
			AddRow("id", "integer", "int4", "NO", "NO", "nextval('posts_id_seq'::regclass)", 0, 32, 0))
	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("posts", "", "PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))

	ts, err := loader.LoadTableSchema(context.Background(), schema.ResolveTableName("posts", ""))
	require.NoError(t, err)
	require.NotNil(t, ts)

	id := ts.Column("id")
	assert.True(t, id.AutoIncrement)
	// A sequence default is not a user default.
	assert.Nil(t, id.Default)
}

func TestLoadPrimaryKey_Composite(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("post_tags", "public", "PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("post_tags_pkey", "post_id").
			AddRow("post_tags_pkey", "tag_id"))

	pk, err := loader.LoadPrimaryKey(context.Background(), schema.ResolveTableName("public.post_tags", ""))
	require.NoError(t, err)
	require.NotNil(t, pk)
	assert.Equal(t, "post_tags_pkey", pk.Name)
	assert.Equal(t, []string{"post_id", "tag_id"}, pk.Columns)
}

func TestLoadPrimaryKey_None(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("logs", "", "PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))

	pk, err := loader.LoadPrimaryKey(context.Background(), schema.ResolveTableName("logs", ""))
	require.NoError(t, err)
	assert.Nil(t, pk)
}

func TestLoadUniques_GroupsByConstraint(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("users", "", "UNIQUE").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("users_email_key", "email").
			AddRow("users_org_name_key", "org_id").
			AddRow("users_org_name_key", "name"))

	uniques, err := loader.LoadUniques(context.Background(), schema.ResolveTableName("users", ""))
	require.NoError(t, err)
	require.Len(t, uniques, 2)
	assert.Equal(t, []string{"email"}, uniques[0].Columns)
	assert.Equal(t, []string{"org_id", "name"}, uniques[1].Columns)
}

func TestLoadForeignKeys(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("posts", "").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "column_name", "table_schema", "table_name",
			"foreign_column_name", "update_rule", "delete_rule",
		}).AddRow("posts_author_fkey", "author_id", "public", "users", "id", "NO ACTION", "CASCADE"))

	fks, err := loader.LoadForeignKeys(context.Background(), schema.ResolveTableName("posts", ""))
	require.NoError(t, err)
	require.Len(t, fks, 1)

	fk := fks[0]
	assert.Equal(t, "posts_author_fkey", fk.Name)
	assert.Equal(t, []string{"author_id"}, fk.Columns)
	assert.Equal(t, "users", fk.ForeignTable)
	assert.Equal(t, []string{"id"}, fk.ForeignColumns)
	assert.Equal(t, schema.ActionCascade, fk.OnDelete)
	assert.Equal(t, schema.ActionNoAction, fk.OnUpdate)
}

func TestLoadForeignKeys_CompositeKeepsColumnPairing(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	// A two-column key must yield exactly one row per referencing column,
	// each carrying its positionally matched referenced column.
	mock.ExpectQuery(`position_in_unique_constraint`).
		WithArgs("order_items", "").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "column_name", "table_schema", "table_name",
			"foreign_column_name", "update_rule", "delete_rule",
		}).
			AddRow("order_items_order_fkey", "order_id", "public", "orders", "id", "NO ACTION", "CASCADE").
			AddRow("order_items_order_fkey", "order_region", "public", "orders", "region", "NO ACTION", "CASCADE"))

	fks, err := loader.LoadForeignKeys(context.Background(), schema.ResolveTableName("order_items", ""))
	require.NoError(t, err)
	require.Len(t, fks, 1)

	fk := fks[0]
	assert.Equal(t, []string{"order_id", "order_region"}, fk.Columns)
	assert.Equal(t, []string{"id", "region"}, fk.ForeignColumns)
}

func TestLoadIndexes_GroupsColumns(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM pg_index`).
		WithArgs("posts", "").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "attname", "indisunique", "indisprimary"}).
			AddRow("posts_pkey", "id", true, true).
			AddRow("posts_slug_idx", "slug", true, false).
			AddRow("posts_search_idx", "author_id", false, false).
			AddRow("posts_search_idx", "created_at", false, false))

	indexes, err := loader.LoadIndexes(context.Background(), schema.ResolveTableName("posts", ""))
	require.NoError(t, err)
	require.Len(t, indexes, 3)

	assert.True(t, indexes[0].Primary)
	assert.Equal(t, []string{"slug"}, indexes[1].Columns)
	assert.Equal(t, []string{"author_id", "created_at"}, indexes[2].Columns)
	assert.False(t, indexes[2].Unique)
}

func TestLoadDefaults_SkipsSequences(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`column_default IS NOT NULL`).
		WithArgs("posts", "").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_default"}).
			AddRow("id", "nextval('posts_id_seq'::regclass)").
			AddRow("status", "'draft'::text"))

	defaults, err := loader.LoadDefaults(context.Background(), schema.ResolveTableName("posts", ""))
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	assert.Equal(t, []string{"status"}, defaults[0].Columns)
	assert.Equal(t, "'draft'::text", defaults[0].Value)
}

func TestLoadChecks(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM pg_constraint`).
		WithArgs("products", "").
		WillReturnRows(sqlmock.NewRows([]string{"conname", "definition", "attname"}).
			AddRow("products_price_check", "CHECK ((price > 0))", "price"))

	checks, err := loader.LoadChecks(context.Background(), schema.ResolveTableName("products", ""))
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "products_price_check", checks[0].Name)
	assert.Equal(t, "((price > 0))", checks[0].Expression)
	assert.Equal(t, []string{"price"}, checks[0].Columns)
}

func TestFindTableNames(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.tables`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("posts").
			AddRow("users"))

	names, err := loader.FindTableNames(context.Background(), "public")
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, names)
}

func TestFindSchemaNames(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.schemata`).
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).
			AddRow("audit").
			AddRow("public"))

	names, err := loader.FindSchemaNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "public"}, names)
}

func TestFindViewNames(t *testing.T) {
	db, mock := setupTestDB(t)
	loader := NewLoader(db)

	mock.ExpectQuery(`FROM information_schema\.views`).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	names, err := loader.FindViewNames(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSessionOverPostgresLoader(t *testing.T) {
	db, mock := setupTestDB(t)
	session := schema.NewSession(NewLoader(db), schema.Config{})

	mock.ExpectQuery(`FROM information_schema\.table_constraints`).
		WithArgs("posts", "", "PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("posts_pkey", "id"))

	ctx := context.Background()
	pk, err := session.TablePrimaryKey(ctx, "posts", false)
	require.NoError(t, err)
	require.NotNil(t, pk)

	// Second read is memoized; the single ExpectQuery above is enough.
	_, err = session.TablePrimaryKey(ctx, "posts", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
