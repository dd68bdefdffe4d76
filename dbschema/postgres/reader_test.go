package postgres_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	qt "github.com/frankban/quicktest"

	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/dbschema/postgres"
)

func TestReader_ReadSchema(t *testing.T) {
	c := qt.New(t)

	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer db.Close()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("pages"))

	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "column_name", "data_type", "udt_name", "is_nullable", "column_default",
			"character_maximum_length", "numeric_precision", "numeric_scale", "is_identity",
		}).
			AddRow("pages", "uid", "integer", "int4", "NO", nil, nil, 32, 0, "YES").
			AddRow("pages", "legacy_id", "bigint", "int8", "NO", "nextval('pages_legacy_id_seq'::regclass)", nil, 64, 0, "NO").
			AddRow("pages", "title", "character varying", "varchar", "NO", "''::character varying", 255, nil, nil, "NO").
			AddRow("pages", "price", "numeric", "numeric", "YES", nil, nil, 10, 2, "NO").
			AddRow("pages", "crdate", "timestamp without time zone", "timestamp", "YES", "CURRENT_TIMESTAMP", nil, nil, nil, "NO").
			AddRow("pages", "status", "USER-DEFINED", "page_status", "YES", nil, nil, nil, nil, "NO").
			AddRow("other_view", "x", "integer", "int4", "YES", nil, nil, 32, 0, "NO"))

	mock.ExpectQuery(`FROM pg_index ix`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"tablename", "indexname", "indexdef", "indisprimary", "indisunique"}).
			AddRow("pages", "pages_pkey", "CREATE UNIQUE INDEX pages_pkey ON public.pages USING btree (uid)", true, true).
			AddRow("pages", "pages_parent", `CREATE INDEX pages_parent ON public.pages USING btree (legacy_id, "title")`, false, false).
			AddRow("pages", "pages_slug", "CREATE UNIQUE INDEX pages_slug ON public.pages USING btree (title)", false, true).
			AddRow("pages", "idx_legacy", "CREATE INDEX idx_legacy ON public.pages USING btree (legacy_id)", false, false))

	schema, err := postgres.NewPostgreSQLReader(db, "").ReadSchema(context.Background(), "")
	c.Assert(err, qt.IsNil)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)

	c.Assert(schema.Len(), qt.Equals, 1)
	pages := schema.Table("pages")
	c.Assert(pages.Columns, qt.DeepEquals, []sqlschema.Column{
		{Name: "uid", Type: "integer", AutoIncrement: true},
		{Name: "legacy_id", Type: "bigint", AutoIncrement: true},
		{Name: "title", Type: "varchar(255)", Default: sqlschema.StringPtr("''")},
		{Name: "price", Type: "numeric(10,2)", Nullable: true},
		{Name: "crdate", Type: "timestamp", Nullable: true, Default: sqlschema.StringPtr("CURRENT_TIMESTAMP")},
		{Name: "status", Type: "page_status", Nullable: true},
	})
	c.Assert(pages.Indexes, qt.DeepEquals, []sqlschema.Index{
		{Name: "PRIMARY", Kind: sqlschema.IndexPrimary, Columns: []string{"uid"}, Relation: "pages_pkey"},
		{Name: "parent", Kind: sqlschema.IndexKey, Columns: []string{"legacy_id", "title"}, Relation: "pages_parent"},
		{Name: "slug", Kind: sqlschema.IndexUnique, Columns: []string{"title"}, Relation: "pages_slug"},
		{Name: "idx_legacy", Kind: sqlschema.IndexKey, Columns: []string{"legacy_id"}, Relation: "idx_legacy"},
	})
}

func TestReader_ExplicitSchema(t *testing.T) {
	c := qt.New(t)

	db, mock, err := sqlmock.New()
	c.Assert(err, qt.IsNil)
	defer db.Close()

	mock.ExpectQuery(`FROM information_schema.tables`).
		WithArgs("cms").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectQuery(`FROM information_schema.columns`).
		WithArgs("cms").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "column_name", "data_type", "udt_name", "is_nullable", "column_default",
			"character_maximum_length", "numeric_precision", "numeric_scale", "is_identity",
		}))
	mock.ExpectQuery(`FROM pg_index ix`).
		WithArgs("cms").
		WillReturnRows(sqlmock.NewRows([]string{"tablename", "indexname", "indexdef", "indisprimary", "indisunique"}))

	schema, err := postgres.NewPostgreSQLReader(db, "public").ReadSchema(context.Background(), "cms")
	c.Assert(err, qt.IsNil)
	c.Assert(schema.Len(), qt.Equals, 0)
	c.Assert(mock.ExpectationsWereMet(), qt.IsNil)
}
