// Package postgres reads the schema of PostgreSQL databases from information_schema
// and the system catalogs.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stokaro/dbreconcile/core/sqlschema"
)

// Reader reads schema from PostgreSQL databases
type Reader struct {
	db     *sql.DB
	schema string
}

// NewPostgreSQLReader creates a new PostgreSQL schema reader
func NewPostgreSQLReader(db *sql.DB, schema string) *Reader {
	if schema == "" {
		schema = "public"
	}
	return &Reader{
		db:     db,
		schema: schema,
	}
}

// ReadSchema reads the tables, columns and indexes of a PostgreSQL schema. The
// database argument names the schema; empty means the reader's default schema.
//
// Column types are reported in the spelling the postgres statement dialect emits
// (integer, varchar(255), numeric(10,2), timestamp). Index names lose the
// "<table>_" prefix the dialect adds, and the primary key is reported as PRIMARY.
func (r *Reader) ReadSchema(ctx context.Context, database string) (*sqlschema.Schema, error) {
	schemaName := database
	if schemaName == "" {
		schemaName = r.schema
	}

	schema := sqlschema.NewSchema()

	// Read tables
	if err := r.readTables(ctx, schemaName, schema); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}

	// Read columns
	if err := r.readColumns(ctx, schemaName, schema); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	// Read indexes
	if err := r.readIndexes(ctx, schemaName, schema); err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}

	return schema, nil
}

// readTables reads all base tables
func (r *Reader) readTables(ctx context.Context, schemaName string, schema *sqlschema.Schema) error {
	tablesQuery := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := r.db.QueryContext(ctx, tablesQuery, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table: %w", err)
		}
		schema.AddTable(sqlschema.NewTable(name))
	}
	return rows.Err()
}

// readColumns reads the columns of all tables
func (r *Reader) readColumns(ctx context.Context, schemaName string, schema *sqlschema.Schema) error {
	columnsQuery := `
		SELECT
			table_name,
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			is_identity
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	rows, err := r.db.QueryContext(ctx, columnsQuery, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, name, dataType, udtName, nullable, identity string
		var def sql.NullString
		var maxLength, precision, scale sql.NullInt64
		err := rows.Scan(&tableName, &name, &dataType, &udtName, &nullable, &def, &maxLength, &precision, &scale, &identity)
		if err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}

		table := schema.Table(tableName)
		if table == nil {
			continue
		}

		col := sqlschema.Column{
			Name:          name,
			Type:          columnType(dataType, udtName, maxLength, precision, scale),
			Nullable:      nullable == "YES",
			AutoIncrement: identity == "YES",
		}

		// Detect auto increment (SERIAL types)
		if def.Valid {
			if strings.Contains(def.String, "nextval(") && strings.Contains(def.String, "_seq") {
				col.AutoIncrement = true
			} else {
				col.Default = sqlschema.StringPtr(stripCast(def.String))
			}
		}

		table.SetColumn(col)
	}
	return rows.Err()
}

// readIndexes reads all indexes
func (r *Reader) readIndexes(ctx context.Context, schemaName string, schema *sqlschema.Schema) error {
	indexesQuery := `
		SELECT
			t.relname as tablename,
			i.relname as indexname,
			pg_get_indexdef(i.oid) as indexdef,
			ix.indisprimary,
			ix.indisunique
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1
		ORDER BY t.relname, i.relname`

	rows, err := r.db.QueryContext(ctx, indexesQuery, schemaName)
	if err != nil {
		return fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, indexName, indexDef string
		var isPrimary, isUnique bool
		if err := rows.Scan(&tableName, &indexName, &indexDef, &isPrimary, &isUnique); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}

		table := schema.Table(tableName)
		if table == nil {
			continue
		}

		idx := sqlschema.Index{
			Name:     strings.TrimPrefix(indexName, tableName+"_"),
			Kind:     sqlschema.IndexKey,
			Columns:  indexColumns(indexDef),
			Relation: indexName,
		}
		switch {
		case isPrimary:
			idx.Name = sqlschema.PrimaryKeyName
			idx.Kind = sqlschema.IndexPrimary
		case isUnique:
			idx.Kind = sqlschema.IndexUnique
		}
		table.SetIndex(idx)
	}
	return rows.Err()
}

// columnType renders a column type the way the postgres statement dialect spells it.
func columnType(dataType, udtName string, maxLength, precision, scale sql.NullInt64) string {
	switch dataType {
	case "character varying":
		if maxLength.Valid {
			return "varchar(" + strconv.FormatInt(maxLength.Int64, 10) + ")"
		}
		return "varchar"
	case "character":
		if maxLength.Valid {
			return "char(" + strconv.FormatInt(maxLength.Int64, 10) + ")"
		}
		return "char"
	case "numeric":
		if precision.Valid && scale.Valid {
			return "numeric(" + strconv.FormatInt(precision.Int64, 10) + "," + strconv.FormatInt(scale.Int64, 10) + ")"
		}
		return "numeric"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "USER-DEFINED", "ARRAY":
		return udtName
	default:
		return dataType
	}
}

var castRe = regexp.MustCompile(`::[\w ."\[\]]+$`)

// stripCast removes the type cast PostgreSQL appends to literal defaults:
// 'abc'::character varying -> 'abc'.
func stripCast(def string) string {
	return castRe.ReplaceAllString(def, "")
}

// indexColumns extracts the column names from an index definition
// (simplified parsing of pg_get_indexdef output).
func indexColumns(indexDef string) []string {
	start := strings.Index(indexDef, "(")
	end := strings.LastIndex(indexDef, ")")
	if start < 0 || end <= start {
		return nil
	}
	columns := strings.Split(indexDef[start+1:end], ",")
	for i, col := range columns {
		columns[i] = strings.Trim(strings.TrimSpace(col), `"`)
	}
	return columns
}
