// Package mysql reads the schema of MySQL and MariaDB databases from information_schema.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/stokaro/dbreconcile/core/sqlschema"
)

// Reader reads schema from MySQL and MariaDB databases
type Reader struct {
	db       *sql.DB
	database string
}

// NewMySQLReader creates a new MySQL schema reader. The database is used when
// ReadSchema is called without one; if it is empty too, the connection's current
// database is read.
func NewMySQLReader(db *sql.DB, database string) *Reader {
	return &Reader{
		db:       db,
		database: database,
	}
}

// ReadSchema reads tables, columns, indexes and table options of a database.
// Tables are returned in name order, columns in ordinal order and index columns
// in their sequence within the index.
func (r *Reader) ReadSchema(ctx context.Context, database string) (*sqlschema.Schema, error) {
	database, err := r.resolveDatabase(ctx, database)
	if err != nil {
		return nil, err
	}

	schema := sqlschema.NewSchema()

	if err := r.readTables(ctx, database, schema); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	if err := r.readColumns(ctx, database, schema); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if err := r.readIndexes(ctx, database, schema); err != nil {
		return nil, fmt.Errorf("failed to read indexes: %w", err)
	}

	return schema, nil
}

func (r *Reader) resolveDatabase(ctx context.Context, database string) (string, error) {
	if database != "" {
		return database, nil
	}
	if r.database != "" {
		return r.database, nil
	}
	var current sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&current); err != nil {
		return "", fmt.Errorf("failed to determine current database: %w", err)
	}
	if !current.Valid || current.String == "" {
		return "", fmt.Errorf("no database selected")
	}
	return current.String, nil
}

func (r *Reader) readTables(ctx context.Context, database string, schema *sqlschema.Schema) error {
	query := `
		SELECT table_name, COALESCE(engine, ''), COALESCE(table_collation, '')
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := r.db.QueryContext(ctx, query, database)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, engine, collation string
		if err := rows.Scan(&name, &engine, &collation); err != nil {
			return fmt.Errorf("failed to scan table: %w", err)
		}

		table := sqlschema.NewTable(name)
		if engine != "" {
			table.SetOption("ENGINE", engine)
		}
		if collation != "" {
			table.SetOption("COLLATE", collation)
			if charset, _, ok := strings.Cut(collation, "_"); ok {
				table.SetOption("DEFAULT CHARSET", charset)
			}
		}
		schema.AddTable(table)
	}
	return rows.Err()
}

func (r *Reader) readColumns(ctx context.Context, database string, schema *sqlschema.Schema) error {
	query := `
		SELECT table_name, column_name, column_type, is_nullable, column_default, extra
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`

	rows, err := r.db.QueryContext(ctx, query, database)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, name, columnType, nullable, extra string
		var def sql.NullString
		if err := rows.Scan(&tableName, &name, &columnType, &nullable, &def, &extra); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}

		table := schema.Table(tableName)
		if table == nil {
			// views and other non-base tables
			continue
		}

		col := sqlschema.Column{
			Name:     name,
			Type:     columnType,
			Nullable: nullable == "YES",
		}
		if def.Valid {
			col.Default = defaultLiteral(def.String)
		}
		col.AutoIncrement, col.Extra = parseExtra(extra)
		table.SetColumn(col)
	}
	return rows.Err()
}

func (r *Reader) readIndexes(ctx context.Context, database string, schema *sqlschema.Schema) error {
	query := `
		SELECT table_name, index_name, non_unique, index_type, column_name, sub_part
		FROM information_schema.statistics
		WHERE table_schema = ?
		ORDER BY table_name, index_name, seq_in_index`

	rows, err := r.db.QueryContext(ctx, query, database)
	if err != nil {
		return fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, indexName, indexType string
		var nonUnique int
		var columnName sql.NullString
		var subPart sql.NullInt64
		if err := rows.Scan(&tableName, &indexName, &nonUnique, &indexType, &columnName, &subPart); err != nil {
			return fmt.Errorf("failed to scan index: %w", err)
		}

		table := schema.Table(tableName)
		if table == nil || !columnName.Valid {
			// functional key parts have no column name
			continue
		}

		part := columnName.String
		if subPart.Valid {
			part += "(" + strconv.FormatInt(subPart.Int64, 10) + ")"
		}

		idx := table.Index(indexName)
		if idx == nil {
			table.SetIndex(sqlschema.Index{Name: indexName, Kind: indexKind(indexName, nonUnique, indexType)})
			idx = table.Index(indexName)
		}
		idx.Columns = append(idx.Columns, part)
	}
	return rows.Err()
}

func indexKind(name string, nonUnique int, indexType string) sqlschema.IndexKind {
	switch {
	case name == sqlschema.PrimaryKeyName:
		return sqlschema.IndexPrimary
	case strings.EqualFold(indexType, "FULLTEXT"):
		return sqlschema.IndexFulltext
	case strings.EqualFold(indexType, "SPATIAL"):
		return sqlschema.IndexSpatial
	case nonUnique == 0:
		return sqlschema.IndexUnique
	default:
		return sqlschema.IndexKey
	}
}

// defaultLiteral turns an information_schema column default into an SQL literal.
// MySQL reports string defaults unquoted, MariaDB quotes them and reports a
// missing default as NULL.
func defaultLiteral(raw string) *string {
	switch {
	case strings.EqualFold(raw, "NULL"):
		return nil
	case strings.HasPrefix(raw, "'"):
		return sqlschema.StringPtr(raw)
	case isExpressionDefault(raw):
		return sqlschema.StringPtr(raw)
	default:
		return sqlschema.StringPtr(sqlschema.Quote(raw))
	}
}

func isExpressionDefault(raw string) bool {
	upper := strings.ToUpper(raw)
	return strings.HasPrefix(upper, "CURRENT_TIMESTAMP") || strings.HasPrefix(upper, "NOW(") || strings.HasPrefix(raw, "(")
}

// parseExtra splits the extra column into the auto_increment flag and the remaining
// attributes (on update CURRENT_TIMESTAMP, ...).
func parseExtra(extra string) (autoIncrement bool, rest string) {
	var parts []string
	for _, word := range strings.Fields(extra) {
		switch strings.ToLower(word) {
		case "auto_increment":
			autoIncrement = true
		case "default_generated":
			// MySQL 8 marks expression defaults
		default:
			parts = append(parts, word)
		}
	}
	return autoIncrement, strings.Join(parts, " ")
}
