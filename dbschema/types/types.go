package types

import (
	"context"

	"github.com/stokaro/dbreconcile/core/sqlschema"
)

// DBInfo contains connection and metadata information
type DBInfo struct {
	Dialect string `json:"dialect"` // postgres, mysql, mariadb
	Version string `json:"version"`
	Schema  string `json:"schema"` // default database (MySQL) or schema (PostgreSQL)
	URL     string `json:"url"`    // database connection URL (for reference)
}

// SchemaIntrospector reads the actual schema of a live database.
// An empty database name means the connection's default database.
type SchemaIntrospector interface {
	ReadSchema(ctx context.Context, database string) (*sqlschema.Schema, error)
}

// StatementExecutor executes a single DDL statement.
type StatementExecutor interface {
	ExecuteSQL(ctx context.Context, statement string) error
}

// DefinitionSource supplies the desired-schema definition text: zero or more
// CREATE TABLE statements.
type DefinitionSource interface {
	Definitions(ctx context.Context) (string, error)
}

// DefinitionText is a DefinitionSource holding its text in memory.
type DefinitionText string

func (d DefinitionText) Definitions(context.Context) (string, error) {
	return string(d), nil
}
