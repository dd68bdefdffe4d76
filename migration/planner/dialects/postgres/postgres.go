package postgres

import (
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

const (
	// DialectName is the PostgreSQL dialect identifier
	DialectName = "postgres"
)

// Planner renders PostgreSQL DDL statements from the MySQL-flavoured schema model.
//
// Column types are translated to their PostgreSQL spelling (int(11) -> integer,
// auto_increment -> identity, mediumtext -> text). Plain, fulltext and spatial keys
// cannot be declared inside CREATE TABLE and become CREATE INDEX statements named
// <table>_<key>, which the postgres reader maps back to the key name. Table options
// such as ENGINE have no PostgreSQL equivalent and are ignored.
//
// # Thread Safety
//
// The Planner is stateless and safe for concurrent use across multiple goroutines.
type Planner struct {
}

func New() *Planner {
	return &Planner{}
}

func (p *Planner) Name() string {
	return DialectName
}

func (p *Planner) ColumnType(col sqlschema.Column) string {
	return ColumnType(col)
}

// CreateTable renders a CREATE TABLE statement with all columns, the primary key and
// unique constraints.
func (p *Planner) CreateTable(entry types.TableDiff) string {
	var defs []string
	for _, field := range entry.Fields {
		defs = append(defs, pq.QuoteIdentifier(field.Column.Name)+" "+columnDefinition(field.Column))
	}
	for _, key := range entry.Keys {
		if !p.InlinesIndex(key.Index) {
			continue
		}
		switch key.Index.Kind {
		case sqlschema.IndexPrimary:
			defs = append(defs, "PRIMARY KEY "+columnList(key.Index))
		default:
			defs = append(defs, "CONSTRAINT "+pq.QuoteIdentifier(IndexName(entry.Table, key.Index))+" UNIQUE "+columnList(key.Index))
		}
	}
	return "CREATE TABLE " + pq.QuoteIdentifier(entry.Table) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

// InlinesIndex reports whether the index is declared as a table constraint.
func (p *Planner) InlinesIndex(idx sqlschema.Index) bool {
	return idx.Kind == sqlschema.IndexPrimary || idx.Kind == sqlschema.IndexUnique
}

func (p *Planner) TruncateTable(table string) string {
	return "TRUNCATE TABLE " + pq.QuoteIdentifier(table)
}

func (p *Planner) AlterTableOptions(string, []types.OptionChange) string {
	return ""
}

func (p *Planner) RenameTable(table, newName string) string {
	return "ALTER TABLE " + pq.QuoteIdentifier(table) + " RENAME TO " + pq.QuoteIdentifier(newName)
}

func (p *Planner) DropTable(table string) string {
	return "DROP TABLE " + pq.QuoteIdentifier(table)
}

func (p *Planner) AddColumn(table string, col sqlschema.Column) string {
	return "ALTER TABLE " + pq.QuoteIdentifier(table) + " ADD COLUMN " + pq.QuoteIdentifier(col.Name) + " " + columnDefinition(col)
}

// ChangeColumn redefines type, nullability and default of an existing column in one
// ALTER TABLE statement.
func (p *Planner) ChangeColumn(table string, col sqlschema.Column) string {
	name := pq.QuoteIdentifier(col.Name)
	ops := []string{"ALTER COLUMN " + name + " TYPE " + ColumnType(col)}
	if col.Nullable {
		ops = append(ops, "ALTER COLUMN "+name+" DROP NOT NULL")
	} else {
		ops = append(ops, "ALTER COLUMN "+name+" SET NOT NULL")
	}
	if def, ok := columnDefault(col); ok {
		ops = append(ops, "ALTER COLUMN "+name+" SET DEFAULT "+def)
	} else if !col.AutoIncrement {
		ops = append(ops, "ALTER COLUMN "+name+" DROP DEFAULT")
	}
	return "ALTER TABLE " + pq.QuoteIdentifier(table) + " " + strings.Join(ops, ", ")
}

func (p *Planner) RenameColumn(table string, col sqlschema.Column, newName string) string {
	return "ALTER TABLE " + pq.QuoteIdentifier(table) + " RENAME COLUMN " + pq.QuoteIdentifier(col.Name) + " TO " + pq.QuoteIdentifier(newName)
}

func (p *Planner) DropColumn(table, column string) string {
	return "ALTER TABLE " + pq.QuoteIdentifier(table) + " DROP COLUMN " + pq.QuoteIdentifier(column)
}

func (p *Planner) AddIndex(table string, idx sqlschema.Index) string {
	switch idx.Kind {
	case sqlschema.IndexPrimary:
		return "ALTER TABLE " + pq.QuoteIdentifier(table) + " ADD PRIMARY KEY " + columnList(idx)
	case sqlschema.IndexUnique:
		return "ALTER TABLE " + pq.QuoteIdentifier(table) + " ADD CONSTRAINT " + pq.QuoteIdentifier(IndexName(table, idx)) + " UNIQUE " + columnList(idx)
	default:
		return "CREATE INDEX " + pq.QuoteIdentifier(IndexName(table, idx)) + " ON " + pq.QuoteIdentifier(table) + " " + columnList(idx)
	}
}

// DropIndex drops a key. Keys declared as constraints are dropped through
// ALTER TABLE ... DROP CONSTRAINT, plain indexes through DROP INDEX.
func (p *Planner) DropIndex(table string, idx sqlschema.Index) string {
	if p.InlinesIndex(idx) {
		return "ALTER TABLE " + pq.QuoteIdentifier(table) + " DROP CONSTRAINT " + pq.QuoteIdentifier(IndexName(table, idx))
	}
	return "DROP INDEX " + pq.QuoteIdentifier(IndexName(table, idx))
}

// IndexName returns the PostgreSQL relation name of a key. Introspected keys keep the
// name they were found under. Index names are unique per schema in PostgreSQL, so new
// keys are prefixed with their table; the primary key uses the default <table>_pkey name.
func IndexName(table string, idx sqlschema.Index) string {
	if idx.Relation != "" {
		return idx.Relation
	}
	if idx.IsPrimary() {
		return table + "_pkey"
	}
	return table + "_" + idx.Name
}

// columnList renders the quoted column list of an index. MySQL prefix lengths
// have no PostgreSQL equivalent and are dropped.
func columnList(idx sqlschema.Index) string {
	cols := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		if p := strings.IndexByte(col, '('); p > 0 {
			col = col[:p]
		}
		cols[i] = pq.QuoteIdentifier(col)
	}
	return "(" + strings.Join(cols, ", ") + ")"
}

func columnDefinition(col sqlschema.Column) string {
	parts := []string{ColumnType(col)}
	if col.AutoIncrement {
		parts = append(parts, "GENERATED BY DEFAULT AS IDENTITY")
	}
	if def, ok := columnDefault(col); ok {
		parts = append(parts, "DEFAULT "+def)
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

func columnDefault(col sqlschema.Column) (string, bool) {
	if col.AutoIncrement {
		return "", false
	}
	if _, ok := col.NormalizedDefault(); !ok {
		return "", false
	}
	return strings.TrimSpace(*col.Default), true
}

var (
	typeWithArgsRe = regexp.MustCompile(`^([a-z ]+?)\s*(\(.*\))?$`)

	typeMap = map[string]string{
		"tinyint":    "smallint",
		"smallint":   "smallint",
		"mediumint":  "integer",
		"int":        "integer",
		"integer":    "integer",
		"bigint":     "bigint",
		"double":     "double precision",
		"float":      "real",
		"tinytext":   "text",
		"mediumtext": "text",
		"longtext":   "text",
		"text":       "text",
		"tinyblob":   "bytea",
		"blob":       "bytea",
		"mediumblob": "bytea",
		"longblob":   "bytea",
		"datetime":   "timestamp",
	}
	// types keeping their arguments
	argTypes = map[string]string{
		"varchar": "varchar",
		"char":    "char",
		"decimal": "numeric",
		"numeric": "numeric",
	}
)

// ColumnType translates a MySQL column type to PostgreSQL. Unknown types are passed
// through lower-cased.
func ColumnType(col sqlschema.Column) string {
	t := strings.ToLower(strings.Join(strings.Fields(col.Type), " "))
	for _, modifier := range []string{" unsigned", " signed", " zerofill"} {
		t = strings.ReplaceAll(t, modifier, "")
	}
	m := typeWithArgsRe.FindStringSubmatch(t)
	if m == nil {
		return t
	}
	base, args := m[1], m[2]
	if mapped, ok := argTypes[base]; ok {
		return mapped + args
	}
	if mapped, ok := typeMap[base]; ok {
		return mapped
	}
	return t
}
