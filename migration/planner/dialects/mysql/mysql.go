package mysql

import (
	"strings"

	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

const (
	// DialectName is the MySQL dialect identifier
	DialectName = "mysql"
)

// Planner renders MySQL DDL statements. It is also used for MariaDB.
//
// Identifiers are back-quoted; column types and defaults are emitted as they
// were declared, so a declared "int(11) unsigned" stays "int(11) unsigned".
//
// # Usage Example
//
//	p := mysql.New()
//	sql := p.AddColumn("pages", sqlschema.Column{Name: "title", Type: "varchar(255)", Default: sqlschema.StringPtr("''")})
//	// ALTER TABLE `pages` ADD `title` varchar(255) DEFAULT '' NOT NULL
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

// ColumnType returns the declared type unchanged.
func (p *Planner) ColumnType(col sqlschema.Column) string {
	return col.Type
}

// CreateTable renders a CREATE TABLE statement with all columns, keys and table options.
func (p *Planner) CreateTable(entry types.TableDiff) string {
	var defs []string
	for _, field := range entry.Fields {
		defs = append(defs, columnDefinition(field.Column))
	}
	for _, key := range entry.Keys {
		defs = append(defs, indexDefinition(key.Index))
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(quoteIdent(entry.Table))
	sb.WriteString(" (\n\t")
	sb.WriteString(strings.Join(defs, ",\n\t"))
	sb.WriteString("\n)")
	if opts := tableOptions(entry.Options); opts != "" {
		sb.WriteString(" ")
		sb.WriteString(opts)
	}
	return sb.String()
}

// InlinesIndex is always true: MySQL declares every key kind inside CREATE TABLE.
func (p *Planner) InlinesIndex(sqlschema.Index) bool {
	return true
}

func (p *Planner) TruncateTable(table string) string {
	return "TRUNCATE TABLE " + quoteIdent(table)
}

func (p *Planner) AlterTableOptions(table string, options []types.OptionChange) string {
	opts := tableOptions(options)
	if opts == "" {
		return ""
	}
	return "ALTER TABLE " + quoteIdent(table) + " " + opts
}

func (p *Planner) RenameTable(table, newName string) string {
	return "ALTER TABLE " + quoteIdent(table) + " RENAME " + quoteIdent(newName)
}

func (p *Planner) DropTable(table string) string {
	return "DROP TABLE " + quoteIdent(table)
}

func (p *Planner) AddColumn(table string, col sqlschema.Column) string {
	return "ALTER TABLE " + quoteIdent(table) + " ADD " + columnDefinition(col)
}

// ChangeColumn renders ALTER TABLE ... CHANGE, which redefines the column under
// the same name.
func (p *Planner) ChangeColumn(table string, col sqlschema.Column) string {
	return p.RenameColumn(table, col, col.Name)
}

func (p *Planner) RenameColumn(table string, col sqlschema.Column, newName string) string {
	return "ALTER TABLE " + quoteIdent(table) + " CHANGE " + quoteIdent(col.Name) + " " + quoteIdent(newName) + " " + col.Definition()
}

func (p *Planner) DropColumn(table, column string) string {
	return "ALTER TABLE " + quoteIdent(table) + " DROP " + quoteIdent(column)
}

func (p *Planner) AddIndex(table string, idx sqlschema.Index) string {
	return "ALTER TABLE " + quoteIdent(table) + " ADD " + indexDefinition(idx)
}

func (p *Planner) DropIndex(table string, idx sqlschema.Index) string {
	if idx.IsPrimary() {
		return "ALTER TABLE " + quoteIdent(table) + " DROP PRIMARY KEY"
	}
	return "ALTER TABLE " + quoteIdent(table) + " DROP KEY " + quoteIdent(idx.Name)
}

func columnDefinition(col sqlschema.Column) string {
	return quoteIdent(col.Name) + " " + col.Definition()
}

func indexDefinition(idx sqlschema.Index) string {
	cols := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		cols[i] = quoteIndexColumn(col)
	}
	list := "(" + strings.Join(cols, ",") + ")"

	switch idx.Kind {
	case sqlschema.IndexPrimary:
		return "PRIMARY KEY " + list
	case sqlschema.IndexUnique:
		return "UNIQUE KEY " + quoteIdent(idx.Name) + " " + list
	case sqlschema.IndexFulltext:
		return "FULLTEXT KEY " + quoteIdent(idx.Name) + " " + list
	case sqlschema.IndexSpatial:
		return "SPATIAL KEY " + quoteIdent(idx.Name) + " " + list
	default:
		return "KEY " + quoteIdent(idx.Name) + " " + list
	}
}

// tableOptions renders options in the order given, e.g. "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4".
func tableOptions(options []types.OptionChange) string {
	parts := make([]string, 0, len(options))
	for _, opt := range options {
		parts = append(parts, opt.Name+"="+opt.Value)
	}
	return strings.Join(parts, " ")
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quoteIndexColumn quotes the column name of an index part and keeps its
// prefix length: title(20) -> `title`(20).
func quoteIndexColumn(col string) string {
	if p := strings.IndexByte(col, '('); p > 0 {
		return quoteIdent(col[:p]) + col[p:]
	}
	return quoteIdent(col)
}
