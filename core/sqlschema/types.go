// Package sqlschema defines the normalized in-memory schema model shared by the parser,
// the database introspectors and the schema differ.
//
// A Schema is an ordered mapping from table name to Table. Parsed schemas keep the
// declaration order of their tables, introspected schemas keep the order reported by
// the database. Every consumer iterates tables through Tables(), so the order of the
// generated DDL is deterministic.
package sqlschema

import "strings"

// PrimaryKeyName is the name under which a table's primary key is stored.
// MySQL reports the primary key as an index named PRIMARY as well.
const PrimaryKeyName = "PRIMARY"

// IndexKind identifies the flavour of an index definition.
type IndexKind string

const (
	IndexPrimary  IndexKind = "PRIMARY"
	IndexUnique   IndexKind = "UNIQUE"
	IndexKey      IndexKind = "KEY"
	IndexFulltext IndexKind = "FULLTEXT"
	IndexSpatial  IndexKind = "SPATIAL"
)

// Schema represents a complete database schema: a set of uniquely named tables.
type Schema struct {
	tables map[string]*Table
	order  []string
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{tables: make(map[string]*Table)}
}

// Table returns the table with the given name, or nil if the schema has no such table.
func (s *Schema) Table(name string) *Table {
	if s == nil {
		return nil
	}
	return s.tables[name]
}

// Tables returns all tables in insertion order.
func (s *Schema) Tables() []*Table {
	if s == nil {
		return nil
	}
	result := make([]*Table, 0, len(s.order))
	for _, name := range s.order {
		result = append(result, s.tables[name])
	}
	return result
}

// Len returns the number of tables in the schema.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// AddTable adds a table to the schema. If a table with the same name already exists,
// the new definition is merged into it (see Table.Merge) and the existing table is returned.
func (s *Schema) AddTable(t *Table) *Table {
	if existing, ok := s.tables[t.Name]; ok {
		existing.Merge(t)
		return existing
	}
	s.tables[t.Name] = t
	s.order = append(s.order, t.Name)
	return t
}

// Table represents a single table definition.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
	// Options holds table options such as ENGINE or DEFAULT CHARSET, keyed by the
	// upper-cased option name.
	Options map[string]string
	// Clear marks tables whose content is truncated right after they are created.
	Clear bool
}

// NewTable creates an empty table definition.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Index returns the index with the given name, or nil.
func (t *Table) Index(name string) *Index {
	for i := range t.Indexes {
		if t.Indexes[i].Name == name {
			return &t.Indexes[i]
		}
	}
	return nil
}

// SetColumn adds a column, or replaces an existing column with the same name in place.
func (t *Table) SetColumn(col Column) {
	if existing := t.Column(col.Name); existing != nil {
		*existing = col
		return
	}
	t.Columns = append(t.Columns, col)
}

// SetIndex adds an index, or replaces an existing index with the same name in place.
func (t *Table) SetIndex(idx Index) {
	if existing := t.Index(idx.Name); existing != nil {
		*existing = idx
		return
	}
	t.Indexes = append(t.Indexes, idx)
}

// SetOption sets a table option. Option names are stored upper-cased.
func (t *Table) SetOption(name, value string) {
	if t.Options == nil {
		t.Options = make(map[string]string)
	}
	t.Options[strings.ToUpper(name)] = value
}

// Merge folds another definition of the same table into t. Columns and indexes
// keep their first-seen position; definitions from other replace earlier ones with
// the same name and new ones are appended.
func (t *Table) Merge(other *Table) {
	for _, col := range other.Columns {
		t.SetColumn(col)
	}
	for _, idx := range other.Indexes {
		t.SetIndex(idx)
	}
	for name, value := range other.Options {
		t.SetOption(name, value)
	}
	t.Clear = t.Clear || other.Clear
}

// Column represents a column definition.
type Column struct {
	Name string
	// Type is the raw SQL type, e.g. "varchar(255)" or "int(11) unsigned".
	Type     string
	Nullable bool
	// Default is the default value as an SQL literal ('' for an empty string,
	// 0, CURRENT_TIMESTAMP). Nil means the column has no default.
	Default       *string
	AutoIncrement bool
	// Extra keeps the remaining attributes verbatim (COMMENT '...', ON UPDATE ...).
	Extra string
}

// Index represents an index or key definition, including the primary key.
type Index struct {
	Name    string
	Kind    IndexKind
	Columns []string
	// Relation is the physical name of the index when the database stores it under
	// a name other than Name. Only introspected indexes carry it and it takes no
	// part in comparisons.
	Relation string
}

// IsPrimary reports whether the index is the table's primary key.
func (i Index) IsPrimary() bool {
	return i.Kind == IndexPrimary
}

// StringPtr returns a pointer to s. It is handy when building columns with defaults.
func StringPtr(s string) *string {
	return &s
}
