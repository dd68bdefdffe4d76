// Package planner turns schema differences into DDL statements grouped by change type.
//
// The planner is dialect agnostic: it decides which statements a diff entry needs and
// under which change type and key they are stored, while the dialect packages render
// the SQL text.
package planner

import (
	"fmt"
	"strings"

	"github.com/stokaro/dbreconcile/config"
	"github.com/stokaro/dbreconcile/core/platform"
	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/migration/changeset"
	"github.com/stokaro/dbreconcile/migration/planner/dialects/mysql"
	"github.com/stokaro/dbreconcile/migration/planner/dialects/postgres"
	difftypes "github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

// Mode selects which side of a reconciliation a diff describes.
type Mode int

const (
	// ModeUpdate synthesizes creates, additions and changes from a
	// (desired, actual) diff. Both categories are processed.
	ModeUpdate Mode = iota
	// ModeRemove synthesizes drops or renames from an (actual, desired) diff.
	// Only the extra category is processed: changed objects are already
	// handled by the update pass.
	ModeRemove
)

func (m Mode) String() string {
	if m == ModeRemove {
		return "remove"
	}
	return "update"
}

// Dialect renders the SQL text of single DDL statements.
// Every statement starts with upper-case keywords.
type Dialect interface {
	Name() string

	// ColumnType returns the column type in the dialect's spelling, as the
	// dialect's introspector reports it.
	ColumnType(col sqlschema.Column) string

	// CreateTable renders the CREATE TABLE statement of a whole-table entry,
	// including the indexes for which InlinesIndex returns true.
	CreateTable(entry difftypes.TableDiff) string
	InlinesIndex(idx sqlschema.Index) bool
	TruncateTable(table string) string
	// AlterTableOptions returns an empty string when the dialect has no
	// equivalent for the options.
	AlterTableOptions(table string, options []difftypes.OptionChange) string
	RenameTable(table, newName string) string
	DropTable(table string) string

	AddColumn(table string, col sqlschema.Column) string
	ChangeColumn(table string, col sqlschema.Column) string
	RenameColumn(table string, col sqlschema.Column, newName string) string
	DropColumn(table, column string) string

	AddIndex(table string, idx sqlschema.Index) string
	DropIndex(table string, idx sqlschema.Index) string
}

// Options controls statement synthesis.
type Options struct {
	// RemovalPrefixDisabled makes the remove pass drop tables and fields instead
	// of renaming them with DeletedPrefix.
	RemovalPrefixDisabled bool

	// DeletedPrefix is prepended to renamed tables and fields.
	// Empty means config.DefaultDeletedPrefix.
	DeletedPrefix string

	// Dialect renders the statements. Nil means MySQL.
	Dialect Dialect
}

func (o Options) deletedPrefix() string {
	if o.DeletedPrefix == "" {
		return config.DefaultDeletedPrefix
	}
	return o.DeletedPrefix
}

func (o Options) dialect() Dialect {
	if o.Dialect == nil {
		return mysql.New()
	}
	return o.Dialect
}

// GetDialect returns the statement renderer of the named dialect.
func GetDialect(name string) (Dialect, error) {
	switch {
	case platform.IsMySQLFamily(name):
		return mysql.New(), nil
	case platform.NormalizeDialect(name) == platform.Postgres:
		return postgres.New(), nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %q", name)
	}
}

// TranslateSchema returns a copy of schema with every column type in the dialect's
// spelling, so that a desired schema written for MySQL compares against a database
// of another dialect. The input is left untouched.
func TranslateSchema(schema *sqlschema.Schema, dialect Dialect) *sqlschema.Schema {
	result := sqlschema.NewSchema()
	for _, table := range schema.Tables() {
		translated := sqlschema.NewTable(table.Name)
		translated.Clear = table.Clear
		for _, col := range table.Columns {
			col.Type = dialect.ColumnType(col)
			translated.SetColumn(col)
		}
		for _, idx := range table.Indexes {
			idx.Columns = append([]string(nil), idx.Columns...)
			translated.SetIndex(idx)
		}
		for name, value := range table.Options {
			translated.SetOption(name, value)
		}
		result.AddTable(translated)
	}
	return result
}

// Synthesize translates a diff into a change set.
//
// In ModeUpdate, a (desired, actual) diff produces:
//
//   - create_table: CREATE TABLE for whole tables (and their non-inline indexes)
//   - clear_table: TRUNCATE TABLE for whole tables flagged Clear
//   - add: ALTER TABLE ... ADD for extra fields and keys
//   - change: ALTER TABLE ... CHANGE for changed fields; changed keys are dropped and re-added
//   - change_table: ALTER TABLE ... for changed table options
//
// In ModeRemove, an (actual, desired) diff produces drop (fields, keys) and drop_table
// statements. Unless opts.RemovalPrefixDisabled is set, fields and tables are renamed
// with the deleted prefix instead (change / change_table); objects already carrying the
// prefix are dropped.
func Synthesize(diff *difftypes.Diff, mode Mode, opts Options) *changeset.ChangeSet {
	cs := changeset.New()
	if diff == nil {
		return cs
	}

	s := &synthesizer{cs: cs, dialect: opts.dialect(), opts: opts}
	switch mode {
	case ModeRemove:
		for _, entry := range diff.Extra {
			s.removeEntry(entry)
		}
	default:
		for _, entry := range diff.Extra {
			s.extraEntry(entry)
		}
		for _, entry := range diff.Changed {
			s.changedEntry(entry)
		}
	}
	return cs
}

type synthesizer struct {
	cs      *changeset.ChangeSet
	dialect Dialect
	opts    Options
}

func (s *synthesizer) add(t changeset.ChangeType, key, sql string) {
	if sql == "" {
		return
	}
	s.cs.Add(t, key, sql)
}

func (s *synthesizer) extraEntry(entry difftypes.TableDiff) {
	table := entry.Table
	if entry.WholeTable {
		s.add(changeset.CreateTable, changeset.Key(table, "table", table), s.dialect.CreateTable(entry))
		for _, key := range entry.Keys {
			if !s.dialect.InlinesIndex(key.Index) {
				s.add(changeset.CreateTable, changeset.Key(table, "key", key.Name), s.dialect.AddIndex(table, key.Index))
			}
		}
		if entry.Clear {
			s.add(changeset.ClearTable, changeset.Key(table, "table", table, "clear"), s.dialect.TruncateTable(table))
		}
		return
	}

	for _, field := range entry.Fields {
		s.add(changeset.Add, changeset.Key(table, "field", field.Name), s.dialect.AddColumn(table, field.Column))
	}
	for _, key := range entry.Keys {
		s.add(changeset.Add, changeset.Key(table, "key", key.Name), s.dialect.AddIndex(table, key.Index))
	}
}

func (s *synthesizer) changedEntry(entry difftypes.TableDiff) {
	table := entry.Table
	for _, field := range entry.Fields {
		s.add(changeset.Change, changeset.Key(table, "field", field.Name), s.dialect.ChangeColumn(table, field.Column))
	}
	for _, key := range entry.Keys {
		current := key.Index
		if key.Current != nil {
			current = *key.Current
		}
		s.add(changeset.Change, changeset.Key(table, "key", key.Name, "drop"), s.dialect.DropIndex(table, current))
		s.add(changeset.Change, changeset.Key(table, "key", key.Name), s.dialect.AddIndex(table, key.Index))
	}
	if len(entry.Options) > 0 {
		s.add(changeset.ChangeTable, changeset.Key(table, "table", table, "options"), s.dialect.AlterTableOptions(table, entry.Options))
	}
}

func (s *synthesizer) removeEntry(entry difftypes.TableDiff) {
	table := entry.Table
	prefix := s.opts.deletedPrefix()

	if entry.WholeTable {
		if s.renames(table) {
			s.add(changeset.ChangeTable, changeset.Key(table, "table", table, "rename"), s.dialect.RenameTable(table, prefix+table))
			return
		}
		s.add(changeset.DropTable, changeset.Key(table, "table", table, "drop"), s.dialect.DropTable(table))
		return
	}

	for _, field := range entry.Fields {
		if s.renames(field.Name) {
			s.add(changeset.Change, changeset.Key(table, "field", field.Name, "rename"), s.dialect.RenameColumn(table, field.Column, prefix+field.Name))
			continue
		}
		s.add(changeset.Drop, changeset.Key(table, "field", field.Name, "drop"), s.dialect.DropColumn(table, field.Name))
	}
	for _, key := range entry.Keys {
		s.add(changeset.Drop, changeset.Key(table, "key", key.Name, "drop"), s.dialect.DropIndex(table, key.Index))
	}
}

// renames reports whether a removed object is renamed rather than dropped.
func (s *synthesizer) renames(name string) bool {
	return !s.opts.RemovalPrefixDisabled && !strings.HasPrefix(name, s.opts.deletedPrefix())
}
