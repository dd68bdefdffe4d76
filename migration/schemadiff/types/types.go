package types

import "github.com/stokaro/dbreconcile/core/sqlschema"

// Diff represents the differences between a source and a target schema.
//
// The comparison is directional. Compared as (desired, actual), Extra holds the tables,
// fields and keys that must be created and Changed holds the ones that must be altered.
// Compared as (actual, desired), Extra holds what exists in the database without being
// declared, i.e. removal candidates.
//
// # Example Usage
//
//	diff := &Diff{
//		Extra: []TableDiff{
//			{Table: "pages", WholeTable: true, Fields: []FieldChange{{Name: "uid"}}},
//		},
//		Changed: []TableDiff{
//			{Table: "tt_content", Fields: []FieldChange{{Name: "header"}}},
//		},
//	}
//
//	if diff.HasChanges() {
//		fmt.Printf("%d tables with additions\n", len(diff.Extra))
//	}
type Diff struct {
	// Extra contains tables present in the source but absent in the target (WholeTable
	// set), and tables present in both whose source side has additional fields/keys.
	Extra []TableDiff `json:"extra"`

	// Changed contains tables present in both schemas with fields, keys or table
	// options whose definition differs.
	Changed []TableDiff `json:"diff"`
}

// HasChanges returns true if any category contains an entry.
func (d *Diff) HasChanges() bool {
	return d != nil && (len(d.Extra) > 0 || len(d.Changed) > 0)
}

// TableDiff represents the differences of one table within a category.
//
// Fields, Keys and Options are optional sub-entries: a nil slice means the sub-entry
// is absent. When WholeTable is set the entire table participates in the change
// (it is created or removed as a whole) and Fields/Keys/Options describe its full
// definition.
type TableDiff struct {
	// Table is the name of the table
	Table string `json:"table"`

	// WholeTable marks a table that is entirely missing on the compared side
	WholeTable bool `json:"whole_table,omitempty"`

	// Fields contains the field-level differences
	Fields []FieldChange `json:"fields,omitempty"`

	// Keys contains the key/index-level differences
	Keys []KeyChange `json:"keys,omitempty"`

	// Options contains the table option differences (ENGINE, DEFAULT CHARSET, ...)
	Options []OptionChange `json:"options,omitempty"`

	// Clear is set for whole tables that are to be truncated after creation
	Clear bool `json:"clear,omitempty"`
}

// HasKeys reports whether the keys sub-entry is present.
func (t TableDiff) HasKeys() bool {
	return t.Keys != nil
}

// IsEmpty reports whether the entry carries no sub-entry at all.
func (t TableDiff) IsEmpty() bool {
	return len(t.Fields) == 0 && len(t.Keys) == 0 && len(t.Options) == 0 && !t.Clear
}

// FieldChange describes a field of the source schema. Current holds the target's
// definition for fields in the diff category and is nil otherwise.
type FieldChange struct {
	Name    string            `json:"name"`
	Column  sqlschema.Column  `json:"column"`
	Current *sqlschema.Column `json:"current,omitempty"`
}

// KeyChange describes a key of the source schema. Current holds the target's
// definition for keys in the diff category and is nil otherwise.
type KeyChange struct {
	Name    string           `json:"name"`
	Index   sqlschema.Index  `json:"index"`
	Current *sqlschema.Index `json:"current,omitempty"`
}

// OptionChange describes a table option of the source schema.
type OptionChange struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Current string `json:"current,omitempty"`
}
