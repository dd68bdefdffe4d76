package compare

import (
	"sort"
	"strings"

	"github.com/stokaro/dbreconcile/config"
	"github.com/stokaro/dbreconcile/core/sqlschema"
	difftypes "github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

// Tables performs the table-level comparison between a source and a target schema.
//
// This function is the core comparison engine. It walks the source schema in its own
// table order and classifies every difference it finds:
//
//   - a source table absent from the target is reported in diff.Extra with WholeTable
//     set and its complete definition (fields, keys, options);
//   - a source table present in the target is compared field by field, key by key and
//     option by option: objects missing in the target go to diff.Extra, objects whose
//     definition differs go to diff.Changed.
//
// Tables listed in opts.IgnoredTables are skipped on both sides. With
// opts.CaseInsensitiveNames, table names are matched after case folding.
//
// # Example Scenarios
//
// **New table detection**:
//   - Source has "pages", target has no "pages"
//   - Result: {Table: "pages", WholeTable: true, Fields: [...], Keys: [...]} in diff.Extra
//
// **Field type change**:
//   - Both have "tt_content.header"; source says varchar(512), target varchar(255)
//   - Result: {Table: "tt_content", Fields: [{Name: "header", ...}]} in diff.Changed
//
// # Side Effects
//
// Appends to diff.Extra and diff.Changed; entries without any sub-entry are never added.
func Tables(source, target *sqlschema.Schema, opts *config.CompareOptions, diff *difftypes.Diff) {
	targetTables := make(map[string]*sqlschema.Table)
	for _, table := range target.Tables() {
		targetTables[opts.NormalizeName(table.Name)] = table
	}

	for _, srcTable := range source.Tables() {
		if opts.IsTableIgnored(srcTable.Name) {
			continue
		}

		tgtTable, exists := targetTables[opts.NormalizeName(srcTable.Name)]
		if !exists {
			diff.Extra = append(diff.Extra, WholeTable(srcTable))
			continue
		}

		extra := difftypes.TableDiff{Table: srcTable.Name}
		changed := difftypes.TableDiff{Table: srcTable.Name}

		extra.Fields, changed.Fields = Fields(srcTable, tgtTable, opts)
		extra.Keys, changed.Keys = Keys(srcTable, tgtTable)
		changed.Options = Options(srcTable, tgtTable)

		if !extra.IsEmpty() {
			diff.Extra = append(diff.Extra, extra)
		}
		if !changed.IsEmpty() {
			diff.Changed = append(diff.Changed, changed)
		}
	}
}

// WholeTable builds the diff entry of a table that is entirely missing on the
// compared side.
func WholeTable(table *sqlschema.Table) difftypes.TableDiff {
	entry := difftypes.TableDiff{
		Table:      table.Name,
		WholeTable: true,
		Clear:      table.Clear,
	}
	for _, col := range table.Columns {
		entry.Fields = append(entry.Fields, difftypes.FieldChange{Name: col.Name, Column: col})
	}
	for _, idx := range table.Indexes {
		entry.Keys = append(entry.Keys, difftypes.KeyChange{Name: idx.Name, Index: idx})
	}
	for _, name := range sortedOptionNames(table.Options) {
		entry.Options = append(entry.Options, difftypes.OptionChange{Name: name, Value: table.Options[name]})
	}
	return entry
}

// Fields compares the columns of two versions of the same table. It returns the
// source columns missing in the target and the source columns whose signature
// differs from the target's, both in source declaration order.
func Fields(src, tgt *sqlschema.Table, opts *config.CompareOptions) (extra, changed []difftypes.FieldChange) {
	ignoreNotNull := opts != nil && opts.IgnoreNotNull
	for _, col := range src.Columns {
		current := tgt.Column(col.Name)
		if current == nil {
			extra = append(extra, difftypes.FieldChange{Name: col.Name, Column: col})
			continue
		}
		if col.Signature(ignoreNotNull) != current.Signature(ignoreNotNull) {
			cur := *current
			changed = append(changed, difftypes.FieldChange{Name: col.Name, Column: col, Current: &cur})
		}
	}
	return extra, changed
}

// Keys compares the indexes of two versions of the same table. Indexes are matched
// by name; a matched index whose kind or covered column list differs is reported
// as changed and has to be replaced.
func Keys(src, tgt *sqlschema.Table) (extra, changed []difftypes.KeyChange) {
	for _, idx := range src.Indexes {
		current := tgt.Index(idx.Name)
		if current == nil {
			extra = append(extra, difftypes.KeyChange{Name: idx.Name, Index: idx})
			continue
		}
		if idx.Signature() != current.Signature() {
			cur := *current
			changed = append(changed, difftypes.KeyChange{Name: idx.Name, Index: idx, Current: &cur})
		}
	}
	return extra, changed
}

// Options compares table options present on both sides, case-insensitively.
// Options the target does not report are not compared.
func Options(src, tgt *sqlschema.Table) []difftypes.OptionChange {
	var changed []difftypes.OptionChange
	for _, name := range sortedOptionNames(src.Options) {
		current, ok := tgt.Options[name]
		if !ok {
			continue
		}
		if normalizeOption(name, src.Options[name]) != normalizeOption(name, current) {
			changed = append(changed, difftypes.OptionChange{Name: name, Value: src.Options[name], Current: current})
		}
	}
	return changed
}

// normalizeOption returns the comparable form of a table option value. MySQL 8
// reports the utf8 character set as utf8mb3.
func normalizeOption(name, value string) string {
	value = strings.ToLower(value)
	switch name {
	case "DEFAULT CHARSET":
		if value == "utf8" {
			return "utf8mb3"
		}
	case "COLLATE":
		if rest, ok := strings.CutPrefix(value, "utf8_"); ok {
			return "utf8mb3_" + rest
		}
	}
	return value
}

func sortedOptionNames(options map[string]string) []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
