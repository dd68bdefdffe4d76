package schemadiff

import (
	difftypes "github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

// RemoveKeyModifications strips key/index modifications that are not applied
// automatically and returns the cleaned diff. The input is left untouched.
//
// Key changes on existing tables can silently break uniqueness assumptions, so they
// are only applied when the caller explicitly allows key modifications, in which
// case this filter is not called at all:
//
//   - Extra: the keys of a table are dropped unless the table is new as a whole
//     (a created table keeps its indexes);
//   - Changed: the keys are always dropped.
//
// Table entries that end up without any sub-entry are removed.
func RemoveKeyModifications(diff *difftypes.Diff) *difftypes.Diff {
	if diff == nil {
		return nil
	}
	return &difftypes.Diff{
		Extra:   stripKeys(diff.Extra, true),
		Changed: stripKeys(diff.Changed, false),
	}
}

// stripKeys copies entries without their keys sub-entry. With keepWholeTables the
// keys of whole-table entries survive.
func stripKeys(entries []difftypes.TableDiff, keepWholeTables bool) []difftypes.TableDiff {
	var result []difftypes.TableDiff
	for _, entry := range entries {
		if !keepWholeTables || !entry.WholeTable {
			entry.Keys = nil
		}
		if entry.IsEmpty() && !entry.WholeTable {
			continue
		}
		result = append(result, entry)
	}
	return result
}
