package schemadiff

import (
	"github.com/stokaro/dbreconcile/config"
	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/migration/schemadiff/internal/compare"
	difftypes "github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

// Compare performs schema comparison between a source and a target schema using default options.
// This is a convenience function that uses DefaultCompareOptions.
// For custom configuration, use CompareWithOptions.
func Compare(source, target *sqlschema.Schema) *difftypes.Diff {
	return CompareWithOptions(source, target, nil)
}

// CompareWithOptions performs schema comparison between a source and a target schema
// with custom configuration options.
//
// The comparison is directional and is used both ways by the reconciler:
//
//	// tables, fields and keys to create or change
//	additions := schemadiff.CompareWithOptions(desired, actual, opts)
//
//	// tables, fields and keys that exist in the database but are not declared
//	removals := schemadiff.CompareWithOptions(actual, desired, opts)
//
// Parameters:
//   - source: the schema whose objects are looked for
//   - target: the schema the source is compared against
//   - opts: Configuration options for comparison (can be nil for defaults)
//
// Comparing a schema with itself always yields an empty Diff.
func CompareWithOptions(source, target *sqlschema.Schema, opts *config.CompareOptions) *difftypes.Diff {
	if opts == nil {
		opts = config.DefaultCompareOptions()
	}

	diff := &difftypes.Diff{}

	// Compare tables, their fields, keys and options
	compare.Tables(source, target, opts, diff)

	return diff
}
