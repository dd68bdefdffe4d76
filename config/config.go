// Package config provides configuration options for the dbreconcile schema reconciliation engine.
//
// This package provides a simple, programmatic API for configuring schema comparison
// and reconciliation runs when using dbreconcile as a library. The option records carry
// mapstructure tags so the command line wrapper can fill them from flags, environment
// variables and configuration files, but nothing in this package reads those sources.
package config

import (
	"golang.org/x/text/cases"
)

const (
	// MaxIterations is the number of reconciliation passes after which the loop gives up
	// even if every pass still produced a different statement batch.
	MaxIterations = 10

	// DefaultDeletedPrefix is prepended to tables and fields that are renamed instead of
	// dropped when the removal prefix is not disabled.
	DefaultDeletedPrefix = "zzz_deleted_"
)

// ReconcileOptions is the option record consumed by a single reconciliation run.
type ReconcileOptions struct {
	// Execute sends every generated statement to the database.
	Execute bool `mapstructure:"execute"`

	// Remove adds the destructive change types (drop, drop_table, clear_table)
	// to the considered types and disables the deleted prefix for the run.
	Remove bool `mapstructure:"remove"`

	// AllowKeyModifications skips the filter that strips key/index changes on
	// existing tables from the diff.
	AllowKeyModifications bool `mapstructure:"drop-keys"`

	// Verbose includes the generated SQL in the report.
	Verbose bool `mapstructure:"verbose"`

	// Database names the database to reconcile. Empty means the connection's default.
	Database string `mapstructure:"database"`

	// DumpFile is a path the report is written to instead of being returned.
	DumpFile string `mapstructure:"dump-file"`

	// Compare controls how the desired and the actual schema are compared.
	Compare *CompareOptions `mapstructure:"compare"`
}

// CompareOptions contains configuration options for schema comparison operations.
// These options control how schema differences are calculated and what elements
// should be ignored during comparison.
type CompareOptions struct {
	// IgnoredTables is a list of table names that should be ignored during
	// reconciliation. These tables will:
	// - Never be dropped, even if missing from the desired schema
	// - Never be created or altered, even if declared in the desired schema
	// - Be treated as if they don't exist for comparison purposes
	IgnoredTables []string `mapstructure:"ignored-tables"`

	// IgnoreNotNull leaves nullability out of column comparison.
	IgnoreNotNull bool `mapstructure:"ignore-not-null"`

	// CaseInsensitiveNames matches table names case-insensitively, as MySQL does
	// with lower_case_table_names=1 or 2.
	CaseInsensitiveNames bool `mapstructure:"case-insensitive-names"`
}

// DefaultCompareOptions returns the default comparison options: nothing is ignored,
// nullability is compared and table names are case-sensitive.
func DefaultCompareOptions() *CompareOptions {
	return &CompareOptions{
		IgnoredTables: []string{},
	}
}

// WithIgnoredTables returns a new CompareOptions with the specified ignored tables.
// This completely replaces the default ignored tables list.
//
// Example:
//
//	opts := config.WithIgnoredTables("cache_pages", "sys_log")
func WithIgnoredTables(tables ...string) *CompareOptions {
	return &CompareOptions{
		IgnoredTables: tables,
	}
}

// NormalizeName returns the key under which a table name is matched.
// With CaseInsensitiveNames the name is case folded.
func (c *CompareOptions) NormalizeName(name string) string {
	if c == nil || !c.CaseInsensitiveNames {
		return name
	}
	return cases.Fold().String(name)
}

// IsTableIgnored checks if the given table should be ignored during
// reconciliation based on the current configuration.
func (c *CompareOptions) IsTableIgnored(tableName string) bool {
	if c == nil {
		return false
	}
	key := c.NormalizeName(tableName)
	for _, ignored := range c.IgnoredTables {
		if c.NormalizeName(ignored) == key {
			return true
		}
	}
	return false
}

// CompareOptionsOrDefault returns the run's compare options, falling back to
// DefaultCompareOptions.
func (o ReconcileOptions) CompareOptionsOrDefault() *CompareOptions {
	if o.Compare == nil {
		return DefaultCompareOptions()
	}
	return o.Compare
}
