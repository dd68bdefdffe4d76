// Package changeset holds the statements produced for a reconciliation pass, grouped
// by change type, and the rules for turning them into an executable batch.
package changeset

import "strings"

// ChangeType tags a group of generated statements.
type ChangeType string

const (
	Add         ChangeType = "add"
	Change      ChangeType = "change"
	CreateTable ChangeType = "create_table"
	ChangeTable ChangeType = "change_table"
	Drop        ChangeType = "drop"
	DropTable   ChangeType = "drop_table"
	ClearTable  ChangeType = "clear_table"
)

var (
	// UpdateTypes are the non-destructive change types every run considers.
	UpdateTypes = []ChangeType{Add, Change, CreateTable, ChangeTable}

	// RemoveTypes are the destructive change types considered only when removal is requested.
	RemoveTypes = []ChangeType{Drop, DropTable, ClearTable}
)

// Statements is an insertion-ordered mapping from statement key to SQL text.
// The zero value is ready to use.
type Statements struct {
	keys  []string
	index map[string]int
	sql   []string
}

// NewStatements creates an empty statement mapping.
func NewStatements() *Statements {
	return &Statements{}
}

// Set stores the SQL for key. Setting an existing key replaces its SQL and keeps
// the position of the first insertion.
func (s *Statements) Set(key, sql string) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[key]; ok {
		s.sql[i] = sql
		return
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.sql = append(s.sql, sql)
}

// Get returns the SQL stored under key.
func (s *Statements) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	i, ok := s.index[key]
	if !ok {
		return "", false
	}
	return s.sql[i], true
}

// Len returns the number of statements.
func (s *Statements) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the statement keys in insertion order.
func (s *Statements) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Values returns the SQL texts in insertion order.
func (s *Statements) Values() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.sql...)
}

// ChangeSet maps change types to the statements generated for them.
type ChangeSet struct {
	groups map[ChangeType]*Statements
}

// New creates an empty change set.
func New() *ChangeSet {
	return &ChangeSet{groups: make(map[ChangeType]*Statements)}
}

// Add stores a statement under the given change type.
func (cs *ChangeSet) Add(t ChangeType, key, sql string) {
	group, ok := cs.groups[t]
	if !ok {
		group = NewStatements()
		cs.groups[t] = group
	}
	group.Set(key, sql)
}

// Get returns the statements of a change type, or nil when there are none.
func (cs *ChangeSet) Get(t ChangeType) *Statements {
	if cs == nil {
		return nil
	}
	return cs.groups[t]
}

// Len returns the total number of statements over all change types.
func (cs *ChangeSet) Len() int {
	if cs == nil {
		return 0
	}
	n := 0
	for _, group := range cs.groups {
		n += group.Len()
	}
	return n
}

// Merge copies every statement of other into cs. Statements of other replace
// statements of cs stored under the same type and key.
func (cs *ChangeSet) Merge(other *ChangeSet) {
	if other == nil {
		return
	}
	for _, t := range allTypes {
		group := other.groups[t]
		for i, key := range group.Keys() {
			cs.Add(t, key, group.sql[i])
		}
	}
}

var allTypes = append(append([]ChangeType(nil), UpdateTypes...), RemoveTypes...)

// ConsideredTypes is the ordered, duplicate-free list of change types whose
// statements are selected for execution. It only ever grows.
type ConsideredTypes struct {
	types []ChangeType
}

// NewConsideredTypes creates a considered-types list holding UpdateTypes.
func NewConsideredTypes() *ConsideredTypes {
	ct := &ConsideredTypes{}
	ct.Add(UpdateTypes...)
	return ct
}

// Add appends the given types that are not yet considered.
func (ct *ConsideredTypes) Add(types ...ChangeType) {
	for _, t := range types {
		if !ct.Contains(t) {
			ct.types = append(ct.types, t)
		}
	}
}

// Contains reports whether t is considered.
func (ct *ConsideredTypes) Contains(t ChangeType) bool {
	for _, existing := range ct.types {
		if existing == t {
			return true
		}
	}
	return false
}

// Types returns the considered types in order.
func (ct *ConsideredTypes) Types() []ChangeType {
	return append([]ChangeType(nil), ct.types...)
}

// SelectConsideredTypes merges the statements of every considered type into one
// mapping, walking the types in the order of considered.
//
// When two types produced a statement under the same key, the type considered later
// wins: its SQL replaces the earlier one at the position of the first insertion.
// The order of considered is therefore the precedence between change types.
func SelectConsideredTypes(cs *ChangeSet, considered *ConsideredTypes) *Statements {
	result := NewStatements()
	for _, t := range considered.types {
		group := cs.Get(t)
		for i, key := range group.Keys() {
			result.Set(key, group.sql[i])
		}
	}
	return result
}

// Key builds the statement key of a table object:
//
//	<table>.<kind>.<name>[.<action>]
//
// Keys identify the statement, not its SQL text, so that a later pass producing a
// statement for the same object replaces the earlier one.
func Key(table, kind, name string, action ...string) string {
	parts := append([]string{table, kind, name}, action...)
	return strings.Join(parts, ".")
}

// Order returns the SQL texts of stmts ready for execution: statements that drop a
// key come first, so that keys are removed before the columns they cover change.
// The relative order within both groups is kept.
func Order(stmts *Statements) []string {
	var dropKeys, rest []string
	for i, key := range stmts.Keys() {
		if IsKeyDrop(key) {
			dropKeys = append(dropKeys, stmts.sql[i])
		} else {
			rest = append(rest, stmts.sql[i])
		}
	}
	return append(dropKeys, rest...)
}

// IsKeyDrop reports whether a statement key, as built by Key, belongs to a statement
// that drops a key. The key is used instead of the SQL text because the dialects
// spell key drops differently (DROP KEY, DROP CONSTRAINT, DROP INDEX).
func IsKeyDrop(key string) bool {
	parts := strings.Split(key, ".")
	n := len(parts)
	return n >= 4 && parts[n-1] == "drop" && parts[n-3] == "key"
}
