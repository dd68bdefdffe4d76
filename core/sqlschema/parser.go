package sqlschema

import (
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports a schema-definition fragment that is not a recognizable
// table, column or index declaration.
type ParseError struct {
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	fragment := e.Fragment
	if len(fragment) > 200 {
		fragment = fragment[:200] + "..."
	}
	return fmt.Sprintf("failed to parse schema definition (%s): %s", e.Reason, fragment)
}

var (
	createTableRe = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([` + "`" + `"]?[\w$.]+[` + "`" + `"]?)\s*\((.*)\)([^)]*)$`)
	tableOptionRe = regexp.MustCompile(`(?i)(DEFAULT\s+CHARACTER\s+SET|DEFAULT\s+CHARSET|CHARACTER\s+SET|CHARSET|DEFAULT\s+COLLATE|COLLATE|ENGINE|TYPE|CLEAR|AUTO_INCREMENT|ROW_FORMAT|COMMENT)\s*=?\s*('(?:[^']|'')*'|[^\s,]+)`)
	keyPrefixRe   = regexp.MustCompile(`(?i)^(PRIMARY\s+KEY|UNIQUE(?:\s+(?:KEY|INDEX))?|FULLTEXT(?:\s+(?:KEY|INDEX))?|SPATIAL(?:\s+(?:KEY|INDEX))?|KEY|INDEX)\b\s*(.*)$`)
	constraintRe  = regexp.MustCompile(`(?i)^CONSTRAINT(?:\s+([` + "`" + `"]?[\w$]+[` + "`" + `"]?))?\s+(PRIMARY\s+KEY|UNIQUE)\b`)
	unsupportedRe = regexp.MustCompile(`(?i)^(FOREIGN\s+KEY\b|CHECK\s*\(|CONSTRAINT\b)`)
	indexTypeRe   = regexp.MustCompile(`(?i)(^|\s+)USING\s+(BTREE|HASH)\s*$`)
)

// Parse turns raw schema-definition text into a normalized Schema.
//
// The text is the concatenation of any number of fragments, each a sequence of
// ";"-terminated CREATE TABLE statements. Fragments may arrive in any order, and
// several fragments may declare columns for the same table: such declarations are
// merged, keeping the first-seen column order and appending columns that appear
// later. A re-declared column or key replaces its earlier definition in place.
//
// Every statement that is not a recognizable CREATE TABLE statement makes Parse fail
// with a *ParseError. Comments and empty statements are ignored.
//
// Example:
//
//	schema, err := sqlschema.Parse(`
//		CREATE TABLE pages (
//			uid int(11) NOT NULL auto_increment,
//			title varchar(255) DEFAULT '' NOT NULL,
//			PRIMARY KEY (uid)
//		);
//		CREATE TABLE pages (
//			tx_news_related int(11) DEFAULT '0' NOT NULL
//		);
//	`)
func Parse(text string) (*Schema, error) {
	schema := NewSchema()
	for _, stmt := range splitTopLevel(stripComments(text), ';') {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		table, err := parseCreateTable(stmt)
		if err != nil {
			return nil, err
		}
		schema.AddTable(table)
	}
	return schema, nil
}

func parseCreateTable(stmt string) (*Table, error) {
	m := createTableRe.FindStringSubmatch(stmt)
	if m == nil {
		return nil, &ParseError{Fragment: stmt, Reason: "not a CREATE TABLE statement"}
	}

	table := NewTable(unquoteIdent(m[1]))
	for _, def := range splitTopLevel(m[2], ',') {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		if err := parseDefinition(table, def); err != nil {
			return nil, err
		}
	}

	if err := parseTableOptions(table, m[3]); err != nil {
		return nil, err
	}
	if len(table.Columns) == 0 && len(table.Indexes) == 0 {
		return nil, &ParseError{Fragment: stmt, Reason: "table has no definitions"}
	}
	return table, nil
}

func parseDefinition(table *Table, def string) error {
	if m := constraintRe.FindStringSubmatchIndex(def); m != nil {
		// CONSTRAINT name PRIMARY KEY (...) / CONSTRAINT name UNIQUE name (...)
		def = def[m[4]:]
	}

	if unsupportedRe.MatchString(def) {
		return &ParseError{Fragment: def, Reason: "unsupported constraint definition"}
	}

	if m := keyPrefixRe.FindStringSubmatch(def); m != nil {
		idx, err := parseIndex(m[1], m[2], def)
		if err != nil {
			return err
		}
		table.SetIndex(idx)
		return nil
	}

	col, inlineIndex, err := parseColumn(def)
	if err != nil {
		return err
	}
	table.SetColumn(col)
	if inlineIndex != nil {
		table.SetIndex(*inlineIndex)
	}
	return nil
}

func parseIndex(kindToken, rest, def string) (Index, error) {
	kindWord := strings.ToUpper(strings.Fields(kindToken)[0])

	var idx Index
	switch kindWord {
	case "PRIMARY":
		idx.Kind = IndexPrimary
		idx.Name = PrimaryKeyName
	case "UNIQUE":
		idx.Kind = IndexUnique
	case "FULLTEXT":
		idx.Kind = IndexFulltext
	case "SPATIAL":
		idx.Kind = IndexSpatial
	default:
		idx.Kind = IndexKey
	}

	open := strings.IndexByte(rest, '(')
	closing := strings.LastIndexByte(rest, ')')
	if open < 0 || closing < open {
		return Index{}, &ParseError{Fragment: def, Reason: "index without column list"}
	}

	// KEY name USING BTREE (...): the index type is not part of the key's identity
	head := indexTypeRe.ReplaceAllString(strings.TrimSpace(rest[:open]), "")
	if !strings.HasPrefix(head, "`") && !strings.HasPrefix(head, `"`) && strings.ContainsAny(head, " \t\r\n") {
		return Index{}, &ParseError{Fragment: def, Reason: "invalid index name"}
	}
	if idx.Kind != IndexPrimary {
		idx.Name = unquoteIdent(head)
	}
	for _, col := range splitTopLevel(rest[open+1:closing], ',') {
		col = strings.Join(strings.Fields(strings.ReplaceAll(col, "`", "")), "")
		if col == "" {
			return Index{}, &ParseError{Fragment: def, Reason: "empty column in index"}
		}
		idx.Columns = append(idx.Columns, col)
	}
	if len(idx.Columns) == 0 {
		return Index{}, &ParseError{Fragment: def, Reason: "index without columns"}
	}
	if idx.Name == "" {
		name := idx.Columns[0]
		if p := strings.IndexByte(name, '('); p > 0 {
			name = name[:p]
		}
		idx.Name = name
	}
	return idx, nil
}

var typeModifiers = map[string]bool{
	"UNSIGNED": true,
	"SIGNED":   true,
	"ZEROFILL": true,
}

func parseColumn(def string) (Column, *Index, error) {
	tokens := tokenize(def)
	if len(tokens) < 2 {
		return Column{}, nil, &ParseError{Fragment: def, Reason: "column without type"}
	}

	col := Column{
		Name:     unquoteIdent(tokens[0]),
		Type:     tokens[1],
		Nullable: true,
	}
	if col.Name == "" || strings.ContainsAny(col.Name, "()'") {
		return Column{}, nil, &ParseError{Fragment: def, Reason: "invalid column name"}
	}
	if strings.ContainsAny(col.Type[:1], "('\"") {
		return Column{}, nil, &ParseError{Fragment: def, Reason: "invalid column type"}
	}

	i := 2
	for i < len(tokens) && typeModifiers[strings.ToUpper(tokens[i])] {
		col.Type += " " + tokens[i]
		i++
	}

	var inline *Index
	var extra []string
	for ; i < len(tokens); i++ {
		word := strings.ToUpper(tokens[i])
		next := ""
		if i+1 < len(tokens) {
			next = strings.ToUpper(tokens[i+1])
		}
		switch {
		case word == "NOT" && next == "NULL":
			col.Nullable = false
			i++
		case word == "NULL":
			col.Nullable = true
		case word == "DEFAULT":
			if i+1 >= len(tokens) {
				return Column{}, nil, &ParseError{Fragment: def, Reason: "DEFAULT without value"}
			}
			i++
			if next == "NULL" {
				col.Default = nil
			} else {
				col.Default = StringPtr(tokens[i])
			}
		case word == "AUTO_INCREMENT":
			col.AutoIncrement = true
		case word == "PRIMARY" && next == "KEY", word == "KEY":
			inline = &Index{Name: PrimaryKeyName, Kind: IndexPrimary, Columns: []string{col.Name}}
			if word == "PRIMARY" {
				i++
			}
			col.Nullable = false
		case word == "UNIQUE":
			inline = &Index{Name: col.Name, Kind: IndexUnique, Columns: []string{col.Name}}
			if next == "KEY" {
				i++
			}
		default:
			extra = append(extra, tokens[i])
		}
	}
	col.Extra = strings.Join(extra, " ")
	return col, inline, nil
}

func parseTableOptions(table *Table, options string) error {
	rest := tableOptionRe.ReplaceAllStringFunc(options, func(opt string) string {
		m := tableOptionRe.FindStringSubmatch(opt)
		name := strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
		value := m[2]
		switch name {
		case "TYPE":
			name = "ENGINE"
		case "CHARSET", "CHARACTER SET", "DEFAULT CHARACTER SET":
			name = "DEFAULT CHARSET"
		case "DEFAULT COLLATE":
			name = "COLLATE"
		}
		switch name {
		case "CLEAR":
			table.Clear = value != "0"
		case "AUTO_INCREMENT":
			// counter state, not structure
		default:
			table.SetOption(name, value)
		}
		return ""
	})
	if strings.Trim(rest, " \t\r\n,=") != "" {
		return &ParseError{Fragment: options, Reason: "unrecognized table options"}
	}
	return nil
}
