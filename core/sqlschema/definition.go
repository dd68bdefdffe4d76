package sqlschema

import (
	"regexp"
	"strings"
)

var displayWidthRe = regexp.MustCompile(`^(tinyint|smallint|mediumint|int|integer|bigint)\(\d+\)`)

// Definition renders the column definition without the column name, the way it
// appears in CREATE TABLE and ALTER TABLE statements:
//
//	varchar(255) DEFAULT '' NOT NULL
func (c Column) Definition() string {
	parts := []string{c.Type}
	if c.Default != nil {
		parts = append(parts, "DEFAULT "+*c.Default)
	}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if c.Extra != "" {
		parts = append(parts, c.Extra)
	}
	return strings.Join(parts, " ")
}

// NormalizedType returns the type used for comparison: lower-cased, whitespace
// collapsed, integer display widths removed (int(11) and int are the same type
// since MySQL 8.0.19 stopped reporting display widths).
func (c Column) NormalizedType() string {
	t := strings.ToLower(strings.Join(strings.Fields(c.Type), " "))
	if t == "integer" {
		return "int"
	}
	t = displayWidthRe.ReplaceAllString(t, "$1")
	return strings.Replace(t, "integer", "int", 1)
}

// NormalizedDefault returns the default value used for comparison, with string
// quotes removed. The second value is false when the column has no default.
func (c Column) NormalizedDefault() (string, bool) {
	if c.Default == nil {
		return "", false
	}
	v := strings.TrimSpace(*c.Default)
	if strings.EqualFold(v, "NULL") {
		return "", false
	}
	return Unquote(v), true
}

// Signature returns the comparison signature of the column. Two columns with the
// same name and signature need no change. With ignoreNotNull the nullability is
// left out of the signature.
func (c Column) Signature(ignoreNotNull bool) string {
	var sb strings.Builder
	sb.WriteString(c.NormalizedType())
	if !ignoreNotNull && !c.Nullable {
		sb.WriteString(" not null")
	}
	if def, ok := c.NormalizedDefault(); ok {
		sb.WriteString(" default=")
		sb.WriteString(def)
	}
	if c.AutoIncrement {
		sb.WriteString(" auto_increment")
	}
	return sb.String()
}

// Signature returns the comparison signature of the index: its kind and the
// covered column list. Any difference means the index has to be replaced.
func (i Index) Signature() string {
	cols := make([]string, len(i.Columns))
	for n, col := range i.Columns {
		cols[n] = strings.ToLower(strings.ReplaceAll(col, " ", ""))
	}
	return string(i.Kind) + "(" + strings.Join(cols, ",") + ")"
}

// Unquote strips one level of single or double quotes from an SQL string literal
// and resolves doubled quote characters. Values that are not quoted are returned
// unchanged.
func Unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	q := v[0]
	if (q != '\'' && q != '"') || v[len(v)-1] != q {
		return v
	}
	inner := v[1 : len(v)-1]
	inner = strings.ReplaceAll(inner, string([]byte{q, q}), string(q))
	return strings.ReplaceAll(inner, `\`+string(q), string(q))
}

// Quote renders s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
