package sqlschema

import "strings"

// stripComments removes '#' and '-- ' line comments as well as /* */ block comments
// outside of quoted strings and identifiers.
func stripComments(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			sb.WriteByte(ch)
			switch {
			case ch == '\\' && quote != '`' && i+1 < len(s):
				i++
				sb.WriteByte(s[i])
			case ch == quote:
				quote = 0
			}
			continue
		}

		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			sb.WriteByte(ch)
		case ch == '#':
			i = skipLine(s, i)
		case ch == '-' && i+1 < len(s) && s[i+1] == '-' && (i+2 == len(s) || isSpace(s[i+2])):
			i = skipLine(s, i)
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return sb.String()
			}
			i += end + 3
			sb.WriteByte(' ')
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// skipLine returns the index of the newline ending the line that contains i,
// or the last index of s.
func skipLine(s string, i int) int {
	end := strings.IndexByte(s[i:], '\n')
	if end < 0 {
		return len(s) - 1
	}
	return i + end - 1
}

// splitTopLevel splits s on sep, ignoring separators inside quotes or parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var quote byte
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			switch {
			case ch == '\\' && quote != '`':
				i++
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// tokenize splits a definition into whitespace separated tokens. Quoted strings and
// parenthesized groups stay in one token, and a group directly following a word is
// glued to it, so "varchar (255)" and "varchar(255)" both yield "varchar(255)".
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	var quote byte
	depth := 0

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			cur.WriteByte(ch)
			switch {
			case ch == '\\' && quote != '`' && i+1 < len(s):
				i++
				cur.WriteByte(s[i])
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			cur.WriteByte(ch)
		case ch == '(':
			if depth == 0 && cur.Len() == 0 && len(tokens) > 0 {
				// glue "(…)" to the preceding word
				cur.WriteString(tokens[len(tokens)-1])
				tokens = tokens[:len(tokens)-1]
			}
			depth++
			cur.WriteByte(ch)
		case ch == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteByte(ch)
		case isSpace(ch) && depth == 0:
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	flush()
	return tokens
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

// unquoteIdent strips MySQL back-quotes or ANSI double quotes from an identifier.
func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '`' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
