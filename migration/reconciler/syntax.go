package reconciler

import (
	"fmt"
	"strings"
)

// SyntaxCheckLength is the number of leading characters CheckSyntax inspects.
// Shorter batches are not checked.
const SyntaxCheckLength = 10

// SyntaxSuspicionError is returned when a statement batch does not start with
// what looks like upper-case SQL.
type SyntaxSuspicionError struct {
	// Excerpt holds the first 200 bytes of the batch.
	Excerpt string
}

func (e *SyntaxSuspicionError) Error() string {
	return fmt.Sprintf("statement batch seems to contain unexpected data, it starts with:\n%s", e.Excerpt)
}

// CheckSyntax guards against feeding non-SQL content to the database. It is a
// heuristic, not a parser: the first SyntaxCheckLength characters of the
// left-trimmed batch must read the same once upper-cased and trimmed.
func CheckSyntax(batch string) error {
	if len(batch) < SyntaxCheckLength {
		return nil
	}

	checked := strings.TrimLeft(batch, " \t\n\r\x00\x0B")
	if len(checked) > SyntaxCheckLength {
		checked = checked[:SyntaxCheckLength]
	}
	if checked != strings.TrimSpace(strings.ToUpper(checked)) {
		excerpt := batch
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return &SyntaxSuspicionError{Excerpt: excerpt}
	}
	return nil
}
