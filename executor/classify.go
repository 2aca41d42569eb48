package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
)

// StatementKind distinguishes row-returning statements from commands.
type StatementKind int

const (
	// KindCommand is a statement that mutates state and reports an
	// affected-row count through its command tag.
	KindCommand StatementKind = iota
	// KindRowReturning is a statement that produces a result set.
	KindRowReturning
)

// String returns the string representation of the statement kind.
func (k StatementKind) String() string {
	switch k {
	case KindRowReturning:
		return "query"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Classify decides whether a SQL statement returns rows. A statement is
// row-returning if, after trimming and case-folding, it starts with SELECT,
// or starts with WITH and contains SELECT anywhere in its text.
//
// The WITH check is a naive substring test, not a SQL parse: a WITH query
// whose only SELECT appears inside a string literal is misclassified. That
// matches the behavior this engine replaces and keeps the function pure.
func Classify(sql string) StatementKind {
	s := strings.ToUpper(strings.TrimSpace(sql))
	if strings.HasPrefix(s, "SELECT") {
		return KindRowReturning
	}
	if strings.HasPrefix(s, "WITH") && strings.Contains(s, "SELECT") {
		return KindRowReturning
	}
	return KindCommand
}

// ParseCommandTag extracts the affected-row count from a driver command tag.
// The tag is whitespace-split and the last token, if numeric, is the count:
// "INSERT 0 3" -> 3, "UPDATE 5" -> 5, "DELETE 0" -> 0. Anything that does
// not follow the convention yields 0. This is a compatibility shim against a
// specific driver convention and deliberately never fails.
func ParseCommandTag(tag string) int64 {
	parts := strings.Fields(tag)
	if len(parts) < 2 {
		return 0
	}
	n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Fingerprint returns a short stable hash of the statement text, used to
// correlate log lines for the same SQL across runs.
func Fingerprint(sql string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(sql))
}
