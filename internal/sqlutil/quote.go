// Package sqlutil provides MySQL identifier and statement helpers for goingest.
package sqlutil

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxIdentifierLength is the MySQL limit for table and column names.
const MaxIdentifierLength = 64

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// backticks inside it.
// Example: "my`field" -> "`my``field`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex restricts table names to alphanumeric and underscore.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name is usable as a destination table name.
func IsValidIdentifier(name string) bool {
	return len(name) <= MaxIdentifierLength && validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes a table name after validating it.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// ValidateColumnName checks a JSON field name against MySQL column rules.
// Field names are always quoted, so any printable name fits as long as it
// is non-empty, at most 64 characters, free of NUL and not space-terminated.
func ValidateColumnName(name string) error {
	switch {
	case name == "":
		return &InvalidIdentifierError{Name: name, Reason: "column name is empty"}
	case utf8.RuneCountInString(name) > MaxIdentifierLength:
		return &InvalidIdentifierError{Name: name, Reason: fmt.Sprintf("column name exceeds %d characters", MaxIdentifierLength)}
	case strings.ContainsRune(name, 0):
		return &InvalidIdentifierError{Name: name, Reason: "column name contains NUL"}
	case strings.HasSuffix(name, " "):
		return &InvalidIdentifierError{Name: name, Reason: "column name ends with a space"}
	}
	return nil
}

// Placeholders returns "(?, ?, ...)" with n markers.
func Placeholders(n int) string {
	if n <= 0 {
		return "()"
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

// RowPlaceholders returns rows comma-separated placeholder groups of cols
// markers each, for a multi-row INSERT.
func RowPlaceholders(rows, cols int) string {
	if rows <= 0 {
		return ""
	}
	group := Placeholders(cols)
	var sb strings.Builder
	sb.Grow(rows * (len(group) + 2))
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(group)
	}
	return sb.String()
}

// InvalidIdentifierError is returned when an identifier cannot be used.
type InvalidIdentifierError struct {
	Name   string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid identifier %q: %s", e.Name, e.Reason)
	}
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}
