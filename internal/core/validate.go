package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords are rejected as identifiers because at least one target
// language or SQL dialect cannot use them unquoted. Matching is case-insensitive.
var reservedWords = func() map[string]struct{} {
	words := []string{
		// SQL
		"add", "all", "alter", "and", "as", "asc", "between", "by", "check", "column",
		"constraint", "create", "database", "default", "delete", "desc", "distinct",
		"drop", "exists", "foreign", "from", "grant", "group", "having", "in", "index",
		"insert", "into", "is", "join", "key", "like", "limit", "not", "null", "or",
		"order", "primary", "references", "select", "set", "table", "union", "unique",
		"update", "values", "where",
		// Go
		"break", "case", "chan", "const", "continue", "defer", "else", "fallthrough",
		"for", "func", "go", "goto", "if", "import", "interface", "package", "range",
		"return", "struct", "switch", "var",
		// TypeScript / JavaScript
		"await", "catch", "class", "debugger", "enum", "export", "extends", "false",
		"finally", "function", "instanceof", "let", "new", "super", "this", "throw",
		"true", "try", "typeof", "void", "while", "with", "yield",
		// Python
		"assert", "async", "def", "del", "elif", "except", "global", "lambda", "none",
		"nonlocal", "pass", "raise",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// IsReservedWord reports whether name is blocked in at least one target language.
func IsReservedWord(name string) bool {
	_, ok := reservedWords[strings.ToLower(name)]
	return ok
}

// ValidateIdentifier checks that a name is usable as a table or field name in
// every target language: letter or underscore start, alphanumeric or
// underscore body, and not a reserved word.
func ValidateIdentifier(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name is empty")
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("%q must start with a letter or underscore and contain only letters, digits and underscores", name)
	}
	if IsReservedWord(name) {
		return fmt.Errorf("%q is a reserved word in at least one target language", name)
	}
	return nil
}

var permissionSegment = `([a-z][a-z0-9_]*|\*)`

var permissionRe = regexp.MustCompile(`^` + permissionSegment + `:` + permissionSegment + `:` + permissionSegment + `$`)

// ValidatePermission checks the "resource:action:scope" permission format.
// Each segment is a lowercase identifier or the "*" wildcard.
func ValidatePermission(perm string) error {
	if !permissionRe.MatchString(perm) {
		return fmt.Errorf("permission %q must match resource:action:scope", perm)
	}
	return nil
}
