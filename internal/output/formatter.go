// Package output provides a set of formatters for schema diffs and migration
// plans: human-readable text, JSON, a compact summary, and a MySQL DDL preview.
package output

import (
	"fmt"
	"strings"

	"backforge/internal/diff"
	"backforge/internal/migration"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatHuman   Format = "human"
	FormatSQL     Format = "sql"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// Formatter is an interface for formatting schema diffs and migration plans.
type Formatter interface {
	FormatDiff(*diff.SchemaDiff) (string, error)
	FormatPlan(*migration.Plan) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to human format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatSQL:
		return newSQLFormatter(), nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'human', 'sql', 'json', or 'summary'", name)
	}
}

func planOf(d *diff.SchemaDiff) *migration.Plan {
	if d == nil {
		return migration.NewPlan(nil)
	}
	return migration.NewPlan(d.Operations())
}
