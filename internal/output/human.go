package output

import (
	"backforge/internal/diff"
	"backforge/internal/migration"
)

type humanFormatter struct{}

// FormatDiff formats a schema diff in human-readable format.
func (humanFormatter) FormatDiff(d *diff.SchemaDiff) (string, error) {
	if d == nil {
		return "", nil
	}
	return d.String(), nil
}

// FormatPlan formats a migration plan in human-readable format.
func (humanFormatter) FormatPlan(p *migration.Plan) (string, error) {
	return p.String(), nil
}
