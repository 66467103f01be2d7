package output

import (
	"fmt"
	"strings"

	"backforge/internal/core"
	"backforge/internal/diff"
	"backforge/internal/migration"
)

type summaryFormatter struct{}

// FormatDiff formats a schema diff as a compact summary.
// Example output:
//
//	Tables:    +3, ~2, -0
//	Fields:    +5, ~2, -0
func (summaryFormatter) FormatDiff(d *diff.SchemaDiff) (string, error) {
	if d == nil {
		return "No changes detected.\n", nil
	}

	var sb strings.Builder
	s := d.Summarize()

	sb.WriteString("Schema Diff Summary\n")
	sb.WriteString("===================\n\n")

	fmt.Fprintf(&sb, "Tables:  +%d, ~%d, -%d\n", s.AddedTables, s.ModifiedTables, s.RemovedTables)
	fmt.Fprintf(&sb, "Fields:  +%d, ~%d, -%d\n", s.AddedFields, s.ModifiedFields, s.RemovedFields)

	writeTableDetails(&sb, d)

	return sb.String(), nil
}

func writeTableDetails(sb *strings.Builder, d *diff.SchemaDiff) {
	if d.IsEmpty() {
		return
	}

	sb.WriteString("\nDetails:\n")
	for _, t := range d.AddedTables {
		fmt.Fprintf(sb, "  + %s (new table)\n", t.Name)
	}
	for _, t := range d.RemovedTables {
		fmt.Fprintf(sb, "  - %s (removed table)\n", t.Name)
	}
	for _, td := range d.ModifiedTables {
		fmt.Fprintf(sb, "  ~ %s (%s)\n", td.Name, countTableChanges(td))
	}
}

// countTableChanges returns a human-readable summary of changes in a table.
func countTableChanges(td *diff.TableDiff) string {
	var parts []string

	if n := len(td.AddedFields); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d fields", n))
	}
	if n := len(td.RemovedFields); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d fields", n))
	}
	if n := len(td.ModifiedFields); n > 0 {
		parts = append(parts, fmt.Sprintf("~%d fields", n))
	}
	return strings.Join(parts, ", ")
}

var operationKinds = []core.OperationKind{
	core.OpCreateTable,
	core.OpAddField,
	core.OpAddConstraint,
	core.OpAlterFieldType,
	core.OpDropConstraint,
	core.OpDropField,
	core.OpDropTable,
}

// FormatPlan formats a migration plan as a compact summary.
func (summaryFormatter) FormatPlan(p *migration.Plan) (string, error) {
	if p.IsEmpty() {
		return "No migration operations.\n", nil
	}

	var sb strings.Builder

	sb.WriteString("Migration Summary\n")
	sb.WriteString("=================\n\n")

	counts := p.Counts()
	for _, kind := range operationKinds {
		if n := counts[kind]; n > 0 {
			fmt.Fprintf(&sb, "%-17s %d\n", string(kind)+":", n)
		}
	}

	fmt.Fprintf(&sb, "\nAuto-apply: %d\n", len(p.AutoApply()))

	if breaking := p.BreakingNotes(); len(breaking) > 0 {
		fmt.Fprintf(&sb, "\nBreaking Changes: %d\n", len(breaking))
		for _, b := range breaking {
			fmt.Fprintf(&sb, "   - %s\n", b)
		}
	}

	return sb.String(), nil
}
