package output

import (
	"fmt"
	"io"
	"strings"

	"backforge/internal/core"
	"backforge/internal/dialect"
	_ "backforge/internal/dialect/mysql" // registers the MySQL dialect
	"backforge/internal/diff"
	"backforge/internal/migration"
)

type sqlFormatter struct {
	dialect dialect.Dialect
}

func newSQLFormatter() sqlFormatter {
	return sqlFormatter{dialect: dialect.GetDialect(dialect.MySQL)}
}

// FormatDiff renders the plan of a schema diff as SQL.
func (f sqlFormatter) FormatDiff(d *diff.SchemaDiff) (string, error) {
	return f.FormatPlan(planOf(d))
}

// FormatPlan renders a plan as a reviewed SQL preview. The statements are
// analyzed first; a statement that fails analysis is an error.
func (f sqlFormatter) FormatPlan(p *migration.Plan) (string, error) {
	script := f.dialect.Generator().GeneratePlan(p)
	report := f.dialect.Analyzer().Analyze(script)
	if report.HasErrors() {
		return "", fmt.Errorf("generated SQL failed analysis:\n  - %s", strings.Join(report.Errors, "\n  - "))
	}

	var sb strings.Builder
	sb.WriteString("-- backforge migration\n")
	sb.WriteString("-- Review before running in production.\n")

	writeCommentSection(&sb, "BREAKING CHANGES (require --allow-breaking)", p.BreakingNotes())
	writeCommentSection(&sb, "NOTES", script.Notes)
	writeCommentSection(&sb, "WARNINGS", warningLines(report))

	if len(script.Statements) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String(), nil
	}

	sb.WriteString("\n-- SQL\n")
	for _, st := range script.Statements {
		if st.Classification == core.Breaking {
			sb.WriteString("-- [breaking] " + st.Operation + "\n")
		}
		sb.WriteString(terminate(st.SQL))
		sb.WriteString("\n")
	}

	if rb := script.Rollback(); len(rb) > 0 {
		sb.WriteString("\n-- ROLLBACK SQL (run separately)\n")
		writeRollbackAsComments(&sb, rb)
	}

	return sb.String(), nil
}

// FormatRollbackSQL renders the rollback statements of a plan as SQL.
func FormatRollbackSQL(p *migration.Plan) string {
	script := newSQLFormatter().dialect.Generator().GeneratePlan(p)

	var sb strings.Builder
	sb.WriteString("-- backforge rollback\n")
	sb.WriteString("-- Run to revert the migration (review carefully).\n")

	rb := script.Rollback()
	if len(rb) == 0 {
		sb.WriteString("\n-- No rollback statements generated.\n")
		return sb.String()
	}

	sb.WriteString("\n-- SQL\n")
	for _, stmt := range rb {
		sb.WriteString(terminate(stmt))
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteRollback writes formatted rollback SQL to the given writer.
func WriteRollback(p *migration.Plan, w io.Writer) error {
	_, err := io.WriteString(w, FormatRollbackSQL(p))
	return err
}

func warningLines(r *dialect.Report) []string {
	var out []string
	for _, w := range r.Warnings {
		out = append(out, fmt.Sprintf("[%s] %s", w.Level, w.Message))
	}
	return out
}

func terminate(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if !strings.HasSuffix(stmt, ";") {
		stmt += ";"
	}
	return stmt
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func writeRollbackAsComments(sb *strings.Builder, rollback []string) {
	for _, stmt := range rollback {
		for _, line := range splitCommentLines(stmt) {
			if line == "" {
				continue
			}
			sb.WriteString("-- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
}
