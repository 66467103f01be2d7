package mysql

import (
	"fmt"
	"strconv"
	"strings"

	"backforge/internal/core"
)

const defaultVarcharLength = 255

// columnType maps a universal type to a MySQL column type.
func (g *Generator) columnType(f *core.FieldSpec) string {
	switch f.Type {
	case core.TypeString:
		if len(f.EnumValues) > 0 {
			values := make([]string, len(f.EnumValues))
			for i, v := range f.EnumValues {
				values[i] = g.QuoteString(v)
			}
			return "ENUM(" + strings.Join(values, ", ") + ")"
		}
		n := defaultVarcharLength
		if f.Bounds.MaxLength != nil {
			n = *f.Bounds.MaxLength
		}
		return fmt.Sprintf("VARCHAR(%d)", n)
	case core.TypeText:
		return "TEXT"
	case core.TypeInteger:
		return "BIGINT"
	case core.TypeFloat:
		return "DOUBLE"
	case core.TypeBoolean:
		return "BOOLEAN"
	case core.TypeUUID:
		return "CHAR(36)"
	case core.TypeTimestamp:
		return "TIMESTAMP"
	case core.TypeDate:
		return "DATE"
	case core.TypeJSON:
		return "JSON"
	default:
		return strings.ToUpper(string(f.Type))
	}
}

// columnDefinition renders a column without keys; keys are rendered as
// separate table elements or statements.
func (g *Generator) columnDefinition(f *core.FieldSpec) string {
	parts := []string{g.QuoteIdentifier(f.Name), g.columnType(f)}
	parts = g.addNullability(parts, f)
	parts = g.addAutoAttributes(parts, f)
	parts = g.addDefaultAndUpdate(parts, f)
	parts = g.addChecks(parts, f)
	return strings.Join(parts, " ")
}

func (g *Generator) addNullability(parts []string, f *core.FieldSpec) []string {
	if f.IsRequired() {
		return append(parts, "NOT NULL")
	}
	return append(parts, "NULL")
}

func (g *Generator) addAutoAttributes(parts []string, f *core.FieldSpec) []string {
	if f.Has(core.ConstraintAutoIncrement) {
		parts = append(parts, "AUTO_INCREMENT")
	}
	return parts
}

func (g *Generator) addDefaultAndUpdate(parts []string, f *core.FieldSpec) []string {
	// DATE columns cannot default to the current time; the application fills them.
	auto := f.Type == core.TypeTimestamp
	switch {
	case f.Default != nil:
		parts = append(parts, "DEFAULT", g.formatDefault(f))
	case auto && (f.Has(core.ConstraintAutoAdd) || f.Has(core.ConstraintAutoUpdate)):
		parts = append(parts, "DEFAULT", "CURRENT_TIMESTAMP")
	}
	if auto && f.Has(core.ConstraintAutoUpdate) {
		parts = append(parts, "ON UPDATE", "CURRENT_TIMESTAMP")
	}
	return parts
}

func (g *Generator) addChecks(parts []string, f *core.FieldSpec) []string {
	col := g.QuoteIdentifier(f.Name)
	b := f.Bounds
	if b.MinLength != nil {
		parts = append(parts, fmt.Sprintf("CHECK (CHAR_LENGTH(%s) >= %d)", col, *b.MinLength))
	}
	if b.MaxLength != nil && f.Type == core.TypeText {
		parts = append(parts, fmt.Sprintf("CHECK (CHAR_LENGTH(%s) <= %d)", col, *b.MaxLength))
	}
	if b.MinValue != nil {
		parts = append(parts, fmt.Sprintf("CHECK (%s >= %s)", col, formatNumber(*b.MinValue)))
	}
	if b.MaxValue != nil {
		parts = append(parts, fmt.Sprintf("CHECK (%s <= %s)", col, formatNumber(*b.MaxValue)))
	}
	return parts
}

// GenerateCreateTable renders CREATE TABLE for t. Foreign keys are returned
// separately so they can run after every table exists.
func (g *Generator) GenerateCreateTable(t *core.TableSpec) (string, []string) {
	name := g.QuoteIdentifier(t.Name)

	var lines []string
	for _, f := range t.Fields {
		lines = append(lines, "  "+g.columnDefinition(f))
	}
	for _, f := range t.PrimaryKeys() {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", g.QuoteIdentifier(f.Name)))
	}
	for _, f := range t.Fields {
		if f.Has(core.ConstraintUnique) && !f.IsPrimaryKey() {
			lines = append(lines, "  "+g.uniqueKeyDefinition(t.Name, f.Name))
		}
	}
	for _, f := range t.Fields {
		if f.Has(core.ConstraintIndexed) && !f.IsUnique() {
			lines = append(lines, "  "+g.indexDefinition(t.Name, f.Name))
		}
	}

	create := fmt.Sprintf("CREATE TABLE %s (\n%s\n);", name, strings.Join(lines, ",\n"))

	var fks []string
	for _, f := range t.Fields {
		if f.Reference != nil {
			fks = append(fks, g.addForeignKey(t.Name, f))
		}
	}
	return create, fks
}

// GenerateDropTable generate an SQL statement to drop a table.
func (g *Generator) GenerateDropTable(t *core.TableSpec) string {
	return fmt.Sprintf("DROP TABLE %s;", g.QuoteIdentifier(t.Name))
}

func (g *Generator) uniqueKeyDefinition(table, field string) string {
	return fmt.Sprintf("UNIQUE KEY %s (%s)", g.QuoteIdentifier(uniqueKeyName(table, field)), g.QuoteIdentifier(field))
}

func (g *Generator) indexDefinition(table, field string) string {
	return fmt.Sprintf("KEY %s (%s)", g.QuoteIdentifier(indexName(table, field)), g.QuoteIdentifier(field))
}

func (g *Generator) addForeignKey(table string, f *core.FieldSpec) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
		g.QuoteIdentifier(table),
		g.QuoteIdentifier(foreignKeyName(table, f.Name)),
		g.QuoteIdentifier(f.Name),
		g.QuoteIdentifier(f.Reference.Table),
		g.QuoteIdentifier(f.Reference.Field))
}

func (g *Generator) dropForeignKey(table, field string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", g.QuoteIdentifier(table), g.QuoteIdentifier(foreignKeyName(table, field)))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
