package mysql

import (
	"strconv"
	"strings"

	"backforge/internal/core"
)

// formatDefault renders a literal default for the field's type. Numbers and
// booleans are emitted bare when they parse, everything else is quoted.
func (g *Generator) formatDefault(f *core.FieldSpec) string {
	v := *f.Default
	switch f.Type {
	case core.TypeInteger, core.TypeFloat:
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			return v
		}
	case core.TypeBoolean:
		switch strings.ToLower(v) {
		case "true":
			return "TRUE"
		case "false":
			return "FALSE"
		}
	}
	if strings.EqualFold(v, "null") {
		return "NULL"
	}
	return g.QuoteString(v)
}
