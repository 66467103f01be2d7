package parser

import (
	"strconv"
	"strings"

	"backforge/internal/core"
)

// Format renders a FieldSpec back into the canonical mini-language form:
// type, flags in canonical order, bounds, enum, default, references.
// Parse(Format(f)) yields a FieldSpec equal to f.
func Format(f *core.FieldSpec) string {
	if f == nil {
		return ""
	}
	parts := []string{string(f.Type)}
	for _, c := range f.Constraints {
		parts = append(parts, string(c))
	}

	b := f.Bounds
	if b.MaxLength != nil {
		parts = append(parts, keyMaxLength+"="+strconv.Itoa(*b.MaxLength))
	}
	if b.MinLength != nil {
		parts = append(parts, keyMinLength+"="+strconv.Itoa(*b.MinLength))
	}
	if b.MinValue != nil {
		parts = append(parts, keyMinValue+"="+formatNumber(f.Type, *b.MinValue))
	}
	if b.MaxValue != nil {
		parts = append(parts, keyMaxValue+"="+formatNumber(f.Type, *b.MaxValue))
	}
	if len(f.EnumValues) > 0 {
		parts = append(parts, keyEnum+"="+quote(strings.Join(f.EnumValues, "|")))
	}
	if f.Default != nil {
		parts = append(parts, keyDefault+"="+quote(*f.Default))
	}
	if f.Reference != nil {
		parts = append(parts, keyReferences+"="+f.Reference.String())
	}
	return strings.Join(parts, ", ")
}

func formatNumber(t core.UniversalType, v float64) string {
	if t == core.TypeInteger {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// quote wraps a value in quotes when the bare form would not lex back to the
// same text.
func quote(v string) string {
	needs := v == "" || v != strings.TrimSpace(v) || strings.ContainsAny(v, ",='\"")
	if !needs {
		return v
	}
	if strings.Contains(v, "'") {
		return `"` + v + `"`
	}
	return "'" + v + "'"
}
