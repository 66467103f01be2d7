// Package parser implements the field constraint mini-language:
//
//	type ("," constraint)*
//	constraint = flag | name "=" value
//
// e.g. "string, required, unique, max_length=255". The first token must be one
// of the universal types. Unknown constraint names are rejected; values may be
// quoted with ' or " to carry commas, pipes or an empty string.
package parser

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"backforge/internal/core"
)

// Value constraint names.
const (
	keyMaxLength  = "max_length"
	keyMinLength  = "min_length"
	keyMinValue   = "min_value"
	keyMaxValue   = "max_value"
	keyDefault    = "default"
	keyEnum       = "enum"
	keyReferences = "references"
)

var valueKeys = []string{keyMaxLength, keyMinLength, keyMinValue, keyMaxValue, keyDefault, keyEnum, keyReferences}

// Error describes a rejected field definition. Kind is either
// MalformedFieldDefinition or ConstraintTypeMismatch.
type Error struct {
	Kind   core.ErrorKind
	Input  string
	Token  string
	Offset int
	Index  int
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (token %q at offset %d)", e.Kind, e.Reason, e.Token, e.Offset)
}

// Is matches the core sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*core.Error)
	return ok && t.Kind == e.Kind
}

// AsCoreError converts the parse error into a located engine error.
func (e *Error) AsCoreError(location string) *core.Error {
	return core.Errorf(e.Kind, location, "%s (token %q at offset %d)", e.Reason, e.Token, e.Offset)
}

// clause is one comma separated element of a definition.
type clause struct {
	name     token
	value    *token
	position int
}

// Parse turns a field definition string into a FieldSpec without a name.
func Parse(def string) (*core.FieldSpec, error) {
	return ParseNamed("", def)
}

// ParseNamed turns a field definition string into a named FieldSpec.
func ParseNamed(name, def string) (*core.FieldSpec, error) {
	clauses, err := split(def)
	if err != nil {
		return nil, err
	}
	p := &fieldParser{input: def, field: &core.FieldSpec{Name: name}, seen: map[string]bool{}}
	if err := p.parseType(clauses[0]); err != nil {
		return nil, err
	}
	for _, c := range clauses[1:] {
		if err := p.parseConstraint(c); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.field, nil
}

// split groups the token stream into clauses.
func split(def string) ([]clause, error) {
	tokens, err := lex(def)
	if err != nil {
		return nil, err
	}

	malformed := func(tok token, index int, reason string) error {
		return &Error{Kind: core.KindMalformedFieldDefinition, Input: def, Token: tok.text, Offset: tok.pos, Index: index, Reason: reason}
	}

	var clauses []clause
	i := 0
	for {
		index := len(clauses)
		tok := tokens[i]
		if tok.kind != tokWord || tok.text == "" {
			reason := "expected a constraint"
			if index == 0 {
				reason = "expected a field type"
			}
			return nil, malformed(tok, index, reason)
		}
		c := clause{name: tok, position: index}
		i++

		if tokens[i].kind == tokEquals {
			i++
			val := tokens[i]
			missing := val.kind != tokWord && val.kind != tokQuoted
			if missing || (val.kind == tokWord && val.text == "") {
				return nil, malformed(tok, index, fmt.Sprintf("constraint %q is missing a value", tok.text))
			}
			c.value = &val
			i++
		}
		clauses = append(clauses, c)

		switch tokens[i].kind {
		case tokEOF:
			return clauses, nil
		case tokComma:
			i++
		default:
			return nil, malformed(tokens[i], index, "expected ',' between constraints")
		}
	}
}

type fieldParser struct {
	input string
	field *core.FieldSpec
	seen  map[string]bool

	defaultTok *token
	enumTok    *token
}

func (p *fieldParser) errorf(kind core.ErrorKind, c clause, format string, args ...any) error {
	tok := c.name.text
	if c.value != nil {
		tok = c.name.text + "=" + c.value.text
	}
	return &Error{
		Kind:   kind,
		Input:  p.input,
		Token:  tok,
		Offset: c.name.pos,
		Index:  c.position,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (p *fieldParser) parseType(c clause) error {
	if c.value != nil {
		return p.errorf(core.KindMalformedFieldDefinition, c, "the first token must be a field type")
	}
	t, ok := core.ParseUniversalType(c.name.text)
	if !ok {
		return p.errorf(core.KindMalformedFieldDefinition, c, "unknown field type %q; supported: %v", c.name.text, core.UniversalTypes())
	}
	p.field.Type = t
	return nil
}

func (p *fieldParser) parseConstraint(c clause) error {
	name := c.name.text
	if p.seen[name] {
		return p.errorf(core.KindMalformedFieldDefinition, c, "duplicate constraint %q", name)
	}
	p.seen[name] = true

	if flag, ok := core.ParseConstraint(name); ok {
		if c.value != nil {
			return p.errorf(core.KindMalformedFieldDefinition, c, "constraint %q does not take a value", name)
		}
		return p.applyFlag(c, flag)
	}

	if !slices.Contains(valueKeys, name) {
		if _, isType := core.ParseUniversalType(name); isType {
			return p.errorf(core.KindMalformedFieldDefinition, c, "field type %q must be the first token", name)
		}
		return p.errorf(core.KindMalformedFieldDefinition, c, "unknown constraint %q", name)
	}
	if c.value == nil {
		return p.errorf(core.KindMalformedFieldDefinition, c, "constraint %q requires a value", name)
	}
	return p.applyValue(c, name, c.value.text)
}

func (p *fieldParser) applyFlag(c clause, flag core.Constraint) error {
	t := p.field.Type
	switch flag {
	case core.ConstraintAutoIncrement:
		if t != core.TypeInteger {
			return p.errorf(core.KindConstraintTypeMismatch, c, "auto_increment requires an integer field, got %s", t)
		}
	case core.ConstraintAutoAdd, core.ConstraintAutoUpdate:
		if !t.IsTemporal() {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s requires a timestamp or date field, got %s", flag, t)
		}
	case core.ConstraintPrimaryKey, core.ConstraintUnique, core.ConstraintIndexed:
		if t == core.TypeJSON {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s cannot be applied to a json field", flag)
		}
	}
	p.field.Constraints = p.field.Constraints.With(flag)
	return nil
}

func (p *fieldParser) applyValue(c clause, name, raw string) error {
	t := p.field.Type
	switch name {
	case keyMaxLength, keyMinLength:
		if !t.IsTextual() {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s requires a string or text field, got %s", name, t)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s must be an integer, got %q", name, raw)
		}
		if n < 0 {
			return p.errorf(core.KindMalformedFieldDefinition, c, "%s must not be negative", name)
		}
		if name == keyMaxLength {
			p.field.Bounds.MaxLength = &n
		} else {
			p.field.Bounds.MinLength = &n
		}

	case keyMinValue, keyMaxValue:
		if !t.IsNumeric() {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s requires an integer or float field, got %s", name, t)
		}
		v, err := parseNumber(t, raw)
		if err != nil {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s must be a valid %s, got %q", name, t, raw)
		}
		if t == core.TypeInteger && math.Abs(v) > maxExactInteger {
			return p.errorf(core.KindConstraintTypeMismatch, c, "%s %s is outside the exact integer range of +/-%d", name, raw, int64(maxExactInteger))
		}
		if name == keyMinValue {
			p.field.Bounds.MinValue = &v
		} else {
			p.field.Bounds.MaxValue = &v
		}

	case keyEnum:
		if !t.IsTextual() {
			return p.errorf(core.KindConstraintTypeMismatch, c, "enum requires a string or text field, got %s", t)
		}
		values := strings.Split(raw, "|")
		for i, v := range values {
			v = strings.TrimSpace(v)
			if v == "" {
				return p.errorf(core.KindMalformedFieldDefinition, c, "enum value at position %d is empty", i)
			}
			if slices.Contains(values[:i], v) {
				return p.errorf(core.KindMalformedFieldDefinition, c, "duplicate enum value %q", v)
			}
			values[i] = v
		}
		p.field.EnumValues = values
		p.enumTok = &c.name

	case keyDefault:
		if err := checkLiteral(t, raw); err != nil {
			return p.errorf(core.KindConstraintTypeMismatch, c, "default %q is not a valid %s: %v", raw, t, err)
		}
		v := raw
		p.field.Default = &v
		p.defaultTok = &c.name

	case keyReferences:
		ref, ok := core.ParseReference(raw)
		if !ok {
			return p.errorf(core.KindMalformedFieldDefinition, c, "references %q must have the form table.field", raw)
		}
		p.field.Reference = &ref
	}
	return nil
}

// finish checks cross-constraint invariants once every clause is applied.
func (p *fieldParser) finish() error {
	f := p.field
	whole := clause{name: token{text: p.input}}

	sources := 0
	if f.Default != nil {
		sources++
	}
	if f.Has(core.ConstraintAutoAdd) {
		sources++
	}
	if f.Has(core.ConstraintAutoUpdate) {
		sources++
	}
	if sources > 1 {
		return p.errorf(core.KindMalformedFieldDefinition, whole, "at most one of default, auto_add and auto_update may be set")
	}

	b := f.Bounds
	if b.MinLength != nil && b.MaxLength != nil && *b.MinLength > *b.MaxLength {
		return p.errorf(core.KindMalformedFieldDefinition, whole, "min_length %d exceeds max_length %d", *b.MinLength, *b.MaxLength)
	}
	if b.MinValue != nil && b.MaxValue != nil && *b.MinValue > *b.MaxValue {
		return p.errorf(core.KindMalformedFieldDefinition, whole, "min_value %v exceeds max_value %v", *b.MinValue, *b.MaxValue)
	}

	if f.Default != nil && len(f.EnumValues) > 0 && !slices.Contains(f.EnumValues, *f.Default) {
		return p.errorf(core.KindMalformedFieldDefinition, clause{name: *p.defaultTok}, "default %q is not one of the enum values %v", *f.Default, f.EnumValues)
	}
	if f.Default != nil && f.Type.IsTextual() {
		n := len([]rune(*f.Default))
		if b.MaxLength != nil && n > *b.MaxLength {
			return p.errorf(core.KindMalformedFieldDefinition, clause{name: *p.defaultTok}, "default is longer than max_length %d", *b.MaxLength)
		}
	}
	return nil
}

// maxExactInteger is the largest integer bound stored without rounding.
const maxExactInteger = 1 << 53

func parseNumber(t core.UniversalType, raw string) (float64, error) {
	if t == core.TypeInteger {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", raw)
	}
	return v, nil
}

// checkLiteral verifies that a default literal is representable by the type.
// Temporal, textual and json literals are passed through to the emitters.
func checkLiteral(t core.UniversalType, raw string) error {
	switch t {
	case core.TypeInteger, core.TypeFloat:
		_, err := parseNumber(t, raw)
		return err
	case core.TypeBoolean:
		_, err := strconv.ParseBool(raw)
		return err
	case core.TypeUUID:
		_, err := uuid.Parse(raw)
		return err
	default:
		return nil
	}
}
