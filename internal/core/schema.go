// Package core contains the single source of truth for a resolved project schema.
// It provides the canonical representation of tables, fields, relations and services
// that every target language emitter consumes, plus the migration operation model
// and the structured error taxonomy shared by the engine.
package core

import (
	"fmt"
	"slices"
	"strings"
)

// UniversalType is an ENUM with all portable field types.
type UniversalType string

const (
	TypeString    UniversalType = "string"
	TypeText      UniversalType = "text"
	TypeInteger   UniversalType = "integer"
	TypeFloat     UniversalType = "float"
	TypeBoolean   UniversalType = "boolean"
	TypeUUID      UniversalType = "uuid"
	TypeTimestamp UniversalType = "timestamp"
	TypeDate      UniversalType = "date"
	TypeJSON      UniversalType = "json"
)

// UniversalTypes returns all supported universal types in canonical order.
func UniversalTypes() []UniversalType {
	return []UniversalType{
		TypeString,
		TypeText,
		TypeInteger,
		TypeFloat,
		TypeBoolean,
		TypeUUID,
		TypeTimestamp,
		TypeDate,
		TypeJSON,
	}
}

// ParseUniversalType maps a type token to a UniversalType. Matching is exact
// (lowercase); no inference is attempted.
func ParseUniversalType(s string) (UniversalType, bool) {
	for _, t := range UniversalTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsTextual reports whether length bounds and enums apply to the type.
func (t UniversalType) IsTextual() bool {
	return t == TypeString || t == TypeText
}

// IsNumeric reports whether value bounds apply to the type.
func (t UniversalType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// IsTemporal reports whether auto_add / auto_update apply to the type.
func (t UniversalType) IsTemporal() bool {
	return t == TypeTimestamp || t == TypeDate
}

// Constraint is a closed ENUM of field flags.
type Constraint string

const (
	ConstraintRequired      Constraint = "required"
	ConstraintUnique        Constraint = "unique"
	ConstraintIndexed       Constraint = "indexed"
	ConstraintPrimaryKey    Constraint = "primary_key"
	ConstraintAutoIncrement Constraint = "auto_increment"
	ConstraintAutoAdd       Constraint = "auto_add"
	ConstraintAutoUpdate    Constraint = "auto_update"
)

// Constraints returns every known constraint in canonical order.
func Constraints() []Constraint {
	return []Constraint{
		ConstraintRequired,
		ConstraintUnique,
		ConstraintIndexed,
		ConstraintPrimaryKey,
		ConstraintAutoIncrement,
		ConstraintAutoAdd,
		ConstraintAutoUpdate,
	}
}

// ParseConstraint maps a flag token to a Constraint.
func ParseConstraint(s string) (Constraint, bool) {
	for _, c := range Constraints() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Constraint) order() int {
	return slices.Index(Constraints(), c)
}

// ConstraintSet is an ordered set of constraints. The zero value is empty and
// ready to use; elements are always kept in canonical order.
type ConstraintSet []Constraint

// NewConstraintSet builds a set from the given constraints, dropping duplicates.
func NewConstraintSet(cs ...Constraint) ConstraintSet {
	var s ConstraintSet
	for _, c := range cs {
		s = s.With(c)
	}
	return s
}

// Has reports whether c is in the set.
func (s ConstraintSet) Has(c Constraint) bool {
	return slices.Contains(s, c)
}

// With returns a copy of the set including c.
func (s ConstraintSet) With(c Constraint) ConstraintSet {
	if s.Has(c) {
		return s
	}
	out := append(slices.Clone(s), c)
	slices.SortFunc(out, func(a, b Constraint) int { return a.order() - b.order() })
	return out
}

// Without returns a copy of the set excluding c.
func (s ConstraintSet) Without(c Constraint) ConstraintSet {
	return slices.DeleteFunc(slices.Clone(s), func(x Constraint) bool { return x == c })
}

// Equal reports whether both sets contain the same constraints.
func (s ConstraintSet) Equal(o ConstraintSet) bool {
	return slices.Equal(s, o)
}

// Bounds holds optional numeric and length limits for a field.
type Bounds struct {
	MaxLength *int     `json:"maxLength,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MinValue  *float64 `json:"minValue,omitempty"`
	MaxValue  *float64 `json:"maxValue,omitempty"`
}

// IsZero reports whether no bound is set.
func (b Bounds) IsZero() bool {
	return b.MaxLength == nil && b.MinLength == nil && b.MinValue == nil && b.MaxValue == nil
}

// Equal compares bounds by value.
func (b Bounds) Equal(o Bounds) bool {
	return ptrEqual(b.MaxLength, o.MaxLength) &&
		ptrEqual(b.MinLength, o.MinLength) &&
		ptrEqual(b.MinValue, o.MinValue) &&
		ptrEqual(b.MaxValue, o.MaxValue)
}

// Reference points at another table's field (a foreign key).
type Reference struct {
	Table string `json:"table"`
	Field string `json:"field"`
}

// String returns the "table.field" form of the reference.
func (r Reference) String() string {
	return r.Table + "." + r.Field
}

// ParseReference splits a "table.field" reference string into its two parts.
// It returns false if the format is invalid.
func ParseReference(ref string) (Reference, bool) {
	ref = strings.TrimSpace(ref)
	dot := strings.LastIndex(ref, ".")
	if dot <= 0 || dot >= len(ref)-1 {
		return Reference{}, false
	}
	return Reference{Table: ref[:dot], Field: ref[dot+1:]}, true
}

// FieldSpec represents a single declared field.
type FieldSpec struct {
	Name        string        `json:"name"`
	Type        UniversalType `json:"type"`
	Constraints ConstraintSet `json:"constraints,omitempty"`
	Bounds      Bounds        `json:"bounds"`
	Default     *string       `json:"default,omitempty"`
	EnumValues  []string      `json:"enumValues,omitempty"`
	Reference   *Reference    `json:"reference,omitempty"`
}

// Has reports whether the field declares the constraint.
func (f *FieldSpec) Has(c Constraint) bool {
	return f.Constraints.Has(c)
}

// IsPrimaryKey reports whether the field is the table's primary key.
func (f *FieldSpec) IsPrimaryKey() bool {
	return f.Has(ConstraintPrimaryKey)
}

// IsRequired reports whether the field is required, either declared or
// implied by primary_key.
func (f *FieldSpec) IsRequired() bool {
	return f.Has(ConstraintRequired) || f.IsPrimaryKey()
}

// IsUnique reports whether the field is unique, either declared or implied by
// primary_key.
func (f *FieldSpec) IsUnique() bool {
	return f.Has(ConstraintUnique) || f.IsPrimaryKey()
}

// HasValueSource reports whether new rows get a value without the caller
// providing one: a literal default, auto_add or auto_update.
func (f *FieldSpec) HasValueSource() bool {
	return f.Default != nil || f.Has(ConstraintAutoAdd) || f.Has(ConstraintAutoUpdate)
}

// Clone returns a deep copy of the field.
func (f *FieldSpec) Clone() *FieldSpec {
	if f == nil {
		return nil
	}
	c := *f
	c.Constraints = slices.Clone(f.Constraints)
	c.Bounds = Bounds{
		MaxLength: clonePtr(f.Bounds.MaxLength),
		MinLength: clonePtr(f.Bounds.MinLength),
		MinValue:  clonePtr(f.Bounds.MinValue),
		MaxValue:  clonePtr(f.Bounds.MaxValue),
	}
	c.Default = clonePtr(f.Default)
	c.EnumValues = slices.Clone(f.EnumValues)
	c.Reference = clonePtr(f.Reference)
	return &c
}

// RelationKind is an ENUM with all relation cardinalities.
type RelationKind string

const (
	OneToOne   RelationKind = "one_to_one"
	OneToMany  RelationKind = "one_to_many"
	ManyToOne  RelationKind = "many_to_one"
	ManyToMany RelationKind = "many_to_many"
)

// ParseRelationKind maps a relation type token to a RelationKind.
func ParseRelationKind(s string) (RelationKind, bool) {
	switch k := RelationKind(strings.ToLower(strings.TrimSpace(s))); k {
	case OneToOne, OneToMany, ManyToOne, ManyToMany:
		return k, true
	default:
		return "", false
	}
}

// Relation is a typed edge from one table to another.
//
// Field names the owning field: for one_to_one and many_to_one it lives on the
// declaring table, for one_to_many on Target, for many_to_many on Through.
type Relation struct {
	Name    string       `json:"name"`
	Kind    RelationKind `json:"kind"`
	Target  string       `json:"target"`
	Field   string       `json:"field"`
	Through string       `json:"through,omitempty"`
}

// OwnerTable returns the table holding the owning field, given the declaring table.
func (r *Relation) OwnerTable(declaring string) string {
	switch r.Kind {
	case OneToMany:
		return r.Target
	case ManyToMany:
		return r.Through
	default:
		return declaring
	}
}

// TableSpec represents a model/table in the schema.
type TableSpec struct {
	Name      string       `json:"name"`
	Source    string       `json:"source"`
	Fields    []*FieldSpec `json:"fields"`
	Relations []*Relation  `json:"relations,omitempty"`
}

// FindField looks for a field by name inside a table.
func (t *TableSpec) FindField(name string) *FieldSpec {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// PrimaryKeys returns every field flagged primary_key.
func (t *TableSpec) PrimaryKeys() []*FieldSpec {
	var out []*FieldSpec
	for _, f := range t.Fields {
		if f.IsPrimaryKey() {
			out = append(out, f)
		}
	}
	return out
}

// References returns the distinct tables this table points at through field
// references, in field order.
func (t *TableSpec) References() []string {
	var out []string
	for _, f := range t.Fields {
		if f.Reference == nil || f.Reference.Table == t.Name {
			continue
		}
		if !slices.Contains(out, f.Reference.Table) {
			out = append(out, f.Reference.Table)
		}
	}
	return out
}

// String returns a short representation of a table.
func (t *TableSpec) String() string {
	return fmt.Sprintf("Table: %s (%d fields, %d relations)", t.Name, len(t.Fields), len(t.Relations))
}

// RateLimit caps requests per time window.
type RateLimit struct {
	Requests int    `json:"requests"`
	Window   string `json:"window"`
}

// Endpoint is a single service method declaration.
type Endpoint struct {
	Method      string     `json:"method"`
	Path        string     `json:"path"`
	Auth        bool       `json:"auth,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	RateLimit   *RateLimit `json:"rateLimit,omitempty"`
}

// ServiceSpec groups tables and endpoints. It is used for naming only and never
// takes part in migrations.
type ServiceSpec struct {
	Name      string     `json:"name"`
	Source    string     `json:"source"`
	Tables    []string   `json:"tables,omitempty"`
	Endpoints []Endpoint `json:"endpoints,omitempty"`
	Auth      bool       `json:"auth,omitempty"`
	RateLimit *RateLimit `json:"rateLimit,omitempty"`
}

// AuthSettings configures authentication for the generated backend.
type AuthSettings struct {
	Enabled     bool     `json:"enabled"`
	Mode        string   `json:"mode,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Settings holds global, non-table configuration.
type Settings struct {
	Project  string       `json:"project,omitempty"`
	Provider string       `json:"provider,omitempty"`
	Auth     AuthSettings `json:"auth"`
}

// SchemaGraph is the canonical, resolved schema of one generation. It is built
// fresh on every resolution and must not be mutated afterwards.
type SchemaGraph struct {
	Settings Settings       `json:"settings"`
	Tables   []*TableSpec   `json:"tables"`
	Services []*ServiceSpec `json:"services,omitempty"`
}

// Table looks for a table by name.
func (g *SchemaGraph) Table(name string) *TableSpec {
	if g == nil {
		return nil
	}
	for _, t := range g.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Field looks for a field by table and field name.
func (g *SchemaGraph) Field(table, field string) *FieldSpec {
	t := g.Table(table)
	if t == nil {
		return nil
	}
	return t.FindField(field)
}

// TableNames returns table names in graph order.
func (g *SchemaGraph) TableNames() []string {
	if g == nil {
		return nil
	}
	names := make([]string, len(g.Tables))
	for i, t := range g.Tables {
		names[i] = t.Name
	}
	return names
}

// GetName methods allow these types to be used with generic Named helpers.
func (t *TableSpec) GetName() string   { return t.Name }
func (f *FieldSpec) GetName() string   { return f.Name }
func (s *ServiceSpec) GetName() string { return s.Name }

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
