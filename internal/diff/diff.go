// Package diff computes the structural difference between two canonical
// schema graphs and flattens it into migration operations.
//
// Renames are never inferred: a renamed table or field shows up as a drop
// plus an add.
package diff

import (
	"backforge/internal/core"
)

// SchemaDiff represents the differences between two schema graphs.
type SchemaDiff struct {
	AddedTables    []*core.TableSpec `json:"addedTables,omitempty"`
	RemovedTables  []*core.TableSpec `json:"removedTables,omitempty"`
	ModifiedTables []*TableDiff      `json:"modifiedTables,omitempty"`
}

// TableDiff represents the differences between two versions of a table.
type TableDiff struct {
	Name           string            `json:"name"`
	AddedFields    []*core.FieldSpec `json:"addedFields,omitempty"`
	RemovedFields  []*core.FieldSpec `json:"removedFields,omitempty"`
	ModifiedFields []*FieldChange    `json:"modifiedFields,omitempty"`
}

// FieldChange represents the differences between two versions of a field.
type FieldChange struct {
	Name    string             `json:"name"`
	Old     *core.FieldSpec    `json:"old"`
	New     *core.FieldSpec    `json:"new"`
	Changes []*AttributeChange `json:"changes"`
}

// AttributeChange is one differing attribute of a field.
type AttributeChange struct {
	Attribute string `json:"attribute"`
	Old       string `json:"old"`
	New       string `json:"new"`
}

// GetName methods implement the Named interface for type-safe sorting.
func (td *TableDiff) GetName() string   { return td.Name }
func (fc *FieldChange) GetName() string { return fc.Name }

// Compare compares two schema graphs. A nil graph is treated as empty.
func Compare(before, after *core.SchemaGraph) *SchemaDiff {
	d := &SchemaDiff{}
	oldTables := mapTablesByName(tablesOf(before))
	newTables := mapTablesByName(tablesOf(after))

	for name, nt := range newTables {
		ot, ok := oldTables[name]
		if !ok {
			d.AddedTables = append(d.AddedTables, nt)
			continue
		}
		if td := compareTable(ot, nt); td != nil {
			d.ModifiedTables = append(d.ModifiedTables, td)
		}
	}

	for name, ot := range oldTables {
		if _, ok := newTables[name]; !ok {
			d.RemovedTables = append(d.RemovedTables, ot)
		}
	}

	sortNamed(d.AddedTables)
	sortNamed(d.RemovedTables)
	sortNamed(d.ModifiedTables)

	return d
}

// Diff returns the migration operations turning before into after. Operations
// are unclassified and unranked; their order is deterministic but carries no
// meaning.
func Diff(before, after *core.SchemaGraph) []core.Operation {
	return Compare(before, after).Operations()
}

// IsEmpty returns true if there are no differences in the schema diff.
func (d *SchemaDiff) IsEmpty() bool {
	return len(d.AddedTables) == 0 && len(d.RemovedTables) == 0 && len(d.ModifiedTables) == 0
}

// Operations flattens the diff into migration operations. A dropped table
// yields a single drop_table and no operations for its own fields.
func (d *SchemaDiff) Operations() []core.Operation {
	var ops []core.Operation
	for _, t := range d.AddedTables {
		ops = append(ops, core.Operation{Kind: core.OpCreateTable, Table: t.Name, TableSpec: t})
	}
	for _, t := range d.RemovedTables {
		ops = append(ops, core.Operation{Kind: core.OpDropTable, Table: t.Name, TableSpec: t})
	}
	for _, td := range d.ModifiedTables {
		ops = append(ops, td.operations()...)
	}
	return ops
}

func (td *TableDiff) operations() []core.Operation {
	var ops []core.Operation
	for _, f := range td.AddedFields {
		ops = append(ops, core.Operation{Kind: core.OpAddField, Table: td.Name, Field: f.Name, New: f})
	}
	for _, f := range td.RemovedFields {
		ops = append(ops, core.Operation{Kind: core.OpDropField, Table: td.Name, Field: f.Name, Old: f})
	}
	for _, fc := range td.ModifiedFields {
		ops = append(ops, fc.operations(td.Name)...)
	}
	return ops
}

// operations emits one alter_field_type when any non-constraint attribute
// changed, then one add or drop per toggled constraint. required and unique
// are compared as implied by primary_key.
func (fc *FieldChange) operations(table string) []core.Operation {
	var ops []core.Operation
	if fc.alters() {
		ops = append(ops, core.Operation{Kind: core.OpAlterFieldType, Table: table, Field: fc.Name, Old: fc.Old, New: fc.New})
	}
	for _, c := range core.Constraints() {
		had, has := effective(fc.Old, c), effective(fc.New, c)
		switch {
		case has && !had:
			ops = append(ops, core.Operation{Kind: core.OpAddConstraint, Table: table, Field: fc.Name, Constraint: c, Old: fc.Old, New: fc.New})
		case had && !has:
			ops = append(ops, core.Operation{Kind: core.OpDropConstraint, Table: table, Field: fc.Name, Constraint: c, Old: fc.Old, New: fc.New})
		}
	}
	return ops
}

func effective(f *core.FieldSpec, c core.Constraint) bool {
	switch c {
	case core.ConstraintRequired:
		return f.IsRequired()
	case core.ConstraintUnique:
		return f.IsUnique()
	default:
		return f.Has(c)
	}
}

func (fc *FieldChange) alters() bool {
	for _, c := range fc.Changes {
		if c.Attribute != attrConstraints {
			return true
		}
	}
	return false
}

func tablesOf(g *core.SchemaGraph) []*core.TableSpec {
	if g == nil {
		return nil
	}
	return g.Tables
}
