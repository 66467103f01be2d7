package mysql

import (
	"fmt"

	"backforge/internal/core"
	"backforge/internal/dialect"
	"backforge/internal/migration"
)

// planRenderer renders one plan. It tracks the column state each statement
// leaves behind so MODIFY COLUMN statements and their rollbacks only carry the
// changes of their own operation.
type planRenderer struct {
	g       *Generator
	script  *dialect.Script
	columns map[string]*core.FieldSpec

	pendingFKs []pendingFK
}

type pendingFK struct {
	op       core.Operation
	up, down string
}

// GeneratePlan renders p as MySQL DDL in plan order. Foreign keys of created
// tables are added once every table of the plan exists.
func (g *Generator) GeneratePlan(p *migration.Plan) *dialect.Script {
	r := &planRenderer{
		g:       g,
		script:  &dialect.Script{},
		columns: make(map[string]*core.FieldSpec),
	}
	if p.IsEmpty() {
		return r.script
	}

	for _, op := range p.Operations {
		if op.Kind != core.OpCreateTable {
			r.flushForeignKeys()
		}
		r.render(op)
	}
	r.flushForeignKeys()
	return r.script
}

func (r *planRenderer) render(op core.Operation) {
	g := r.g
	table := g.QuoteIdentifier(op.Table)

	switch op.Kind {
	case core.OpCreateTable:
		create, _ := g.GenerateCreateTable(op.TableSpec)
		r.script.Add(op, create, g.GenerateDropTable(op.TableSpec))
		for _, f := range op.TableSpec.Fields {
			if f.Reference != nil {
				r.pendingFKs = append(r.pendingFKs, pendingFK{
					op:   op,
					up:   g.addForeignKey(op.Table, f),
					down: g.dropForeignKey(op.Table, f.Name),
				})
			}
		}

	case core.OpDropTable:
		create, _ := g.GenerateCreateTable(op.TableSpec)
		r.script.Add(op, g.GenerateDropTable(op.TableSpec), create)
		r.script.AddNote(fmt.Sprintf("Rolling back DROP TABLE %s recreates it empty; restore data from a backup.", table))

	case core.OpAddField:
		f := op.New
		r.script.Add(op,
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, g.columnDefinition(f)),
			fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, g.QuoteIdentifier(f.Name)))
		r.addKeys(op, f)
		r.columns[op.Target()] = f

	case core.OpDropField:
		f := op.Old
		if f.Reference != nil {
			r.script.Add(op, g.dropForeignKey(op.Table, f.Name), g.addForeignKey(op.Table, f))
		}
		r.script.Add(op,
			fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", table, g.QuoteIdentifier(f.Name)),
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, g.columnDefinition(f)))
		r.script.AddNote(fmt.Sprintf("Rolling back DROP COLUMN %s.%s recreates it empty; restore data from a backup.", table, g.QuoteIdentifier(f.Name)))
		delete(r.columns, op.Target())

	case core.OpAlterFieldType:
		before := r.column(op)
		after := op.New.Clone()
		after.Constraints = before.Constraints
		if before.Reference != nil && !sameReference(before.Reference, after.Reference) {
			r.script.Add(op, g.dropForeignKey(op.Table, op.Field), g.addForeignKey(op.Table, before))
		}
		r.modify(op, before, after)
		if after.Reference != nil && !sameReference(before.Reference, after.Reference) {
			r.script.Add(op, g.addForeignKey(op.Table, after), g.dropForeignKey(op.Table, op.Field))
		}
		if before.Type != after.Type {
			r.script.AddNote(fmt.Sprintf("Validate that existing %s.%s values convert from %s to %s before applying.", op.Table, op.Field, before.Type, after.Type))
		}

	case core.OpAddConstraint:
		r.toggleConstraint(op, true)

	case core.OpDropConstraint:
		r.toggleConstraint(op, false)
	}
}

// column returns the current state of the operation's column.
func (r *planRenderer) column(op core.Operation) *core.FieldSpec {
	if f, ok := r.columns[op.Target()]; ok {
		return f
	}
	return op.Old.Clone()
}

func (r *planRenderer) modify(op core.Operation, before, after *core.FieldSpec) {
	table := r.g.QuoteIdentifier(op.Table)
	r.script.Add(op,
		fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", table, r.g.columnDefinition(after)),
		fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", table, r.g.columnDefinition(before)))
	r.columns[op.Target()] = after
}

func (r *planRenderer) toggleConstraint(op core.Operation, add bool) {
	g := r.g
	table := g.QuoteIdentifier(op.Table)
	field := g.QuoteIdentifier(op.Field)

	before := r.column(op)
	after := before.Clone()
	if add {
		after.Constraints = after.Constraints.With(op.Constraint)
	} else {
		after.Constraints = after.Constraints.Without(op.Constraint)
	}

	var up, down string
	switch op.Constraint {
	case core.ConstraintUnique:
		up = fmt.Sprintf("ALTER TABLE %s ADD %s;", table, g.uniqueKeyDefinition(op.Table, op.Field))
		down = fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, g.QuoteIdentifier(uniqueKeyName(op.Table, op.Field)))
	case core.ConstraintIndexed:
		up = fmt.Sprintf("CREATE INDEX %s ON %s (%s);", g.QuoteIdentifier(indexName(op.Table, op.Field)), table, field)
		down = fmt.Sprintf("DROP INDEX %s ON %s;", g.QuoteIdentifier(indexName(op.Table, op.Field)), table)
	case core.ConstraintPrimaryKey:
		up = fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", table, field)
		down = fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", table)
	default:
		// required, auto_increment, auto_add and auto_update live on the column.
		r.modify(op, before, after)
		return
	}

	if !add {
		up, down = down, up
	}
	r.script.Add(op, up, down)
	r.columns[op.Target()] = after
}

// addKeys adds the keys of a newly added column.
func (r *planRenderer) addKeys(op core.Operation, f *core.FieldSpec) {
	g := r.g
	table := g.QuoteIdentifier(op.Table)
	if f.IsPrimaryKey() {
		r.script.Add(op,
			fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", table, g.QuoteIdentifier(f.Name)),
			fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", table))
	}
	if f.Has(core.ConstraintUnique) && !f.IsPrimaryKey() {
		r.script.Add(op,
			fmt.Sprintf("ALTER TABLE %s ADD %s;", table, g.uniqueKeyDefinition(op.Table, f.Name)),
			fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, g.QuoteIdentifier(uniqueKeyName(op.Table, f.Name))))
	}
	if f.Has(core.ConstraintIndexed) && !f.IsUnique() {
		r.script.Add(op,
			fmt.Sprintf("CREATE INDEX %s ON %s (%s);", g.QuoteIdentifier(indexName(op.Table, f.Name)), table, g.QuoteIdentifier(f.Name)),
			fmt.Sprintf("DROP INDEX %s ON %s;", g.QuoteIdentifier(indexName(op.Table, f.Name)), table))
	}
	if f.Reference != nil {
		r.script.Add(op, g.addForeignKey(op.Table, f), g.dropForeignKey(op.Table, f.Name))
	}
}

func (r *planRenderer) flushForeignKeys() {
	if len(r.pendingFKs) == 0 {
		return
	}
	r.script.AddNote("Foreign keys of new tables are added after table creation to avoid dependency issues.")
	for _, fk := range r.pendingFKs {
		r.script.Add(fk.op, fk.up, fk.down)
	}
	r.pendingFKs = nil
}

func sameReference(a, b *core.Reference) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
