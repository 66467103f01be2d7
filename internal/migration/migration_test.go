package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backforge/internal/core"
	"backforge/internal/diff"
	"backforge/internal/parser"
)

func field(t *testing.T, name, def string) *core.FieldSpec {
	t.Helper()
	f, err := parser.ParseNamed(name, def)
	require.NoError(t, err)
	return f
}

func table(t *testing.T, name string, defs ...string) *core.TableSpec {
	t.Helper()
	ts := &core.TableSpec{Name: name}
	for i := 0; i+1 < len(defs); i += 2 {
		ts.Fields = append(ts.Fields, field(t, defs[i], defs[i+1]))
	}
	return ts
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		op   core.Operation
		want core.Classification
	}{
		{"create table", core.Operation{Kind: core.OpCreateTable}, core.Safe},
		{"optional field", core.Operation{Kind: core.OpAddField, New: field(t, "n", "string")}, core.Safe},
		{"required with default", core.Operation{Kind: core.OpAddField, New: field(t, "n", "string, required, default=''")}, core.Safe},
		{"required with auto_add", core.Operation{Kind: core.OpAddField, New: field(t, "n", "timestamp, required, auto_add")}, core.Safe},
		{"required with auto_update", core.Operation{Kind: core.OpAddField, New: field(t, "n", "timestamp, required, auto_update")}, core.Safe},
		{"required without default", core.Operation{Kind: core.OpAddField, New: field(t, "n", "string, required")}, core.Breaking},
		{"primary key without default", core.Operation{Kind: core.OpAddField, New: field(t, "n", "uuid, primary_key")}, core.Breaking},
		{"add indexed", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintIndexed}, core.Safe},
		{"add unique", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintUnique}, core.Breaking},
		{"add primary key", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintPrimaryKey}, core.Breaking},
		{"add required", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintRequired}, core.Breaking},
		{"add auto_increment", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintAutoIncrement}, core.Breaking},
		{"add auto_add", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintAutoAdd}, core.Safe},
		{"add auto_update", core.Operation{Kind: core.OpAddConstraint, Constraint: core.ConstraintAutoUpdate}, core.Safe},
		{"drop table", core.Operation{Kind: core.OpDropTable}, core.Breaking},
		{"drop field", core.Operation{Kind: core.OpDropField}, core.Breaking},
		{"alter type", core.Operation{Kind: core.OpAlterFieldType}, core.Breaking},
		{"drop unique", core.Operation{Kind: core.OpDropConstraint, Constraint: core.ConstraintUnique}, core.Safe},
		{"drop primary key", core.Operation{Kind: core.OpDropConstraint, Constraint: core.ConstraintPrimaryKey}, core.Safe},
		{"unknown kind", core.Operation{Kind: "rename_field"}, core.Breaking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.op))
		})
	}
}

func TestRank(t *testing.T) {
	assert.Equal(t, 0, Rank(core.OpCreateTable))
	assert.Equal(t, 1, Rank(core.OpAddField))
	assert.Equal(t, 1, Rank(core.OpAddConstraint))
	assert.Equal(t, 2, Rank(core.OpAlterFieldType))
	assert.Equal(t, 3, Rank(core.OpDropConstraint))
	assert.Equal(t, 4, Rank(core.OpDropField))
	assert.Equal(t, 5, Rank(core.OpDropTable))
}

func TestNewPlanOrdering(t *testing.T) {
	ops := []core.Operation{
		{Kind: core.OpDropTable, Table: "legacy", TableSpec: table(t, "legacy", "id", "integer, primary_key")},
		{Kind: core.OpDropField, Table: "users", Field: "nickname", Old: field(t, "nickname", "string")},
		{Kind: core.OpDropConstraint, Table: "users", Field: "email", Constraint: core.ConstraintUnique},
		{Kind: core.OpAlterFieldType, Table: "orders", Field: "total"},
		{Kind: core.OpAddField, Table: "users", Field: "bio", New: field(t, "bio", "text")},
		{Kind: core.OpAddConstraint, Table: "orders", Field: "state", Constraint: core.ConstraintIndexed},
		{Kind: core.OpAddField, Table: "orders", Field: "state", New: field(t, "state", "string")},
		{Kind: core.OpCreateTable, Table: "accounts", TableSpec: table(t, "accounts", "id", "uuid, primary_key")},
	}

	plan := NewPlan(ops)

	var got []string
	for _, op := range plan.Operations {
		got = append(got, op.String())
	}
	assert.Equal(t, []string{
		"create_table(accounts)",
		"add_field(orders.state)",
		"add_constraint(orders.state, indexed)",
		"add_field(users.bio)",
		"alter_field_type(orders.total)",
		"drop_constraint(users.email, unique)",
		"drop_field(users.nickname)",
		"drop_table(legacy)",
	}, got)

	for _, op := range plan.Operations {
		assert.Equal(t, Rank(op.Kind), op.Rank)
		assert.NotEqual(t, core.Unclassified, op.Classification)
	}
	assert.Equal(t, core.Unclassified, ops[0].Classification, "input is not modified")
}

func TestNewPlanCreatesFollowForeignKeys(t *testing.T) {
	after := &core.SchemaGraph{Tables: []*core.TableSpec{
		table(t, "accounts", "id", "uuid, primary_key", "owner_id", "uuid, references=users.id"),
		table(t, "users", "id", "uuid, primary_key", "org_id", "uuid, references=orgs.id"),
		table(t, "orgs", "id", "uuid, primary_key"),
		table(t, "audit", "id", "uuid, primary_key"),
	}}

	create := NewPlan(diff.Diff(nil, after))
	var names []string
	for _, op := range create.Operations {
		names = append(names, op.Table)
	}
	assert.Equal(t, []string{"audit", "orgs", "users", "accounts"}, names)

	drop := NewPlan(diff.Diff(after, nil))
	names = names[:0]
	for _, op := range drop.Operations {
		names = append(names, op.Table)
	}
	assert.Equal(t, []string{"accounts", "users", "orgs", "audit"}, names, "dependents are dropped first")
}

func TestNewPlanReferenceCycle(t *testing.T) {
	after := &core.SchemaGraph{Tables: []*core.TableSpec{
		table(t, "a", "id", "uuid, primary_key", "b_id", "uuid, references=b.id"),
		table(t, "b", "id", "uuid, primary_key", "a_id", "uuid, references=a.id"),
		table(t, "c", "id", "uuid, primary_key", "a_id", "uuid, references=a.id"),
	}}
	plan := NewPlan(diff.Diff(nil, after))
	var names []string
	for _, op := range plan.Operations {
		names = append(names, op.Table)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestPlanPartitionsKeepOrder(t *testing.T) {
	before := &core.SchemaGraph{Tables: []*core.TableSpec{
		table(t, "users", "id", "uuid, primary_key", "email", "string, unique, required", "age", "integer"),
	}}
	after := &core.SchemaGraph{Tables: []*core.TableSpec{
		table(t, "users", "id", "uuid, primary_key", "email", "string, required", "name", "string, default=''", "age", "float"),
		table(t, "posts", "id", "uuid, primary_key"),
	}}

	plan := NewPlan(diff.Diff(before, after))
	require.Len(t, plan.Operations, 4)

	auto := plan.AutoApply()
	pending := plan.PendingConfirmation()
	assert.Len(t, auto, 3)
	assert.Len(t, pending, 1)
	assert.Equal(t, "alter_field_type(users.age)", pending[0].String())

	var autoNames []string
	for _, op := range auto {
		autoNames = append(autoNames, op.String())
	}
	assert.Equal(t, []string{"create_table(posts)", "add_field(users.name)", "drop_constraint(users.email, unique)"}, autoNames)
}

func TestPlanGate(t *testing.T) {
	users := table(t, "users", "id", "uuid, primary_key", "email", "string, unique, required")

	tests := []struct {
		name          string
		after         *core.TableSpec
		allowBreaking bool
		wantErr       bool
	}{
		{
			name:  "safe addition passes",
			after: table(t, "users", "id", "uuid, primary_key", "email", "string, unique, required", "name", "string, default=''"),
		},
		{
			name:    "breaking drop is gated",
			after:   table(t, "users", "id", "uuid, primary_key"),
			wantErr: true,
		},
		{
			name:          "breaking drop with override",
			after:         table(t, "users", "id", "uuid, primary_key"),
			allowBreaking: true,
		},
		{
			name:  "no-op",
			after: users,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := NewPlan(diff.Diff(
				&core.SchemaGraph{Tables: []*core.TableSpec{users}},
				&core.SchemaGraph{Tables: []*core.TableSpec{tt.after}},
			))
			err := plan.Confirm(tt.allowBreaking)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrUnconfirmedBreakingChange)
			assert.Contains(t, err.Error(), "drop_field(users.email)")
		})
	}
}

func TestPlanScenarios(t *testing.T) {
	users := table(t, "users", "id", "uuid, primary_key", "email", "string, unique, required")
	g := func(ts ...*core.TableSpec) *core.SchemaGraph { return &core.SchemaGraph{Tables: ts} }

	t.Run("safe addition", func(t *testing.T) {
		plan := NewPlan(diff.Diff(g(users), g(table(t, "users", "id", "uuid, primary_key", "email", "string, unique, required", "name", "string, default=''"))))
		require.Len(t, plan.Operations, 1)
		assert.Equal(t, core.OpAddField, plan.Operations[0].Kind)
		assert.Equal(t, core.Safe, plan.Operations[0].Classification)
		assert.NotEmpty(t, plan.AutoApply())
		assert.Empty(t, plan.PendingConfirmation())
	})

	t.Run("breaking drop", func(t *testing.T) {
		plan := NewPlan(diff.Diff(g(users), g(table(t, "users", "id", "uuid, primary_key"))))
		require.Len(t, plan.Operations, 1)
		assert.Equal(t, core.OpDropField, plan.Operations[0].Kind)
		assert.Equal(t, core.Breaking, plan.Operations[0].Classification)
		assert.Error(t, plan.Confirm(false))
	})

	t.Run("breaking type change", func(t *testing.T) {
		before := g(table(t, "orders", "id", "uuid, primary_key", "total", "integer"))
		after := g(table(t, "orders", "id", "uuid, primary_key", "total", "float"))
		plan := NewPlan(diff.Diff(before, after))
		require.Len(t, plan.Operations, 1)
		assert.Equal(t, core.OpAlterFieldType, plan.Operations[0].Kind)
		assert.Equal(t, core.Breaking, plan.Operations[0].Classification)
		assert.Equal(t, []string{"alter_field_type(orders.total): type change integer -> float may not convert existing values"}, plan.BreakingNotes())
	})

	t.Run("no-op", func(t *testing.T) {
		plan := NewPlan(diff.Diff(g(users), g(users)))
		assert.True(t, plan.IsEmpty())
		assert.NoError(t, plan.Confirm(false))
	})
}

func TestPlanIsDeterministic(t *testing.T) {
	before := &core.SchemaGraph{Tables: []*core.TableSpec{
		table(t, "users", "id", "uuid, primary_key", "a", "string", "b", "string, unique"),
		table(t, "old1", "id", "uuid, primary_key"),
		table(t, "old2", "id", "uuid, primary_key", "x", "uuid, references=old1.id"),
	}}
	after := &core.SchemaGraph{Tables: []*core.TableSpec{
		table(t, "users", "id", "uuid, primary_key", "c", "text", "b", "string, indexed"),
		table(t, "new1", "id", "uuid, primary_key"),
		table(t, "new2", "id", "uuid, primary_key", "y", "uuid, references=new1.id"),
	}}

	first := NewPlan(diff.Diff(before, after))
	for range 20 {
		assert.Equal(t, first, NewPlan(diff.Diff(before, after)))
	}
}

func TestPlanCounts(t *testing.T) {
	var nilPlan *Plan
	assert.True(t, nilPlan.IsEmpty())
	assert.Empty(t, nilPlan.Counts())
	assert.NoError(t, nilPlan.Confirm(false))

	plan := NewPlan([]core.Operation{
		{Kind: core.OpAddField, Table: "t", Field: "a", New: &core.FieldSpec{Name: "a", Type: core.TypeString}},
		{Kind: core.OpAddField, Table: "t", Field: "b", New: &core.FieldSpec{Name: "b", Type: core.TypeString}},
		{Kind: core.OpDropTable, Table: "x"},
	})
	assert.Equal(t, map[core.OperationKind]int{core.OpAddField: 2, core.OpDropTable: 1}, plan.Counts())
	assert.Equal(t, []string{"add_field(t.a)", "add_field(t.b)"}, plan.InfoNotes())
	assert.Equal(t, []string{"drop_table(x): dropping a table destroys its data"}, plan.BreakingNotes())
}

func TestPlanString(t *testing.T) {
	var nilPlan *Plan
	assert.Equal(t, "No migration operations.", nilPlan.String())

	plan := NewPlan([]core.Operation{
		{Kind: core.OpDropTable, Table: "x"},
		{Kind: core.OpAddField, Table: "t", Field: "a", New: &core.FieldSpec{Name: "a", Type: core.TypeString}},
	})
	assert.Equal(t, "Migration plan (2 operations):\n"+
		"  1. [safe] add_field(t.a)\n"+
		"  2. [breaking] drop_table(x): dropping a table destroys its data\n"+
		"\n1 breaking operation(s) need explicit confirmation.\n", plan.String())
}
