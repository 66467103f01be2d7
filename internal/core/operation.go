package core

import "fmt"

// OperationKind is used to identify what kind of schema change an operation performs.
type OperationKind string

const (
	OpCreateTable    OperationKind = "create_table"
	OpDropTable      OperationKind = "drop_table"
	OpAddField       OperationKind = "add_field"
	OpDropField      OperationKind = "drop_field"
	OpAlterFieldType OperationKind = "alter_field_type"
	OpAddConstraint  OperationKind = "add_constraint"
	OpDropConstraint OperationKind = "drop_constraint"
)

// Classification is used to identify whether an operation can be applied
// without operator confirmation.
type Classification string

const (
	Unclassified Classification = ""
	Safe         Classification = "safe"
	Breaking     Classification = "breaking"
)

// Operation contains all information about a single atomic schema change.
// Old and New are set for field level changes, TableSpec for table creation
// and removal, Constraint for constraint toggles.
type Operation struct {
	Kind       OperationKind `json:"kind"`
	Table      string        `json:"table"`
	Field      string        `json:"field,omitempty"`
	Constraint Constraint    `json:"constraint,omitempty"`

	Old       *FieldSpec `json:"old,omitempty"`
	New       *FieldSpec `json:"new,omitempty"`
	TableSpec *TableSpec `json:"tableSpec,omitempty"`

	Classification Classification `json:"classification,omitempty"`
	Rank           int            `json:"rank"`
}

// Target returns "table" or "table.field" for display.
func (op *Operation) Target() string {
	if op.Field == "" {
		return op.Table
	}
	return op.Table + "." + op.Field
}

// String returns a one-line description of the operation.
func (op *Operation) String() string {
	switch op.Kind {
	case OpAddConstraint, OpDropConstraint:
		return fmt.Sprintf("%s(%s, %s)", op.Kind, op.Target(), op.Constraint)
	default:
		return fmt.Sprintf("%s(%s)", op.Kind, op.Target())
	}
}
