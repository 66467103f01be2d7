package migration

import (
	"fmt"

	"backforge/internal/core"
)

// Classify decides whether an operation is safe to apply without operator
// confirmation. The engine never inspects data, so anything that may fail on
// existing rows or destroy data is breaking.
func Classify(op core.Operation) core.Classification {
	if reason := breakingReason(op); reason != "" {
		return core.Breaking
	}
	return core.Safe
}

// breakingReason explains why op is breaking, or returns "" for safe
// operations.
func breakingReason(op core.Operation) string {
	switch op.Kind {
	case core.OpCreateTable:
		return ""
	case core.OpAddField:
		if op.New != nil && op.New.IsRequired() && !op.New.HasValueSource() {
			return "required field without a default cannot be filled for existing rows"
		}
		return ""
	case core.OpAddConstraint:
		return constraintAddReason(op.Constraint)
	case core.OpDropConstraint:
		return ""
	case core.OpAlterFieldType:
		return alterReason(op)
	case core.OpDropField:
		return "dropping a field destroys its data"
	case core.OpDropTable:
		return "dropping a table destroys its data"
	default:
		return fmt.Sprintf("unknown operation kind %q", op.Kind)
	}
}

func constraintAddReason(c core.Constraint) string {
	switch c {
	case core.ConstraintIndexed, core.ConstraintAutoAdd, core.ConstraintAutoUpdate:
		return ""
	case core.ConstraintUnique:
		return "existing rows may contain duplicates"
	case core.ConstraintPrimaryKey:
		return "existing rows may contain duplicates or nulls"
	case core.ConstraintRequired:
		return "existing rows may contain nulls"
	case core.ConstraintAutoIncrement:
		return "existing values may collide with the generated sequence"
	default:
		return fmt.Sprintf("unknown constraint %q", c)
	}
}

func alterReason(op core.Operation) string {
	if op.Old != nil && op.New != nil && op.Old.Type != op.New.Type {
		return fmt.Sprintf("type change %s -> %s may not convert existing values", op.Old.Type, op.New.Type)
	}
	return "changed bounds, default, enum or reference may reject existing values"
}

// Note returns a one-line description of op with the reason it is breaking,
// if it is.
func Note(op core.Operation) string {
	if reason := breakingReason(op); reason != "" {
		return fmt.Sprintf("%s: %s", op.String(), reason)
	}
	return op.String()
}
