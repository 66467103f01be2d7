// Package migration classifies schema diff operations and arranges them into a
// deterministic migration plan with a breaking-change gate.
package migration

import (
	"fmt"
	"strings"

	"backforge/internal/core"
)

// Plan contains every operation of a schema migration in apply order.
type Plan struct {
	Operations []core.Operation `json:"operations"`
}

// NewPlan classifies and ranks ops and returns them in total order. The input
// slice is not modified.
func NewPlan(ops []core.Operation) *Plan {
	out := make([]core.Operation, len(ops))
	copy(out, ops)
	for i := range out {
		out[i].Classification = Classify(out[i])
		out[i].Rank = Rank(out[i].Kind)
	}
	order(out)
	return &Plan{Operations: out}
}

// IsEmpty reports whether the plan has no operations.
func (p *Plan) IsEmpty() bool {
	return p == nil || len(p.Operations) == 0
}

// AutoApply returns the safe operations in plan order.
func (p *Plan) AutoApply() []core.Operation {
	return p.filterByClassification(core.Safe)
}

// PendingConfirmation returns the breaking operations in plan order.
func (p *Plan) PendingConfirmation() []core.Operation {
	return p.filterByClassification(core.Breaking)
}

// HasBreaking reports whether any operation needs confirmation.
func (p *Plan) HasBreaking() bool {
	return len(p.PendingConfirmation()) > 0
}

// Confirm is the breaking-change gate. It fails with UnconfirmedBreakingChange
// when the plan has breaking operations and allowBreaking is false.
func (p *Plan) Confirm(allowBreaking bool) error {
	pending := p.PendingConfirmation()
	if len(pending) == 0 || allowBreaking {
		return nil
	}
	names := make([]string, len(pending))
	for i := range pending {
		names[i] = pending[i].String()
	}
	return core.Errorf(core.KindUnconfirmedBreakingChange, "",
		"%d breaking operation(s) need explicit confirmation: %s", len(pending), strings.Join(names, ", "))
}

// String returns one numbered line per operation with its classification.
func (p *Plan) String() string {
	if p.IsEmpty() {
		return "No migration operations."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Migration plan (%d operations):\n", len(p.Operations))
	for i := range p.Operations {
		op := p.Operations[i]
		fmt.Fprintf(&sb, "  %d. [%s] %s\n", i+1, op.Classification, Note(op))
	}
	if n := len(p.PendingConfirmation()); n > 0 {
		fmt.Fprintf(&sb, "\n%d breaking operation(s) need explicit confirmation.\n", n)
	}
	return sb.String()
}

// BreakingNotes returns one line per breaking operation explaining the risk.
func (p *Plan) BreakingNotes() []string {
	return p.notes(core.Breaking)
}

// InfoNotes returns one line per safe operation.
func (p *Plan) InfoNotes() []string {
	return p.notes(core.Safe)
}

// Counts returns the number of operations per kind.
func (p *Plan) Counts() map[core.OperationKind]int {
	m := make(map[core.OperationKind]int)
	if p == nil {
		return m
	}
	for i := range p.Operations {
		m[p.Operations[i].Kind]++
	}
	return m
}

func (p *Plan) filterByClassification(c core.Classification) []core.Operation {
	if p == nil {
		return nil
	}
	var out []core.Operation
	for i := range p.Operations {
		if p.Operations[i].Classification == c {
			out = append(out, p.Operations[i])
		}
	}
	return out
}

func (p *Plan) notes(c core.Classification) []string {
	ops := p.filterByClassification(c)
	out := make([]string, 0, len(ops))
	for i := range ops {
		out = append(out, Note(ops[i]))
	}
	return out
}
