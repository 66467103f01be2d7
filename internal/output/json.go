package output

import (
	"encoding/json"

	"backforge/internal/core"
	"backforge/internal/diff"
	"backforge/internal/migration"
)

type jsonFormatter struct{}

type diffPayload struct {
	Format         string            `json:"format"`
	Summary        diff.Summary      `json:"summary"`
	AddedTables    []*core.TableSpec `json:"addedTables,omitempty"`
	RemovedTables  []*core.TableSpec `json:"removedTables,omitempty"`
	ModifiedTables []*diff.TableDiff `json:"modifiedTables,omitempty"`
}

type planSummary struct {
	Operations int `json:"operations"`
	Safe       int `json:"safe"`
	Breaking   int `json:"breaking"`
}

type planOperation struct {
	Kind           core.OperationKind  `json:"kind"`
	Target         string              `json:"target"`
	Constraint     core.Constraint     `json:"constraint,omitempty"`
	Classification core.Classification `json:"classification"`
	Rank           int                 `json:"rank"`
	Note           string              `json:"note"`
}

type planPayload struct {
	Format     string          `json:"format"`
	Summary    planSummary     `json:"summary"`
	Operations []planOperation `json:"operations,omitempty"`
	Breaking   []string        `json:"breaking,omitempty"`
}

type Payload interface {
	diffPayload | planPayload
}

func (jsonFormatter) FormatDiff(d *diff.SchemaDiff) (string, error) {
	payload := diffPayload{Format: string(FormatJSON)}
	if d != nil {
		payload.AddedTables = d.AddedTables
		payload.RemovedTables = d.RemovedTables
		payload.ModifiedTables = d.ModifiedTables
		payload.Summary = d.Summarize()
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatPlan(p *migration.Plan) (string, error) {
	payload := planPayload{Format: string(FormatJSON)}
	if !p.IsEmpty() {
		for i := range p.Operations {
			op := p.Operations[i]
			payload.Operations = append(payload.Operations, planOperation{
				Kind:           op.Kind,
				Target:         op.Target(),
				Constraint:     op.Constraint,
				Classification: op.Classification,
				Rank:           op.Rank,
				Note:           migration.Note(op),
			})
		}
		payload.Breaking = p.BreakingNotes()
		payload.Summary = planSummary{
			Operations: len(p.Operations),
			Safe:       len(p.AutoApply()),
			Breaking:   len(p.PendingConfirmation()),
		}
	}
	return marshalJSON(payload)
}

func marshalJSON[T Payload](payload T) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
