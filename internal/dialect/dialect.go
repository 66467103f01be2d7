// Package dialect provides a unified interface for SQL dialects that render a
// migration plan as DDL. The engine itself never executes the statements; the
// rendered script is a preview for operators and emitters.
package dialect

import (
	"backforge/internal/core"
	"backforge/internal/migration"
)

type Type string

const (
	MySQL      Type = "mysql"
	PostgreSQL Type = "postgresql"
	SQLite     Type = "sqlite"
)

// Generator renders schema objects and plans as SQL.
type Generator interface {
	GeneratePlan(p *migration.Plan) *Script
	GenerateCreateTable(table *core.TableSpec) (statement string, fkStatements []string)
	GenerateDropTable(table *core.TableSpec) string
	QuoteIdentifier(name string) string
	QuoteString(value string) string
}

// Analyzer inspects a rendered script statement by statement.
type Analyzer interface {
	Analyze(s *Script) *Report
}

// Dialect interface creates a way to interact with a specific SQL dialect.
type Dialect interface {
	Name() Type
	Generator() Generator
	Analyzer() Analyzer
}

var registry = map[Type]func() Dialect{}

// RegisterDialect creates a new registry entry for the specified dialect.
func RegisterDialect(d Type, ctor func() Dialect) {
	registry[d] = ctor
}

// GetDialect returns the dialect for the specified type from the registry. It
// falls back to MySQL when d is unknown.
func GetDialect(d Type) Dialect {
	if ctor, ok := registry[d]; ok {
		return ctor()
	}
	if ctor, ok := registry[MySQL]; ok {
		return ctor()
	}
	return nil
}

// Statement is one rendered SQL statement and the plan operation it came from.
type Statement struct {
	SQL            string              `json:"sql"`
	Rollback       string              `json:"rollback,omitempty"`
	Operation      string              `json:"operation"`
	Classification core.Classification `json:"classification"`
}

// Script is a plan rendered as SQL, in plan order.
type Script struct {
	Statements []Statement `json:"statements"`
	Notes      []string    `json:"notes,omitempty"`
}

// Add appends a statement rendered for op.
func (s *Script) Add(op core.Operation, up, down string) {
	s.Statements = append(s.Statements, Statement{
		SQL:            up,
		Rollback:       down,
		Operation:      op.String(),
		Classification: op.Classification,
	})
}

// AddNote appends a note if it is not already present.
func (s *Script) AddNote(note string) {
	for _, n := range s.Notes {
		if n == note {
			return
		}
	}
	s.Notes = append(s.Notes, note)
}

// SQL returns every forward statement in order.
func (s *Script) SQL() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Statements))
	for _, st := range s.Statements {
		out = append(out, st.SQL)
	}
	return out
}

// Rollback returns the rollback statements in the order they must run, which
// is the reverse of the forward order.
func (s *Script) Rollback() []string {
	if s == nil {
		return nil
	}
	var out []string
	for i := len(s.Statements) - 1; i >= 0; i-- {
		if rb := s.Statements[i].Rollback; rb != "" {
			out = append(out, rb)
		}
	}
	return out
}

// Report contains the warnings and transactionality info of a script.
type Report struct {
	Warnings        []Warning `json:"warnings,omitempty"`
	Errors          []string  `json:"errors,omitempty"`
	IsTransactional bool      `json:"isTransactional"`
	NonTxReasons    []string  `json:"nonTxReasons,omitempty"`
}

// HasErrors reports whether any statement failed analysis.
func (r *Report) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// Warning contains a Level of a warning, message, and the statement it is about.
type Warning struct {
	Level   WarningLevel `json:"level"`
	Message string       `json:"message"`
	SQL     string       `json:"sql"`
}

// WarningLevel is a const that is expandable for later and contains different levels of danger.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)
