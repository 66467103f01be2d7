package mysql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // registers the TiDB value expression driver

	"backforge/internal/core"
	"backforge/internal/dialect"
)

// StatementAnalysis is what the analyzer learned about one statement.
type StatementAnalysis struct {
	StatementType string
	// LockReasons lists why the statement may lock or rebuild the table.
	LockReasons []string
	// DataLoss is set when the statement discards stored data.
	DataLoss string
	// ImplicitCommit is set for DDL, which MySQL never runs inside a
	// transaction.
	ImplicitCommit bool
	ParseError     error
}

// IsBlocking reports whether the statement may lock the table.
func (s *StatementAnalysis) IsBlocking() bool { return len(s.LockReasons) > 0 }

// IsDestructive reports whether the statement discards data.
func (s *StatementAnalysis) IsDestructive() bool { return s.DataLoss != "" }

func (s *StatementAnalysis) locks(reason string) {
	s.LockReasons = append(s.LockReasons, reason)
}

// StatementAnalyzer checks rendered DDL with the TiDB parser.
type StatementAnalyzer struct {
	parser *parser.Parser
}

// NewStatementAnalyzer creates a StatementAnalyzer.
func NewStatementAnalyzer() *StatementAnalyzer {
	return &StatementAnalyzer{parser: parser.New()}
}

// AnalyzeStatement parses one statement and reports its effects. Statements
// the parser rejects get type UNPARSEABLE and the parse error.
func (a *StatementAnalyzer) AnalyzeStatement(sql string) *StatementAnalysis {
	nodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		return &StatementAnalysis{
			StatementType:  "UNPARSEABLE",
			ImplicitCommit: looksLikeDDL(sql),
			ParseError:     err,
		}
	}
	if len(nodes) == 0 {
		return &StatementAnalysis{StatementType: "EMPTY"}
	}

	s := &StatementAnalysis{ImplicitCommit: true}
	switch n := nodes[0].(type) {
	case *ast.CreateTableStmt:
		s.StatementType = "CREATE TABLE"
	case *ast.DropTableStmt:
		s.StatementType = "DROP TABLE"
		s.DataLoss = "DROP TABLE removes the table with every row in it"
	case *ast.CreateIndexStmt:
		s.StatementType = "CREATE INDEX"
		s.locks("building an index can hold a table lock until it completes")
	case *ast.DropIndexStmt:
		s.StatementType = "DROP INDEX"
		s.locks("dropping an index takes a short metadata lock")
	case *ast.AlterTableStmt:
		s.StatementType = "ALTER TABLE"
		for _, spec := range n.Specs {
			alterEffects(spec, s)
		}
	default:
		s.StatementType = "OTHER"
		s.ImplicitCommit = looksLikeDDL(sql)
	}
	return s
}

// alterEffects records what one ALTER TABLE clause does to the table.
func alterEffects(spec *ast.AlterTableSpec, s *StatementAnalysis) {
	switch spec.Tp {
	case ast.AlterTableAddColumns:
		s.locks("adding a column may rebuild the table on older MySQL versions")
	case ast.AlterTableDropColumn:
		s.locks("dropping a column rebuilds the table")
		s.DataLoss = "DROP COLUMN discards the column's values"
	case ast.AlterTableModifyColumn, ast.AlterTableChangeColumn:
		s.locks("changing a column definition may rebuild the table")
	case ast.AlterTableDropIndex, ast.AlterTableDropForeignKey:
		s.locks("dropping a key takes a short metadata lock")
	case ast.AlterTableDropPrimaryKey:
		s.locks("dropping the primary key rebuilds the table")
	case ast.AlterTableAddConstraint:
		if spec.Constraint != nil && spec.Constraint.Tp == ast.ConstraintForeignKey {
			s.locks("adding a foreign key checks every existing row")
			return
		}
		if spec.Constraint != nil && spec.Constraint.Tp == ast.ConstraintPrimaryKey {
			s.locks("adding a primary key rebuilds the table")
			return
		}
		s.locks("adding a key builds an index over existing rows")
	}
}

func looksLikeDDL(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	for _, prefix := range []string{"CREATE ", "DROP ", "ALTER ", "RENAME "} {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// Analyze checks every statement of a rendered script. A statement the parser
// rejects, or a destructive statement rendered for an operation classified
// safe, is reported as an error.
func (a *StatementAnalyzer) Analyze(script *dialect.Script) *dialect.Report {
	report := &dialect.Report{IsTransactional: true}
	if script == nil {
		return report
	}

	for _, st := range script.Statements {
		s := a.AnalyzeStatement(st.SQL)
		if s.ParseError != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: statement does not parse: %v", st.Operation, s.ParseError))
			continue
		}

		for _, reason := range s.LockReasons {
			report.Warnings = append(report.Warnings, dialect.Warning{
				Level:   dialect.WarnCaution,
				Message: "Potentially blocking DDL: " + reason,
				SQL:     st.SQL,
			})
		}

		if s.IsDestructive() {
			if st.Classification != core.Breaking {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: destructive statement for an operation classified %q: %s",
					st.Operation, st.Classification, s.DataLoss))
			}
			report.Warnings = append(report.Warnings, dialect.Warning{
				Level:   dialect.WarnDanger,
				Message: s.DataLoss + " (requires --allow-breaking)",
				SQL:     st.SQL,
			})
		}

		if s.ImplicitCommit {
			report.IsTransactional = false
			report.NonTxReasons = append(report.NonTxReasons,
				fmt.Sprintf("%s causes an implicit commit in MySQL: %s", s.StatementType, st.SQL))
		}
	}
	return report
}
