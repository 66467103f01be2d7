package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backforge/internal/core"
	"backforge/internal/dialect"
)

var analyzeStatementTests = []struct {
	name              string
	sql               string
	wantDestructive   bool
	wantBlocking      bool
	wantTxSafe        bool
	wantStatementType string
}{
	{
		name:              "DROP TABLE is destructive and commits implicitly",
		sql:               "DROP TABLE `users`;",
		wantDestructive:   true,
		wantStatementType: "DROP TABLE",
	},
	{
		name:              "CREATE TABLE is non-transactional",
		sql:               "CREATE TABLE `users` (`id` CHAR(36) NOT NULL, PRIMARY KEY (`id`));",
		wantStatementType: "CREATE TABLE",
	},
	{
		name:              "CREATE INDEX is blocking",
		sql:               "CREATE INDEX `idx_users_email` ON `users` (`email`);",
		wantBlocking:      true,
		wantStatementType: "CREATE INDEX",
	},
	{
		name:              "DROP INDEX is blocking",
		sql:               "DROP INDEX `idx_users_email` ON `users`;",
		wantBlocking:      true,
		wantStatementType: "DROP INDEX",
	},
	{
		name:              "ADD COLUMN is blocking",
		sql:               "ALTER TABLE `users` ADD COLUMN `bio` TEXT NULL;",
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "DROP COLUMN is destructive",
		sql:               "ALTER TABLE `users` DROP COLUMN `bio`;",
		wantDestructive:   true,
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "MODIFY COLUMN is blocking",
		sql:               "ALTER TABLE `users` MODIFY COLUMN `bio` TEXT NOT NULL;",
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "ADD FOREIGN KEY is blocking",
		sql:               "ALTER TABLE `posts` ADD CONSTRAINT `fk_posts_author` FOREIGN KEY (`author`) REFERENCES `users` (`id`);",
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "DROP PRIMARY KEY is blocking",
		sql:               "ALTER TABLE `users` DROP PRIMARY KEY;",
		wantBlocking:      true,
		wantStatementType: "ALTER TABLE",
	},
	{
		name:              "SELECT does not commit",
		sql:               "SELECT 1;",
		wantTxSafe:        true,
		wantStatementType: "OTHER",
	},
}

func TestAnalyzeStatement(t *testing.T) {
	a := NewStatementAnalyzer()
	for _, tt := range analyzeStatementTests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.AnalyzeStatement(tt.sql)
			require.NoError(t, got.ParseError)
			assert.Equal(t, tt.wantDestructive, got.IsDestructive())
			assert.Equal(t, tt.wantBlocking, got.IsBlocking())
			assert.Equal(t, tt.wantTxSafe, !got.ImplicitCommit)
			assert.Equal(t, tt.wantStatementType, got.StatementType)
		})
	}
}

func TestAnalyzeStatementUnparseable(t *testing.T) {
	got := NewStatementAnalyzer().AnalyzeStatement("ALTER TABLE `users` EXPLODE;")
	require.Error(t, got.ParseError)
	assert.Equal(t, "UNPARSEABLE", got.StatementType)
	assert.True(t, got.ImplicitCommit)
}

func TestAnalyzeScript(t *testing.T) {
	a := NewStatementAnalyzer()
	drop := core.Operation{Kind: core.OpDropField, Table: "users", Field: "bio", Classification: core.Breaking}
	add := core.Operation{Kind: core.OpAddField, Table: "users", Field: "bio", Classification: core.Safe}

	t.Run("breaking drop is reported as danger", func(t *testing.T) {
		s := &dialect.Script{}
		s.Add(drop, "ALTER TABLE `users` DROP COLUMN `bio`;", "")
		report := a.Analyze(s)
		assert.False(t, report.HasErrors())
		assert.False(t, report.IsTransactional)
		require.Len(t, report.NonTxReasons, 1)

		var levels []dialect.WarningLevel
		for _, w := range report.Warnings {
			levels = append(levels, w.Level)
		}
		assert.Contains(t, levels, dialect.WarnDanger)
		assert.Contains(t, levels, dialect.WarnCaution)
	})

	t.Run("destructive statement for safe operation", func(t *testing.T) {
		s := &dialect.Script{}
		s.Add(add, "ALTER TABLE `users` DROP COLUMN `bio`;", "")
		report := a.Analyze(s)
		require.True(t, report.HasErrors())
		assert.Contains(t, report.Errors[0], "add_field(users.bio)")
		assert.Contains(t, report.Errors[0], `classified "safe"`)
	})

	t.Run("unparseable statement", func(t *testing.T) {
		s := &dialect.Script{}
		s.Add(add, "ALTER TABLE `users` ADD COLUMN;", "")
		report := a.Analyze(s)
		require.True(t, report.HasErrors())
		assert.Contains(t, report.Errors[0], "does not parse")
	})

	t.Run("nil script", func(t *testing.T) {
		report := a.Analyze(nil)
		assert.False(t, report.HasErrors())
		assert.True(t, report.IsTransactional)
	})
}

func TestGeneratedScriptsParse(t *testing.T) {
	gen := NewMySQLGenerator()
	a := NewStatementAnalyzer()

	before := graph(
		table(t, "users",
			"id", "uuid, primary_key",
			"email", "string, required, unique, max_length=255",
			"bio", "string",
			"legacy", "text",
		),
		table(t, "audit", "id", "integer, primary_key, auto_increment"),
	)
	after := graph(
		table(t, "users",
			"id", "uuid, primary_key",
			"email", "string, required, unique, max_length=320",
			"bio", "text, min_length=1",
			"role", "string, enum=member|admin, default=member",
			"updated_at", "timestamp, auto_update",
		),
		table(t, "posts",
			"id", "uuid, primary_key",
			"author", "uuid, required, indexed, references=users.id",
			"score", "float, min_value=0, max_value=5, default=0",
			"meta", "json",
			"published", "boolean, default=false",
			"day", "date, auto_add",
		),
	)

	script := gen.GeneratePlan(plan(before, after))
	require.NotEmpty(t, script.Statements)

	report := a.Analyze(script)
	assert.Empty(t, report.Errors)

	rollback := &dialect.Script{}
	for _, rb := range script.Rollback() {
		rollback.Statements = append(rollback.Statements, dialect.Statement{SQL: rb, Classification: core.Breaking})
	}
	assert.Empty(t, a.Analyze(rollback).Errors)
}
