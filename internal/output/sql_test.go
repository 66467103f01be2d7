package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backforge/internal/core"
	"backforge/internal/migration"
)

func TestSQLFormatterFormatPlan(t *testing.T) {
	out, err := newSQLFormatter().FormatPlan(samplePlan(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "-- backforge migration\n"))
	assert.Contains(t, out, "-- BREAKING CHANGES (require --allow-breaking)\n-- - ")
	assert.Contains(t, out, "-- NOTES\n")
	assert.Contains(t, out, "-- WARNINGS\n-- - [")
	assert.Contains(t, out, "\n-- SQL\nCREATE TABLE `posts` (")
	assert.Contains(t, out, "ALTER TABLE `users` ADD COLUMN `email` VARCHAR(255) NULL;")
	assert.Contains(t, out, "-- [breaking] drop_table(audit)\nDROP TABLE `audit`;")
	assert.Contains(t, out, "-- ROLLBACK SQL (run separately)\n-- ")

	sqlStart := strings.Index(out, "\n-- SQL\n")
	rollbackStart := strings.Index(out, "-- ROLLBACK SQL")
	require.Positive(t, sqlStart)
	assert.Greater(t, rollbackStart, sqlStart)
	assert.Less(t, strings.Index(out, "CREATE TABLE `posts`"), strings.Index(out, "DROP TABLE `audit`;"))
}

func TestSQLFormatterFormatDiff(t *testing.T) {
	f := newSQLFormatter()
	fromDiff, err := f.FormatDiff(sampleDiff(t))
	require.NoError(t, err)
	fromPlan, err := f.FormatPlan(samplePlan(t))
	require.NoError(t, err)
	assert.Equal(t, fromPlan, fromDiff)
}

func TestSQLFormatterEmpty(t *testing.T) {
	out, err := newSQLFormatter().FormatPlan(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "-- No SQL statements generated.")
	assert.NotContains(t, out, "ROLLBACK")

	out, err = newSQLFormatter().FormatDiff(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "-- No SQL statements generated.")
}

func TestSQLFormatterRejectsMisclassifiedDrop(t *testing.T) {
	p := &migration.Plan{Operations: []core.Operation{{
		Kind:           core.OpDropTable,
		Table:          "audit",
		TableSpec:      &core.TableSpec{Name: "audit"},
		Classification: core.Safe,
	}}}
	_, err := newSQLFormatter().FormatPlan(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generated SQL failed analysis")
}

func TestFormatRollbackSQL(t *testing.T) {
	out := FormatRollbackSQL(samplePlan(t))
	assert.True(t, strings.HasPrefix(out, "-- backforge rollback\n"))
	assert.Contains(t, out, "DROP TABLE `posts`;")
	assert.Contains(t, out, "ALTER TABLE `users` DROP COLUMN `email`;")
	// the dropped table comes back first
	assert.Less(t, strings.Index(out, "CREATE TABLE `audit`"), strings.Index(out, "DROP TABLE `posts`;"))

	var buf bytes.Buffer
	require.NoError(t, WriteRollback(samplePlan(t), &buf))
	assert.Equal(t, out, buf.String())

	assert.Contains(t, FormatRollbackSQL(nil), "-- No rollback statements generated.")
}
