package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backforge/internal/diff"
)

func TestSummaryFormatterFormatDiffNil(t *testing.T) {
	result, err := summaryFormatter{}.FormatDiff(nil)
	require.NoError(t, err)
	assert.Equal(t, "No changes detected.\n", result)
}

func TestSummaryFormatterFormatDiffEmpty(t *testing.T) {
	result, err := summaryFormatter{}.FormatDiff(&diff.SchemaDiff{})
	require.NoError(t, err)
	assert.Contains(t, result, "Schema Diff Summary")
	assert.Contains(t, result, "Tables:  +0, ~0, -0")
	assert.Contains(t, result, "Fields:  +0, ~0, -0")
	assert.NotContains(t, result, "Details:")
}

func TestSummaryFormatterFormatDiff(t *testing.T) {
	result, err := summaryFormatter{}.FormatDiff(sampleDiff(t))
	require.NoError(t, err)
	assert.Contains(t, result, "Tables:  +1, ~1, -1")
	// posts adds 2 fields, users adds email; audit removes 1, users removes legacy
	assert.Contains(t, result, "Fields:  +3, ~1, -2")
	assert.Contains(t, result, "  + posts (new table)\n")
	assert.Contains(t, result, "  - audit (removed table)\n")
	assert.Contains(t, result, "  ~ users (+1 fields, -1 fields, ~1 fields)\n")
}

func TestSummaryFormatterFormatPlan(t *testing.T) {
	result, err := summaryFormatter{}.FormatPlan(samplePlan(t))
	require.NoError(t, err)
	assert.Contains(t, result, "Migration Summary")
	assert.Contains(t, result, "create_table:     1\n")
	assert.Contains(t, result, "add_field:        1\n")
	assert.Contains(t, result, "drop_table:       1\n")
	assert.Contains(t, result, "Breaking Changes: ")
	assert.Contains(t, result, "drop_table(audit)")
	assert.Contains(t, result, "alter_field_type: 1\n")
	assert.NotContains(t, result, "drop_constraint")
}

func TestSummaryFormatterFormatPlanEmpty(t *testing.T) {
	result, err := summaryFormatter{}.FormatPlan(nil)
	require.NoError(t, err)
	assert.Equal(t, "No migration operations.\n", result)
}
