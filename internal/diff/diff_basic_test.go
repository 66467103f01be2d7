package diff

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffString(t *testing.T) {
	before := graph(
		table(t, "users", "id", "uuid, primary_key", "name", "string"),
		table(t, "posts", "id", "uuid, primary_key"),
	)
	after := graph(
		table(t, "users", "id", "uuid, primary_key", "name", "string, required", "email", "string"),
		table(t, "comments", "id", "uuid, primary_key"),
	)

	d := Compare(before, after)
	require.NotNil(t, d)

	s := d.String()

	assert.Contains(t, s, "Added tables")
	assert.Contains(t, s, "comments (1 fields)")
	assert.Contains(t, s, "Removed tables")
	assert.Contains(t, s, "posts")
	assert.Contains(t, s, "Modified tables")
	assert.Contains(t, s, "Added fields")
	assert.Contains(t, s, "email: string")
	assert.Contains(t, s, "Modified fields")
	assert.Contains(t, s, `constraints: "" -> "required"`)

	path := t.TempDir() + "/diff.txt"
	require.NoError(t, d.SaveToFile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Schema differences")
}

func TestDiffStringEmpty(t *testing.T) {
	g := graph(table(t, "users", "id", "uuid, primary_key"))
	assert.Equal(t, "No differences detected.", Compare(g, g).String())
}

func TestSummarize(t *testing.T) {
	before := graph(
		table(t, "users", "id", "uuid, primary_key", "name", "string"),
		table(t, "posts", "id", "uuid, primary_key", "title", "string"),
	)
	after := graph(
		table(t, "users", "id", "uuid, primary_key", "name", "text", "email", "string"),
		table(t, "comments", "id", "uuid, primary_key", "body", "text", "post", "uuid"),
	)

	assert.Equal(t, Summary{
		AddedTables:    1,
		RemovedTables:  1,
		ModifiedTables: 1,
		AddedFields:    4,
		RemovedFields:  2,
		ModifiedFields: 1,
	}, Compare(before, after).Summarize())
}
