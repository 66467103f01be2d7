package config

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backforge/internal/core"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func TestLoadMultiFileProject(t *testing.T) {
	fsys := fstest.MapFS{
		"backforge.yaml": file(`
project: shop
database: postgres
imports:
  security: config/security.yaml
  api: config/api.yaml
models:
  users:
    id: "uuid, primary_key"
services:
  - name: billing
    file: services/billing.yaml
  - name: notes
    models:
      notes:
        id: "integer, primary_key, auto_increment"
`),
		"config/security.yaml": file("auth:\n  enabled: true\n"),
		"config/api.yaml": file(`
services:
  catalog: ../services/catalog.toml
`),
		"services/billing.yaml": file(`
models:
  invoices:
    id: "uuid, primary_key"
    total: "integer, required"
`),
		"services/catalog.toml": file(`
[models.products]
sku = "string, primary_key, max_length=32"
name = "string, required"
`),
	}

	b, err := Load(context.Background(), fsys, "backforge.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"billing", "notes", "catalog"}, b.Services())
	assert.Equal(t, []Role{RoleRoot, RoleSecurity, RoleAPI, ServiceRole("billing"), ServiceRole("notes"), ServiceRole("catalog")}, b.Roles())

	assert.Equal(t, "shop", b.Root().Root.Get("project").Text())
	assert.Equal(t, "config/security.yaml", b.Document(RoleSecurity).Path)
	enabled, err := b.Document(RoleSecurity).Root.Lookup("auth.enabled").Bool()
	require.NoError(t, err)
	assert.True(t, enabled)

	billing := b.Document(ServiceRole("billing"))
	require.NotNil(t, billing)
	assert.Equal(t, "services/billing.yaml", billing.Path)
	inv := billing.Root.Lookup("models.invoices")
	require.True(t, inv.IsMap())
	assert.Equal(t, "id", inv.Entries[0].Key)
	assert.Equal(t, "total", inv.Entries[1].Key)

	notes := b.Document(ServiceRole("notes"))
	require.NotNil(t, notes)
	assert.Equal(t, "backforge.yaml", notes.Path, "inline services carry the declaring file")

	catalog := b.Document(ServiceRole("catalog"))
	require.NotNil(t, catalog)
	assert.Equal(t, "services/catalog.toml", catalog.Path)
	products := catalog.Root.Lookup("models.products")
	require.True(t, products.IsMap())
	assert.Equal(t, "sku", products.Entries[0].Key, "toml keys keep definition order")
	assert.Equal(t, "name", products.Entries[1].Key)
}

func TestLoadYAMLKeepsOrderAndLines(t *testing.T) {
	fsys := fstest.MapFS{
		"root.yaml": file("models:\n  users:\n    zeta: \"string\"\n    alpha: \"string\"\n    id: \"uuid, primary_key\"\n"),
	}
	b, err := Load(context.Background(), fsys, "root.yaml")
	require.NoError(t, err)

	users := b.Root().Root.Lookup("models.users")
	var keys []string
	for _, e := range users.Entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "id"}, keys)
	assert.Equal(t, 3, users.Get("zeta").Line)
	assert.Equal(t, "root.yaml:5", b.Root().Location(users.Get("id")))
}

func TestLoadCollectsAllErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"backforge.yaml": file(`
imports:
  security: missing-security.yaml
services:
  - name: billing
    file: billing.yaml
  - name: billing
    file: billing-v2.yaml
  - name: broken
    file: broken.yaml
  - name: gone
    file: gone.yaml
`),
		"billing.yaml":    file("models: {}\n"),
		"billing-v2.yaml": file("models: {}\n"),
		"broken.yaml":     file("models: [unclosed\n"),
	}

	b, err := Load(context.Background(), fsys, "backforge.yaml")
	require.Error(t, err)
	assert.Nil(t, b)

	list := core.AsList(err)
	assert.Equal(t, []core.ErrorKind{
		core.KindMissingConfigFile,
		core.KindDuplicateServiceName,
		core.KindUnreadableConfig,
		core.KindMissingConfigFile,
	}, list.Kinds())
	assert.ErrorIs(t, err, core.ErrDuplicateServiceName)
	assert.Contains(t, list[1].Message, `"billing"`)
	assert.Contains(t, list[2].Location, "broken.yaml")
	assert.Contains(t, list[3].Message, "gone.yaml")
}

// aliasBomb expands to 10^9 scalars through nested anchors.
const aliasBomb = `a: &a ["x","x","x","x","x","x","x","x","x","x"]
b: &b [*a,*a,*a,*a,*a,*a,*a,*a,*a,*a]
c: &c [*b,*b,*b,*b,*b,*b,*b,*b,*b,*b]
d: &d [*c,*c,*c,*c,*c,*c,*c,*c,*c,*c]
e: &e [*d,*d,*d,*d,*d,*d,*d,*d,*d,*d]
f: &f [*e,*e,*e,*e,*e,*e,*e,*e,*e,*e]
g: &g [*f,*f,*f,*f,*f,*f,*f,*f,*f,*f]
h: &h [*g,*g,*g,*g,*g,*g,*g,*g,*g,*g]
i: &i [*h,*h,*h,*h,*h,*h,*h,*h,*h,*h]
`

func TestLoadYAMLAliases(t *testing.T) {
	fsys := fstest.MapFS{
		"r.yaml": file("base: &id \"uuid, primary_key\"\nmodels:\n  users:\n    id: *id\n  posts:\n    id: *id\n"),
	}
	b, err := Load(context.Background(), fsys, "r.yaml")
	require.NoError(t, err)
	assert.Equal(t, "uuid, primary_key", b.Root().Root.Lookup("models.posts.id").Text())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		root string
		kind core.ErrorKind
	}{
		{
			name: "missing root",
			fsys: fstest.MapFS{},
			root: "backforge.yaml",
			kind: core.KindMissingConfigFile,
		},
		{
			name: "syntax error",
			fsys: fstest.MapFS{"r.yaml": file("models:\n  users: [\n")},
			root: "r.yaml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "top level list",
			fsys: fstest.MapFS{"r.yaml": file("- a\n- b\n")},
			root: "r.yaml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "duplicate yaml key",
			fsys: fstest.MapFS{"r.yaml": file("project: a\nproject: b\n")},
			root: "r.yaml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "bad toml",
			fsys: fstest.MapFS{"r.toml": file("project = \n")},
			root: "r.toml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "alias expansion too large",
			fsys: fstest.MapFS{"r.yaml": file(aliasBomb)},
			root: "r.yaml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "unsupported extension",
			fsys: fstest.MapFS{"r.ini": file("project=a\n")},
			root: "r.ini",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "unknown import role",
			fsys: fstest.MapFS{"r.yaml": file("imports:\n  secrets: s.yaml\n")},
			root: "r.yaml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "service outside project",
			fsys: fstest.MapFS{"r.yaml": file("services:\n  billing: ../billing.yaml\n")},
			root: "r.yaml",
			kind: core.KindMissingConfigFile,
		},
		{
			name: "service without name",
			fsys: fstest.MapFS{"r.yaml": file("services:\n  - file: a.yaml\n")},
			root: "r.yaml",
			kind: core.KindUnreadableConfig,
		},
		{
			name: "service declared in root and api",
			fsys: fstest.MapFS{
				"r.yaml":   file("imports:\n  api: api.yaml\nservices:\n  billing: {models: {}}\n"),
				"api.yaml": file("services:\n  billing: {models: {}}\n"),
			},
			root: "r.yaml",
			kind: core.KindDuplicateServiceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.fsys, tt.root)
			require.Error(t, err)
			list := core.AsList(err)
			require.Len(t, list, 1, "errors: %v", err)
			assert.Equal(t, tt.kind, list[0].Kind)
		})
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	fsys := fstest.MapFS{"r.yaml": file("")}
	b, err := Load(context.Background(), fsys, "r.yaml")
	require.NoError(t, err)
	assert.True(t, b.Root().Root.IsMap())
	assert.Empty(t, b.Services())
}

func TestLoadCancelled(t *testing.T) {
	fsys := fstest.MapFS{
		"r.yaml": file("services:\n  a: a.yaml\n"),
		"a.yaml": file("models: {}\n"),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, fsys, "r.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNodeAccessors(t *testing.T) {
	n := Map(
		Entry{Key: "enabled", Value: Scalar("true")},
		Entry{Key: "limit", Value: Scalar("10")},
		Entry{Key: "perms", Value: List(Scalar("a:b:c"), Scalar("d:e:f"))},
	)

	b, err := n.Get("enabled").Bool()
	require.NoError(t, err)
	assert.True(t, b)

	i, err := n.Get("limit").Int()
	require.NoError(t, err)
	assert.Equal(t, 10, i)

	assert.Equal(t, []string{"a:b:c", "d:e:f"}, n.Get("perms").Strings())
	assert.Nil(t, n.Get("missing"))
	assert.Nil(t, n.Lookup("enabled.deeper"))

	_, err = n.Get("perms").Bool()
	assert.Error(t, err)
}
