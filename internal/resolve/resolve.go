// Package resolve merges the documents of a config.Bundle into one canonical
// core.SchemaGraph.
//
// Resolution runs in two phases. The first builds the complete table index
// from the root document and every service document, parsing each field
// definition. The second validates the index: primary keys, duplicate table
// names, identifiers, relations, references and permission strings. Every
// problem is collected; a graph is returned only when there are none.
package resolve

import (
	"fmt"
	"slices"
	"strings"

	"backforge/internal/config"
	"backforge/internal/core"
)

// tableEntry is a table in the index, with where it was declared.
type tableEntry struct {
	spec     *core.TableSpec
	doc      *config.Document
	node     *config.Node
	fieldErr bool
}

func (e *tableEntry) location() string {
	return e.doc.Location(e.node)
}

func (e *tableEntry) fieldLocation(field string, n *config.Node) string {
	return fmt.Sprintf("%s %s.%s", e.doc.Location(n), e.spec.Name, field)
}

// resolver holds the state of one resolution run.
type resolver struct {
	bundle *config.Bundle
	errs   core.ErrorList

	settings core.Settings
	services []*core.ServiceSpec

	// tables holds every declared table in graph order, including duplicates.
	tables []*tableEntry
	index  map[string]*tableEntry
	nodes  map[*core.FieldSpec]*config.Node
	rels   map[*core.Relation]*config.Node
}

// Resolve builds the canonical schema graph of b. On failure the error is a
// non-empty core.ErrorList and the graph is nil.
func Resolve(b *config.Bundle) (*core.SchemaGraph, error) {
	if b == nil || b.Root() == nil {
		return nil, core.ErrorList{core.Errorf(core.KindMissingConfigFile, "", "bundle has no root document")}
	}
	r := &resolver{
		bundle: b,
		index:  make(map[string]*tableEntry),
		nodes:  make(map[*core.FieldSpec]*config.Node),
		rels:   make(map[*core.Relation]*config.Node),
	}

	r.buildIndex()
	r.validate()

	if len(r.errs) > 0 {
		return nil, r.errs
	}

	g := &core.SchemaGraph{Settings: r.settings, Services: r.services}
	for _, e := range r.tables {
		g.Tables = append(g.Tables, e.spec)
	}
	return g, nil
}

func (r *resolver) addError(kind core.ErrorKind, location, format string, args ...any) {
	r.errs = append(r.errs, core.Errorf(kind, location, format, args...))
}

// buildIndex is the first phase: settings, services and every table.
func (r *resolver) buildIndex() {
	root := r.bundle.Root()
	r.settings = r.resolveSettings()

	r.collectTables(root, string(config.RoleRoot))
	for _, name := range r.bundle.Services() {
		doc := r.bundle.Document(config.ServiceRole(name))
		tables := r.collectTables(doc, string(doc.Role))
		r.services = append(r.services, r.resolveService(name, doc, tables))
	}
}

// collectTables appends the tables of doc, alphabetical within the document,
// and returns their names in that order.
func (r *resolver) collectTables(doc *config.Document, source string) []string {
	models := doc.Root.Get("models")
	if models == nil || models.Kind == config.NullNode {
		return nil
	}
	if !models.IsMap() {
		r.addError(core.KindMalformedFieldDefinition, doc.Location(models), "models must be a map of table name to fields")
		return nil
	}

	entries := slices.Clone(models.Entries)
	slices.SortStableFunc(entries, func(a, b config.Entry) int {
		return strings.Compare(a.Key, b.Key)
	})

	var names []string
	for _, m := range entries {
		e := r.resolveTable(doc, source, m.Key, m.Value)
		r.tables = append(r.tables, e)
		if _, dup := r.index[e.spec.Name]; !dup {
			r.index[e.spec.Name] = e
		}
		names = append(names, e.spec.Name)
	}
	return names
}

// validate is the second phase. Rules run in a fixed order so the error list
// is deterministic.
func (r *resolver) validate() {
	r.checkPrimaryKeys()
	r.checkDuplicateTables()
	r.checkIdentifiers()
	r.checkRelations()
	r.checkReferences()
	r.checkPermissions()
}
