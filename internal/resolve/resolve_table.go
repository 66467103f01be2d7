package resolve

import (
	"errors"
	"strings"

	"backforge/internal/config"
	"backforge/internal/core"
	"backforge/internal/parser"
)

const (
	keyFields    = "fields"
	keyRelations = "relations"
)

// tableBody splits a model declaration into its field and relation nodes.
//
// Two forms are accepted. The long form is {fields: {...}, relations: {...}}.
// The short form maps field names directly; a "relations" key whose value is a
// map without a "type" key is read as the relation block.
func tableBody(n *config.Node) (fields []config.Entry, relations *config.Node) {
	if f := n.Get(keyFields); f.IsMap() && f.Get("type") == nil {
		return f.Entries, n.Get(keyRelations)
	}
	for _, e := range n.Entries {
		if e.Key == keyRelations && e.Value.IsMap() && e.Value.Get("type") == nil {
			relations = e.Value
			continue
		}
		fields = append(fields, e)
	}
	return fields, relations
}

func (r *resolver) resolveTable(doc *config.Document, source, name string, n *config.Node) *tableEntry {
	e := &tableEntry{
		spec: &core.TableSpec{Name: name, Source: source},
		doc:  doc,
		node: n,
	}
	if !n.IsMap() {
		r.addError(core.KindMalformedFieldDefinition, e.location(), "table %q must be a map of field definitions", name)
		e.fieldErr = true
		return e
	}

	fields, relations := tableBody(n)
	for _, f := range fields {
		spec, ok := r.resolveField(e, f.Key, f.Value)
		if !ok {
			e.fieldErr = true
			continue
		}
		r.nodes[spec] = f.Value
		e.spec.Fields = append(e.spec.Fields, spec)
	}

	if relations != nil && relations.Kind != config.NullNode {
		r.resolveRelations(e, relations)
	}
	return e
}

// resolveField accepts either a mini-language string or a map with a "type"
// definition and an optional "references" target.
func (r *resolver) resolveField(e *tableEntry, name string, n *config.Node) (*core.FieldSpec, bool) {
	loc := e.fieldLocation(name, n)

	var def string
	switch n.Kind {
	case config.ScalarNode:
		def = n.Value
	case config.MapNode:
		parts := []string{n.Get("type").Text()}
		for _, entry := range n.Entries {
			switch entry.Key {
			case "type":
				if !entry.Value.IsScalar() || entry.Value.Value == "" {
					r.addError(core.KindMalformedFieldDefinition, loc, "field type must be a definition string")
					return nil, false
				}
			case "references":
				if !entry.Value.IsScalar() {
					r.addError(core.KindMalformedFieldDefinition, loc, "references must be a table.field string")
					return nil, false
				}
				parts = append(parts, "references="+entry.Value.Value)
			default:
				r.addError(core.KindMalformedFieldDefinition, loc, "unknown field key %q", entry.Key)
				return nil, false
			}
		}
		if parts[0] == "" {
			r.addError(core.KindMalformedFieldDefinition, loc, "field %q has no type", name)
			return nil, false
		}
		def = strings.Join(parts, ", ")
	default:
		r.addError(core.KindMalformedFieldDefinition, loc, "field %q must be a definition string or a map, got %s", name, n.Kind)
		return nil, false
	}

	spec, err := parser.ParseNamed(name, def)
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			r.errs = append(r.errs, perr.AsCoreError(loc))
		} else {
			r.addError(core.KindMalformedFieldDefinition, loc, "%v", err)
		}
		return nil, false
	}
	return spec, true
}

func (r *resolver) resolveRelations(e *tableEntry, n *config.Node) {
	if !n.IsMap() {
		r.addError(core.KindMalformedFieldDefinition, e.doc.Location(n), "relations of table %q must be a map", e.spec.Name)
		return
	}
	for _, entry := range n.Entries {
		rel, ok := r.resolveRelation(e, entry.Key, entry.Value)
		if !ok {
			continue
		}
		r.rels[rel] = entry.Value
		e.spec.Relations = append(e.spec.Relations, rel)
	}
}

func (r *resolver) resolveRelation(e *tableEntry, name string, n *config.Node) (*core.Relation, bool) {
	loc := e.fieldLocation(name, n)
	if !n.IsMap() {
		r.addError(core.KindMalformedFieldDefinition, loc, "relation %q must be a map with type, target and field", name)
		return nil, false
	}

	kind, ok := core.ParseRelationKind(n.Get("type").Text())
	if !ok {
		r.addError(core.KindMalformedFieldDefinition, loc, "relation %q has unknown type %q", name, n.Get("type").Text())
		return nil, false
	}
	rel := &core.Relation{
		Name:    name,
		Kind:    kind,
		Target:  n.Get("target").Text(),
		Field:   n.Get("field").Text(),
		Through: n.Get("through").Text(),
	}

	switch {
	case rel.Target == "":
		r.addError(core.KindMalformedFieldDefinition, loc, "relation %q has no target", name)
		return nil, false
	case rel.Field == "":
		r.addError(core.KindMalformedFieldDefinition, loc, "relation %q has no owning field", name)
		return nil, false
	case kind == core.ManyToMany && rel.Through == "":
		r.addError(core.KindMalformedFieldDefinition, loc, "many_to_many relation %q needs a through table", name)
		return nil, false
	case kind != core.ManyToMany && rel.Through != "":
		r.addError(core.KindMalformedFieldDefinition, loc, "only many_to_many relations take a through table")
		return nil, false
	}
	return rel, true
}
