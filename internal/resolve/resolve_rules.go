package resolve

import (
	"fmt"

	"backforge/internal/core"
)

// checkPrimaryKeys requires exactly one primary_key field per table. A table
// whose fields failed to parse is only checked for extra keys.
func (r *resolver) checkPrimaryKeys() {
	for _, e := range r.tables {
		pks := e.spec.PrimaryKeys()
		switch {
		case len(pks) == 0 && !e.fieldErr:
			r.addError(core.KindMissingPrimaryKey, e.location(), "table %q has no primary_key field", e.spec.Name)
		case len(pks) > 1:
			names := make([]string, len(pks))
			for i, f := range pks {
				names[i] = f.Name
			}
			r.addError(core.KindMissingPrimaryKey, e.location(), "table %q must have exactly one primary_key field, found %v", e.spec.Name, names)
		}
	}
}

// checkDuplicateTables reports every table declared more than once, naming
// both files.
func (r *resolver) checkDuplicateTables() {
	for _, e := range r.tables {
		first := r.index[e.spec.Name]
		if first == e {
			continue
		}
		r.addError(core.KindDuplicateTableName, e.location(),
			"table %q is declared in both %s and %s", e.spec.Name, first.doc.Path, e.doc.Path)
	}
}

func (r *resolver) checkIdentifiers() {
	for _, e := range r.tables {
		if err := core.ValidateIdentifier(e.spec.Name); err != nil {
			r.addError(core.KindInvalidIdentifier, e.location(), "table name: %v", err)
		}
		for _, f := range e.spec.Fields {
			if err := core.ValidateIdentifier(f.Name); err != nil {
				r.addError(core.KindInvalidIdentifier, e.fieldLocation(f.Name, r.nodes[f]), "field name: %v", err)
			}
		}
		for _, rel := range e.spec.Relations {
			if err := core.ValidateIdentifier(rel.Name); err != nil {
				r.addError(core.KindInvalidIdentifier, e.fieldLocation(rel.Name, r.rels[rel]), "relation name: %v", err)
			}
		}
	}
}

// checkRelations resolves every relation against the complete table index, so
// forward references across files are allowed.
func (r *resolver) checkRelations() {
	for _, e := range r.tables {
		for _, rel := range e.spec.Relations {
			loc := e.fieldLocation(rel.Name, r.rels[rel])
			if r.index[rel.Target] == nil {
				r.addError(core.KindDanglingRelation, loc, "relation %q targets unknown table %q", rel.Name, rel.Target)
				continue
			}
			owner := r.index[rel.OwnerTable(e.spec.Name)]
			if owner == nil {
				r.addError(core.KindDanglingRelation, loc, "relation %q uses unknown through table %q", rel.Name, rel.Through)
				continue
			}
			if owner.spec.FindField(rel.Field) == nil {
				r.addError(core.KindDanglingRelation, loc, "relation %q: field %q does not exist in table %q", rel.Name, rel.Field, owner.spec.Name)
			}
		}
	}
}

// checkReferences requires every foreign key target to exist and to have the
// same universal type as the referencing field.
func (r *resolver) checkReferences() {
	for _, e := range r.tables {
		for _, f := range e.spec.Fields {
			if f.Reference == nil {
				continue
			}
			loc := e.fieldLocation(f.Name, r.nodes[f])
			target, ok := r.index[f.Reference.Table]
			if !ok {
				r.addError(core.KindDanglingRelation, loc, "references unknown table %q", f.Reference.Table)
				continue
			}
			tf := target.spec.FindField(f.Reference.Field)
			if tf == nil {
				r.addError(core.KindDanglingRelation, loc, "references unknown field %s", f.Reference)
				continue
			}
			if tf.Type != f.Type {
				r.addError(core.KindIncompatibleReferenceType, loc,
					"%s field cannot reference %s (%s)", f.Type, f.Reference, tf.Type)
			}
		}
	}
}

// checkPermissions validates permission strings when authentication is on.
func (r *resolver) checkPermissions() {
	if !r.settings.Auth.Enabled {
		return
	}
	for _, p := range r.settings.Auth.Permissions {
		if err := core.ValidatePermission(p); err != nil {
			r.addError(core.KindInvalidPermissionString, "auth.permissions", "%v", err)
		}
	}
	for _, svc := range r.services {
		for _, ep := range svc.Endpoints {
			for _, p := range ep.Permissions {
				if err := core.ValidatePermission(p); err != nil {
					r.addError(core.KindInvalidPermissionString, fmt.Sprintf("%s %s %s", svc.Source, ep.Method, ep.Path), "%v", err)
				}
			}
		}
	}
}
