package diff

import (
	"strconv"
	"strings"

	"backforge/internal/core"
)

// Attribute names reported in AttributeChange.
const (
	attrType        = "type"
	attrConstraints = "constraints"
	attrMaxLength   = "max_length"
	attrMinLength   = "min_length"
	attrMinValue    = "min_value"
	attrMaxValue    = "max_value"
	attrDefault     = "default"
	attrEnum        = "enum"
	attrReferences  = "references"
)

func compareTable(oldT, newT *core.TableSpec) *TableDiff {
	td := &TableDiff{Name: newT.Name}

	compareFields(oldT.Fields, newT.Fields, td)

	if td.isEmpty() {
		return nil
	}

	td.sort()
	return td
}

func compareFields(oldItems, newItems []*core.FieldSpec, td *TableDiff) {
	oldMap := mapFieldsByName(oldItems)
	newMap := mapFieldsByName(newItems)

	for name, newItem := range newMap {
		oldItem, exists := oldMap[name]
		if !exists {
			td.AddedFields = append(td.AddedFields, newItem)
			continue
		}
		if changes := fieldChanges(oldItem, newItem); len(changes) > 0 {
			td.ModifiedFields = append(td.ModifiedFields, &FieldChange{
				Name:    newItem.Name,
				Old:     oldItem,
				New:     newItem,
				Changes: changes,
			})
		}
	}

	for name, oldItem := range oldMap {
		if _, exists := newMap[name]; !exists {
			td.RemovedFields = append(td.RemovedFields, oldItem)
		}
	}
}

// fieldChanges compares every attribute of two fields. The field name is the
// match key and is not compared.
func fieldChanges(oldF, newF *core.FieldSpec) []*AttributeChange {
	c := &attributeChangeCollector{}

	c.Add(attrType, string(oldF.Type), string(newF.Type))
	c.Add(attrConstraints, constraintList(oldF.Constraints), constraintList(newF.Constraints))
	c.Add(attrMaxLength, intStr(oldF.Bounds.MaxLength), intStr(newF.Bounds.MaxLength))
	c.Add(attrMinLength, intStr(oldF.Bounds.MinLength), intStr(newF.Bounds.MinLength))
	c.Add(attrMinValue, floatStr(oldF.Bounds.MinValue), floatStr(newF.Bounds.MinValue))
	c.Add(attrMaxValue, floatStr(oldF.Bounds.MaxValue), floatStr(newF.Bounds.MaxValue))
	c.AddPtr(attrDefault, oldF.Default, newF.Default)
	c.Add(attrEnum, strings.Join(oldF.EnumValues, "|"), strings.Join(newF.EnumValues, "|"))
	c.Add(attrReferences, refStr(oldF.Reference), refStr(newF.Reference))

	return c.Changes
}

func (td *TableDiff) sort() {
	sortNamed(td.AddedFields)
	sortNamed(td.RemovedFields)
	sortNamed(td.ModifiedFields)
}

func (td *TableDiff) isEmpty() bool {
	return len(td.AddedFields) == 0 &&
		len(td.RemovedFields) == 0 &&
		len(td.ModifiedFields) == 0
}

type attributeChangeCollector struct {
	Changes []*AttributeChange
}

func (c *attributeChangeCollector) Add(attr, oldV, newV string) {
	if oldV == newV {
		return
	}
	c.Changes = append(c.Changes, &AttributeChange{Attribute: attr, Old: oldV, New: newV})
}

// AddPtr compares optional strings, so an empty default differs from no
// default.
func (c *attributeChangeCollector) AddPtr(attr string, oldV, newV *string) {
	if oldV == nil && newV == nil {
		return
	}
	if oldV != nil && newV != nil && *oldV == *newV {
		return
	}
	c.Changes = append(c.Changes, &AttributeChange{Attribute: attr, Old: quotedPtr(oldV), New: quotedPtr(newV)})
}

func constraintList(s core.ConstraintSet) string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

func intStr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func floatStr(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

func refStr(r *core.Reference) string {
	if r == nil {
		return ""
	}
	return r.String()
}

func quotedPtr(p *string) string {
	if p == nil {
		return "<none>"
	}
	return strconv.Quote(*p)
}
