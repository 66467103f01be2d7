package diff

import (
	"slices"
	"strings"

	"backforge/internal/core"
)

// Named is implemented by types that have a name identifier.
// This interface enables type-safe sorting and mapping operations.
type Named interface {
	GetName() string
}

// sortNamed sorts a slice of Named items by name, case-insensitive first and
// exact name second so the order is total.
func sortNamed[T Named](items []T) {
	if len(items) <= 1 {
		return
	}
	slices.SortStableFunc(items, func(a, b T) int {
		an, bn := a.GetName(), b.GetName()
		if c := strings.Compare(strings.ToLower(an), strings.ToLower(bn)); c != 0 {
			return c
		}
		return strings.Compare(an, bn)
	})
}

// mapTablesByName creates a lookup map of tables keyed by name. Names are
// unique in a resolved graph; the first entry wins otherwise.
func mapTablesByName(tables []*core.TableSpec) map[string]*core.TableSpec {
	return mapByName(tables)
}

// mapFieldsByName creates a lookup map of fields keyed by name.
func mapFieldsByName(fields []*core.FieldSpec) map[string]*core.FieldSpec {
	return mapByName(fields)
}

func mapByName[T Named](items []T) map[string]T {
	m := make(map[string]T, len(items))
	for _, it := range items {
		if _, ok := m[it.GetName()]; !ok {
			m[it.GetName()] = it
		}
	}
	return m
}
