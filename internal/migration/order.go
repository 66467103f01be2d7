package migration

import (
	"slices"
	"sort"
	"strings"

	"backforge/internal/core"
)

// Rank values. Lower ranks apply first.
const (
	rankCreate = iota
	rankAdd
	rankAlter
	rankDropConstraint
	rankDropField
	rankDropTable
)

// Rank returns the ordering bucket of an operation kind.
func Rank(kind core.OperationKind) int {
	switch kind {
	case core.OpCreateTable:
		return rankCreate
	case core.OpAddField, core.OpAddConstraint:
		return rankAdd
	case core.OpAlterFieldType:
		return rankAlter
	case core.OpDropConstraint:
		return rankDropConstraint
	case core.OpDropField:
		return rankDropField
	default:
		return rankDropTable
	}
}

// order sorts ops in place into the plan's total order: by rank, then table,
// field and constraint. Created tables follow foreign key dependencies so a
// referenced table is created first; dropped tables are removed dependents
// first.
func order(ops []core.Operation) {
	createPos := tablePositions(ops, core.OpCreateTable, false)
	dropPos := tablePositions(ops, core.OpDropTable, true)

	slices.SortStableFunc(ops, func(a, b core.Operation) int {
		if a.Rank != b.Rank {
			return a.Rank - b.Rank
		}
		switch a.Kind {
		case core.OpCreateTable:
			if b.Kind == core.OpCreateTable {
				return createPos[a.Table] - createPos[b.Table]
			}
		case core.OpDropTable:
			if b.Kind == core.OpDropTable {
				return dropPos[a.Table] - dropPos[b.Table]
			}
		}
		if c := strings.Compare(a.Table, b.Table); c != 0 {
			return c
		}
		if c := strings.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		if c := constraintIndex(a.Constraint) - constraintIndex(b.Constraint); c != 0 {
			return c
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
}

func constraintIndex(c core.Constraint) int {
	if c == "" {
		return -1
	}
	return slices.Index(core.Constraints(), c)
}

// tablePositions orders the tables of the given operation kind by their
// references and returns each table's position.
func tablePositions(ops []core.Operation, kind core.OperationKind, reverse bool) map[string]int {
	var tables []*core.TableSpec
	for i := range ops {
		if ops[i].Kind == kind && ops[i].TableSpec != nil {
			tables = append(tables, ops[i].TableSpec)
		}
	}
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	idx := make(map[string]int, len(tables))
	for i, t := range tables {
		idx[t.Name] = i
	}
	sorted := topoSort(len(tables), func(i int) []int {
		var deps []int
		for _, ref := range tables[i].References() {
			if j, ok := idx[ref]; ok {
				deps = append(deps, j)
			}
		}
		return deps
	})
	if reverse {
		slices.Reverse(sorted)
	}

	pos := make(map[string]int, len(sorted))
	for p, i := range sorted {
		pos[tables[i].Name] = p
	}
	return pos
}

// topoSort returns node indices so that each node follows its dependencies.
// depsFn(i) yields indices that must come before i. When several nodes are
// ready the smallest index is picked. Nodes on a cycle are appended in index
// order once nothing else is ready.
func topoSort(n int, depsFn func(i int) []int) []int {
	if n <= 0 {
		return nil
	}

	indeg := make([]int, n)
	out := make([][]int, n)
	for i := range n {
		for _, d := range depsFn(i) {
			indeg[i]++
			out[d] = append(out[d], i)
		}
	}

	done := make([]bool, n)
	order := make([]int, 0, n)
	for len(order) < n {
		next := -1
		for i := range n {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			// cycle: break it at the smallest remaining index
			for i := range n {
				if !done[i] {
					next = i
					break
				}
			}
		}
		done[next] = true
		order = append(order, next)
		for _, j := range out[next] {
			indeg[j]--
		}
	}
	return order
}
