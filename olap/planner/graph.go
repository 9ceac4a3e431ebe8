// Package planner builds the fact table dependency graph and decides which
// tables a request needs and in what order they are built.
package planner

import (
	"fmt"
	"sort"

	"github.com/wbrown/janus-olap/olap/schema"
)

// Graph holds direct and transitive fact table dependencies. It is built
// once and never modified.
type Graph struct {
	tables []string
	direct map[string][]string
	deps   map[string][]string
}

// BuildDirectDependencies derives each derived table's direct inputs: the
// consolidated table for a consolidation, the member set for a union.
// Tables without consolidation or union have no entry.
func BuildDirectDependencies(s *schema.Schema) (map[string][]string, error) {
	direct := make(map[string][]string)
	for _, name := range s.Tables() {
		t, _ := s.Table(name)

		var inputs []string
		switch {
		case t.Consolidation != nil:
			inputs = []string{t.Consolidation.ConsolidatedFactTable}
		case t.Union != nil:
			inputs = uniqueSorted(t.Union.FactTables)
		default:
			continue
		}

		for _, in := range inputs {
			if !s.HasTable(in) {
				return nil, &schema.SchemaError{
					Op:    "build direct dependencies",
					Table: name,
					Err:   fmt.Errorf("%w: %s", schema.ErrUnknownTable, in),
				}
			}
		}
		direct[name] = inputs
	}
	return direct, nil
}

// BuildDependencies computes the transitive closure of direct for every
// table, as sorted lists. A table reached again while still on the current
// traversal path is a cycle and fails with a SchemaError carrying the path.
func BuildDependencies(direct map[string][]string, tables []string) (map[string][]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(tables))
	closure := make(map[string]map[string]bool, len(tables))
	var path []string

	var visit func(t string) error
	visit = func(t string) error {
		switch state[t] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, p := range path {
				if p == t {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), t)
			return &schema.SchemaError{
				Op:    "build dependencies",
				Table: t,
				Path:  cycle,
				Err:   schema.ErrDependencyCycle,
			}
		}

		state[t] = visiting
		path = append(path, t)
		set := make(map[string]bool)
		for _, d := range direct[t] {
			if err := visit(d); err != nil {
				return err
			}
			set[d] = true
			for dd := range closure[d] {
				set[dd] = true
			}
		}
		path = path[:len(path)-1]
		closure[t] = set
		state[t] = done
		return nil
	}

	for _, t := range tables {
		if err := visit(t); err != nil {
			return nil, err
		}
	}

	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		list := make([]string, 0, len(closure[t]))
		for d := range closure[t] {
			list = append(list, d)
		}
		sort.Strings(list)
		deps[t] = list
	}
	return deps, nil
}

// NewGraph builds the dependency graph of s
func NewGraph(s *schema.Schema) (*Graph, error) {
	direct, err := BuildDirectDependencies(s)
	if err != nil {
		return nil, err
	}
	tables := s.Tables()
	deps, err := BuildDependencies(direct, tables)
	if err != nil {
		return nil, err
	}
	return &Graph{tables: tables, direct: direct, deps: deps}, nil
}

// Direct returns the direct inputs of table
func (g *Graph) Direct(table string) []string {
	return append([]string(nil), g.direct[table]...)
}

// HasDirect reports whether table is derived and must be built
func (g *Graph) HasDirect(table string) bool {
	_, ok := g.direct[table]
	return ok
}

// Dependencies returns the sorted transitive dependencies of table
func (g *Graph) Dependencies(table string) []string {
	out := make([]string, len(g.deps[table]))
	copy(out, g.deps[table])
	return out
}

// Reachable reports whether to is reachable from from through one or more
// dependency edges.
func (g *Graph) Reachable(from, to string) bool {
	for _, d := range g.deps[from] {
		if d == to {
			return true
		}
	}
	return false
}

// Tables returns all tables in declaration order
func (g *Graph) Tables() []string {
	return append([]string(nil), g.tables...)
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
