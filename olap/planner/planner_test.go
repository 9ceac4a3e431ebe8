package planner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-olap/olap/schema"
	"github.com/wbrown/janus-olap/olap/syntax"
)

func measure(name, table string) schema.Measure {
	return schema.Measure{AggregatingFunction: schema.PredicateSignature{PredicateName: name}, FactTable: table}
}

func layeredSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Config{
		DefaultFactTable: "Sales",
		FactTables: []schema.FactTable{
			{FactTable: "Sales"},
			{FactTable: "SalesEU"},
			{FactTable: "ByState", Consolidation: &schema.Consolidation{ConsolidatedFactTable: "Sales"}},
			{FactTable: "ByRegion", Consolidation: &schema.Consolidation{ConsolidatedFactTable: "ByState"}},
			{FactTable: "All", Union: &schema.Union{FactTables: []string{"SalesEU", "ByRegion", "SalesEU"}}},
		},
		Measures: []schema.Measure{
			measure("Total", ""),
			measure("Count", ""),
			measure("StateTotal", "ByState"),
			measure("AllTotal", "All"),
		},
	})
	require.NoError(t, err)
	return s
}

func TestBuildDirectDependencies(t *testing.T) {
	direct, err := BuildDirectDependencies(layeredSchema(t))
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{
		"ByState":  {"Sales"},
		"ByRegion": {"ByState"},
		"All":      {"ByRegion", "SalesEU"},
	}, direct)
}

func TestBuildDirectDependenciesUnknownTable(t *testing.T) {
	s, err := schema.New(schema.Config{
		DefaultFactTable: "Sales",
		FactTables: []schema.FactTable{
			{FactTable: "Sales"},
			{FactTable: "All", Union: &schema.Union{FactTables: []string{"Sales", "Missing"}}},
		},
	})
	require.NoError(t, err)

	_, err = NewGraph(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrUnknownTable)
	assert.Contains(t, err.Error(), "Missing")
}

func TestTransitiveClosure(t *testing.T) {
	s := layeredSchema(t)
	g, err := NewGraph(s)
	require.NoError(t, err)

	assert.Empty(t, g.Dependencies("Sales"))
	assert.NotNil(t, g.Dependencies("Sales"), "leaf tables report an empty, non-nil list")
	assert.Equal(t, []string{"Sales"}, g.Dependencies("ByState"))
	assert.Equal(t, []string{"ByState", "Sales"}, g.Dependencies("ByRegion"))
	assert.Equal(t, []string{"ByRegion", "ByState", "Sales", "SalesEU"}, g.Dependencies("All"))

	// Closure equals reachability over direct edges
	for _, from := range g.Tables() {
		reach := map[string]bool{}
		stack := g.Direct(from)
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reach[n] {
				continue
			}
			reach[n] = true
			stack = append(stack, g.Direct(n)...)
		}
		assert.Len(t, g.Dependencies(from), len(reach), from)
		for _, d := range g.Dependencies(from) {
			assert.True(t, reach[d], "%s should reach %s", from, d)
			assert.True(t, g.Reachable(from, d))
		}
	}

	// Recomputing gives the same result
	direct, err := BuildDirectDependencies(s)
	require.NoError(t, err)
	again, err := BuildDependencies(direct, s.Tables())
	require.NoError(t, err)
	for _, table := range g.Tables() {
		assert.Equal(t, g.Dependencies(table), again[table])
	}
}

func TestCycleDetection(t *testing.T) {
	tests := []struct {
		name   string
		direct map[string][]string
		tables []string
		path   []string
	}{
		{"self loop", map[string][]string{"A": {"A"}}, []string{"A"}, []string{"A", "A"}},
		{"two cycle", map[string][]string{"A": {"B"}, "B": {"A"}}, []string{"A", "B"}, []string{"A", "B", "A"}},
		{"tail into cycle", map[string][]string{"X": {"A"}, "A": {"B"}, "B": {"C"}, "C": {"A"}},
			[]string{"X", "A", "B", "C"}, []string{"A", "B", "C", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildDependencies(tt.direct, tt.tables)
			require.Error(t, err)

			var serr *schema.SchemaError
			require.True(t, errors.As(err, &serr))
			assert.ErrorIs(t, err, schema.ErrDependencyCycle)
			assert.Equal(t, tt.path, serr.Path)
		})
	}
}

func TestCyclicSchema(t *testing.T) {
	s, err := schema.New(schema.Config{
		DefaultFactTable: "A",
		FactTables: []schema.FactTable{
			{FactTable: "A", Consolidation: &schema.Consolidation{ConsolidatedFactTable: "B"}},
			{FactTable: "B", Union: &schema.Union{FactTables: []string{"A"}}},
		},
	})
	require.NoError(t, err)

	_, err = NewGraph(s)
	assert.ErrorIs(t, err, schema.ErrDependencyCycle)
}

func TestLongChainTerminates(t *testing.T) {
	direct := map[string][]string{}
	var tables []string
	for i := 0; i < 500; i++ {
		name := fmt.Sprintf("T%d", i)
		tables = append(tables, name)
		if i > 0 {
			direct[name] = []string{fmt.Sprintf("T%d", i-1)}
		}
	}
	deps, err := BuildDependencies(direct, tables)
	require.NoError(t, err)
	assert.Len(t, deps["T499"], 499)
}

func TestPlanTables(t *testing.T) {
	s := layeredSchema(t)
	g, err := NewGraph(s)
	require.NoError(t, err)

	plan, err := PlanTables(s, g, []string{"AllTotal()", "Total()", "StateTotal(x: 1)", "Count()", "Total()"}, syntax.NewCache())
	require.NoError(t, err)

	assert.Equal(t, []string{"All", "Sales", "ByState"}, plan.Order)
	assert.Equal(t, []string{"Total()", "Count()"}, plan.Measures["Sales"])
	assert.Equal(t, "ByState", plan.TableOfMeasure["StateTotal(x: 1)"])
	assert.Equal(t, []string{"All", "ByState"}, plan.Worklist)
	assert.Equal(t, []string{"All", "ByRegion", "ByState", "Sales", "SalesEU"}, plan.Relevant)
}

func TestPlanTablesUnknownMeasure(t *testing.T) {
	s := layeredSchema(t)
	g, err := NewGraph(s)
	require.NoError(t, err)

	_, err = PlanTables(s, g, []string{"Nope()"}, syntax.NewCache())
	assert.ErrorIs(t, err, schema.ErrUnknownPredicate)

	_, err = PlanTables(s, g, []string{"Total("}, syntax.NewCache())
	var perr *syntax.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestFormatPlan(t *testing.T) {
	s := layeredSchema(t)
	g, err := NewGraph(s)
	require.NoError(t, err)
	plan, err := PlanTables(s, g, []string{"StateTotal()"}, syntax.NewCache())
	require.NoError(t, err)

	out := FormatPlan(s, g, plan)
	assert.Contains(t, out, "consolidation")
	assert.Contains(t, out, "StateTotal()")
	assert.Contains(t, out, "_2 tables, 1 to build_")

	assert.Equal(t, "_No tables needed_", FormatPlan(s, g, &TablePlan{}))
}
