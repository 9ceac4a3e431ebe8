package planner

import (
	"fmt"
	"sort"

	"github.com/wbrown/janus-olap/olap/schema"
)

// PredicateResolver returns the predicate called by a call text
type PredicateResolver interface {
	Predicate(text string) (string, error)
}

// TablePlan records which table each requested measure is computed from
type TablePlan struct {
	// Order lists tables holding requested measures, in first-request order
	Order []string
	// Measures maps each table in Order to its measure calls
	Measures map[string][]string
	// TableOfMeasure maps a measure call to its owning table
	TableOfMeasure map[string]string
	// Worklist is the initial build queue: requested tables that are derived
	Worklist []string
	// Relevant is every requested table plus its transitive dependencies
	Relevant []string
}

// PlanTables groups the requested measure calls by owning fact table.
// A measure whose predicate the schema does not define is a SchemaError.
func PlanTables(s *schema.Schema, g *Graph, measures []string, resolver PredicateResolver) (*TablePlan, error) {
	plan := &TablePlan{
		Measures:       make(map[string][]string),
		TableOfMeasure: make(map[string]string, len(measures)),
	}

	for _, m := range measures {
		if _, seen := plan.TableOfMeasure[m]; seen {
			continue
		}
		pred, err := resolver.Predicate(m)
		if err != nil {
			return nil, fmt.Errorf("measure %s: %w", m, err)
		}
		table, ok := s.MeasureTable(pred)
		if !ok {
			return nil, &schema.SchemaError{Op: "resolve measure " + m, Predicate: pred, Err: schema.ErrUnknownPredicate}
		}

		plan.TableOfMeasure[m] = table
		if _, ok := plan.Measures[table]; !ok {
			plan.Order = append(plan.Order, table)
		}
		plan.Measures[table] = append(plan.Measures[table], m)
	}

	relevant := make(map[string]bool)
	for _, t := range plan.Order {
		if g.HasDirect(t) {
			plan.Worklist = append(plan.Worklist, t)
		}
		relevant[t] = true
		for _, d := range g.Dependencies(t) {
			relevant[d] = true
		}
	}
	for t := range relevant {
		plan.Relevant = append(plan.Relevant, t)
	}
	sort.Strings(plan.Relevant)

	return plan, nil
}
