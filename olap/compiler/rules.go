package compiler

import (
	"github.com/wbrown/janus-olap/olap/logic"
	"github.com/wbrown/janus-olap/olap/schema"
)

// consolidation describes one consolidating rule
type consolidation struct {
	table        string // table whose rows are read
	head         string // predicate of the generated rule
	measures     []string
	dimensions   []string
	filters      []string
	consolidated []schema.NamedDimension
	projected    []schema.NamedDimension
	translucent  []string
}

// consolidate builds an aggregating rule over c.table. Head columns come in
// a fixed order: measures, consolidated dimensions, dimensions, projected
// dimensions, then translucent columns read straight off the row.
func (c *Compiler) consolidate(cons consolidation) (*logic.Rule, error) {
	fact := logic.Var(c.opts.FactVariable)
	head := &logic.Call{Predicate: cons.head}

	for _, m := range cons.measures {
		col, err := c.columnName(m)
		if err != nil {
			return nil, err
		}
		call, err := c.apply(m)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: col, Value: logic.Aggregation{Operator: c.opts.Aggregator, Arg: call}})
	}
	for _, nd := range cons.consolidated {
		call, err := c.apply(nd.Dimension)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: nd.Name, Value: logic.Aggregation{Operator: c.opts.Aggregator, Arg: call}})
	}
	for _, d := range cons.dimensions {
		col, err := c.columnName(d)
		if err != nil {
			return nil, err
		}
		call, err := c.apply(d)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: col, Value: call})
	}
	for _, nd := range cons.projected {
		call, err := c.apply(nd.Dimension)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: nd.Name, Value: call})
	}
	for _, d := range cons.translucent {
		col, err := c.columnName(d)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: col, Value: logic.Subscript{Base: fact, Field: col}})
	}

	body := []logic.Term{logic.NewCall(cons.table, fact)}
	for _, f := range cons.filters {
		call, err := c.apply(f)
		if err != nil {
			return nil, err
		}
		body = append(body, call)
	}

	return &logic.Rule{Head: head, Body: logic.And(body...), Distinct: true}, nil
}

// wrap re-expands an intermediate consolidation to the requested dimension
// domain: table's rows are records holding every domain column followed by
// the intermediate's own columns.
func (c *Compiler) wrap(table string, step, domain *logic.Rule) *logic.Rule {
	var fields []logic.Arg
	seen := map[string]bool{}
	for _, col := range append(domain.Columns(), step.Columns()...) {
		if seen[col] {
			continue
		}
		seen[col] = true
		fields = append(fields, logic.Arg{Name: col, Value: logic.Var(col)})
	}

	return &logic.Rule{
		Head: logic.NewCall(table, logic.Record{Fields: fields}),
		Body: logic.And(joinCall(step), joinCall(domain)),
	}
}

// union defines table as the disjunction of its members over one row
func (c *Compiler) union(table string, members []string) *logic.Rule {
	fact := logic.Var(c.opts.FactVariable)
	alternatives := make([]logic.Term, len(members))
	for i, m := range members {
		alternatives[i] = logic.NewCall(m, fact)
	}
	return &logic.Rule{
		Head: logic.NewCall(table, fact),
		Body: logic.Or(alternatives...),
	}
}

// dimensionsDomain projects the default fact table through every requested
// dimension, restricted by every requested filter.
func (c *Compiler) dimensionsDomain() (*logic.Rule, error) {
	fact := logic.Var(c.opts.FactVariable)
	head := &logic.Call{Predicate: c.opts.DomainPredicate}
	for _, d := range c.request.Dimensions {
		col, err := c.columnName(d)
		if err != nil {
			return nil, err
		}
		call, err := c.apply(d)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: col, Value: call})
	}

	var body []logic.Term
	for _, f := range c.request.Filters {
		call, err := c.apply(f)
		if err != nil {
			return nil, err
		}
		body = append(body, call)
	}
	body = append(body, logic.NewCall(c.schema.DefaultFactTable(), fact))

	return &logic.Rule{Head: head, Body: logic.And(body...), Distinct: true}, nil
}

// joinCall calls rule's head predicate binding each column to a variable
// of the same name.
func joinCall(rule *logic.Rule) *logic.Call {
	call := &logic.Call{Predicate: rule.Predicate()}
	for _, col := range rule.Columns() {
		call.Named = append(call.Named, logic.Arg{Name: col, Value: logic.Var(col)})
	}
	return call
}
