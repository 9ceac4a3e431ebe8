package compiler

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-olap/olap/annotations"
	"github.com/wbrown/janus-olap/olap/logic"
	"github.com/wbrown/janus-olap/olap/naming"
	"github.com/wbrown/janus-olap/olap/schema"
)

// usableDimensions returns the requested dimensions that can be evaluated
// at table's grain.
func (c *Compiler) usableDimensions(table string) []string {
	var out []string
	for _, d := range c.request.Dimensions {
		pred, _ := c.calls.Predicate(d)
		if !c.schema.IsEphemeral(table, pred) {
			out = append(out, d)
		}
	}
	return out
}

// usableFilters returns the requested filters that can be evaluated at
// table's grain: the filter itself is not ephemeral there, and none of the
// dimensions it depends on is.
func (c *Compiler) usableFilters(table string) []string {
	var out []string
	for _, f := range c.request.Filters {
		pred, _ := c.calls.Predicate(f)
		if c.schema.IsEphemeral(table, pred) {
			continue
		}
		deps, _ := c.schema.FilterDependencies(pred)
		usable := true
		for _, d := range deps {
			if c.schema.IsEphemeral(table, d) {
				usable = false
				break
			}
		}
		if usable {
			out = append(out, f)
		}
	}
	return out
}

func (c *Compiler) emit(p *logic.Program, r *logic.Rule, kind string) error {
	if err := p.AddRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	c.collector.Add(annotations.Event{
		Name: annotations.RuleEmitted,
		Data: map[string]interface{}{"predicate": r.Predicate(), "kind": kind},
	})
	return nil
}

func (c *Compiler) generate() (*logic.Program, error) {
	program := logic.NewProgram()

	// Measures, one rule per table holding requested measures
	var measureRules []*logic.Rule
	for i, table := range c.plan.Order {
		dimensions := c.usableDimensions(table)
		filters := c.usableFilters(table)
		var translucent []string
		if c.graph.HasDirect(table) {
			// Built tables already carry the dimensions and were filtered
			// when built; read the columns straight off the row.
			translucent, dimensions, filters = dimensions, nil, nil
		}

		rule, err := c.consolidate(consolidation{
			table:       table,
			head:        c.opts.ConsolidatingPrefix + table,
			measures:    c.plan.Measures[table],
			dimensions:  dimensions,
			filters:     filters,
			translucent: translucent,
		})
		if err != nil {
			return nil, err
		}
		if i == 0 && c.opts.EmitComments {
			rule.Comment = "Computing all the measures."
		}
		if err := c.emit(program, rule, "measures"); err != nil {
			return nil, err
		}
		measureRules = append(measureRules, rule)
	}

	needDomain, err := c.buildWorklist(program)
	if err != nil {
		return nil, err
	}
	if needDomain {
		domain, err := c.dimensionsDomain()
		if err != nil {
			return nil, err
		}
		if err := c.emit(program, domain, "domain"); err != nil {
			return nil, err
		}
	}

	report := c.opts.ReportPredicate
	if limit := c.request.LimitValue(); limit >= 0 {
		if err := c.emit(program, logic.Directive("@Limit", logic.Str(report), logic.Int(int64(limit))), "directive"); err != nil {
			return nil, err
		}
	}
	if len(c.request.Order) > 0 {
		args := []logic.Term{logic.Str(report)}
		for _, o := range c.request.Order {
			args = append(args, logic.Str(decorateOrder(o)))
		}
		if err := c.emit(program, logic.Directive("@OrderBy", args...), "directive"); err != nil {
			return nil, err
		}
	}

	assembly, err := c.assemble(measureRules)
	if err != nil {
		return nil, err
	}
	if err := c.emit(program, assembly, "report"); err != nil {
		return nil, err
	}
	return program, nil
}

// buildWorklist drains the build queue in FIFO order, emitting the rules
// that materialize each derived table. Each table is built at most once.
// It reports whether any wrap rule needs the dimensions domain.
func (c *Compiler) buildWorklist(program *logic.Program) (bool, error) {
	queue := append([]string(nil), c.plan.Worklist...)
	queued := make(map[string]bool, len(queue))
	for _, t := range queue {
		queued[t] = true
	}
	enqueue := func(t string) {
		if c.graph.HasDirect(t) && !queued[t] {
			queued[t] = true
			queue = append(queue, t)
		}
	}

	var domain *logic.Rule
	for i := 0; i < len(queue); i++ {
		table := queue[i]
		def, _ := c.schema.Table(table)

		switch {
		case def.Consolidation != nil:
			source := def.Consolidation.ConsolidatedFactTable
			enqueue(source)

			step, err := c.consolidate(consolidation{
				table:        source,
				head:         table + c.opts.StepSuffix,
				dimensions:   c.usableDimensions(source),
				filters:      c.usableFilters(source),
				consolidated: def.Consolidation.ConsolidatedDimensions,
				projected:    def.Consolidation.ProjectedDimensions,
			})
			if err != nil {
				return false, fmt.Errorf("build %s: %w", table, err)
			}
			if domain == nil {
				if base := c.schema.DefaultFactTable(); c.graph.HasDirect(base) {
					return false, &schema.SchemaError{
						Op:    "build dimensions domain for " + table,
						Table: base,
						Err:   fmt.Errorf("%w: default fact table must be a base table", schema.ErrInvalidSchema),
					}
				}
				if domain, err = c.dimensionsDomain(); err != nil {
					return false, err
				}
			}
			if err := c.emit(program, step, "consolidation"); err != nil {
				return false, err
			}
			if err := c.emit(program, c.wrap(table, step, domain), "wrap"); err != nil {
				return false, err
			}
			c.collector.Add(annotations.Event{Name: annotations.TableBuilt,
				Data: map[string]interface{}{"table": table, "kind": "consolidation", "source": source}})

		case def.Union != nil:
			members := uniqueInOrder(def.Union.FactTables)
			for _, m := range members {
				enqueue(m)
			}
			if err := c.emit(program, c.union(table, members), "union"); err != nil {
				return false, err
			}
			c.collector.Add(annotations.Event{Name: annotations.TableBuilt,
				Data: map[string]interface{}{"table": table, "kind": "union", "members": members}})
		}
	}
	return domain != nil, nil
}

// assemble builds the Report rule joining every measure rule on the
// columns they share.
func (c *Compiler) assemble(measureRules []*logic.Rule) (*logic.Rule, error) {
	head := &logic.Call{Predicate: c.opts.ReportPredicate}
	exposed := map[string]bool{}
	var body []logic.Term
	for _, r := range measureRules {
		for _, col := range r.Columns() {
			exposed[col] = true
		}
		body = append(body, joinCall(r))
	}

	for _, d := range c.request.Dimensions {
		col, err := c.columnName(d)
		if err != nil {
			return nil, err
		}
		if !exposed[col] {
			c.collector.Add(annotations.Event{Name: annotations.WarningDimensionUnbound,
				Data: map[string]interface{}{"dimension": d, "column": col}})
		}
		head.Named = append(head.Named, logic.Arg{Name: naming.DisplayColumnName(d), Value: logic.Var(col)})
	}
	for _, m := range c.request.Measures {
		col, err := c.columnName(m)
		if err != nil {
			return nil, err
		}
		head.Named = append(head.Named, logic.Arg{Name: naming.DisplayColumnName(m), Value: logic.Var(col)})
	}

	rule := &logic.Rule{Head: head, Body: logic.And(body...)}
	if c.opts.EmitComments {
		rule.Comment = "Assembling all the measures."
	}
	return rule, nil
}

// checkBuildCompleteness verifies that every predicate called in a rule
// body is a base fact table, a schema predicate, or the head of some rule
// in the program. In particular no rule reads a derived table that was
// never built.
func (c *Compiler) checkBuildCompleteness(program *logic.Program) error {
	defined := map[string]bool{}
	for _, p := range program.Predicates() {
		defined[p] = true
	}
	for _, r := range program.Rules() {
		for _, call := range bodyCalls(r.Body) {
			p := call.Predicate
			switch {
			case defined[p]:
			case c.schema.HasTable(p):
				if c.graph.HasDirect(p) {
					return fmt.Errorf("%w: %s reads %s, which is never built", ErrInvariant, r.Predicate(), p)
				}
			case c.isSchemaPredicate(p):
			default:
				return fmt.Errorf("%w: %s reads undefined predicate %s", ErrInvariant, r.Predicate(), p)
			}
		}
	}
	return nil
}

func (c *Compiler) isSchemaPredicate(p string) bool {
	if _, ok := c.schema.MeasureTable(p); ok {
		return true
	}
	if _, ok := c.schema.FilterDependencies(p); ok {
		return true
	}
	return c.schema.HasDimension(p)
}

// bodyCalls lists the calls used as propositions in a rule body
func bodyCalls(t logic.Term) []*logic.Call {
	switch v := t.(type) {
	case *logic.Call:
		return []*logic.Call{v}
	case logic.Conjunction:
		var out []*logic.Call
		for _, it := range v.Items {
			out = append(out, bodyCalls(it)...)
		}
		return out
	case logic.Disjunction:
		var out []*logic.Call
		for _, it := range v.Items {
			out = append(out, bodyCalls(it)...)
		}
		return out
	default:
		return nil
	}
}

// decorateOrder turns "Total() desc" into "`Total<>` desc"; the direction
// defaults to asc.
func decorateOrder(term string) string {
	term = strings.TrimSpace(term)
	direction := "asc"
	for _, suffix := range []string{"asc", "desc"} {
		if strings.HasSuffix(term, " "+suffix) {
			direction = suffix
			term = strings.TrimSpace(strings.TrimSuffix(term, " "+suffix))
			break
		}
	}
	return naming.DisplayColumnName(term) + " " + direction
}

func uniqueInOrder(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
