// Package compiler turns an OLAP request into a logic program. A Compiler
// is built for exactly one (schema, request) pair: all derived state is
// computed by New and only read afterwards.
package compiler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wbrown/janus-olap/olap/annotations"
	"github.com/wbrown/janus-olap/olap/logic"
	"github.com/wbrown/janus-olap/olap/naming"
	"github.com/wbrown/janus-olap/olap/planner"
	"github.com/wbrown/janus-olap/olap/schema"
	"github.com/wbrown/janus-olap/olap/syntax"
)

// Compiler holds the derived state for one request
type Compiler struct {
	id        string
	schema    *schema.Schema
	request   schema.Request
	opts      Options
	calls     *syntax.Cache
	graph     *planner.Graph
	plan      *planner.TablePlan
	collector *annotations.Collector
}

// New validates the request against s and computes the dependency graph
// and table plan. Unknown tables, cycles, and calls to predicates the
// schema does not define fail here with a *schema.SchemaError; malformed
// call text fails with a *syntax.ParseError; calls whose Report columns
// would collide fail with a *schema.RequestError.
func New(s *schema.Schema, req schema.Request, opts Options) (*Compiler, error) {
	c := &Compiler{
		id:        uuid.NewString(),
		schema:    s,
		request:   req.Normalized(),
		opts:      opts.withDefaults(),
		calls:     syntax.NewCache(),
		collector: annotations.NewCollector(opts.Handler),
	}

	start := time.Now()
	graph, err := planner.NewGraph(s)
	if err != nil {
		return nil, err
	}
	c.graph = graph
	c.collector.AddTiming(annotations.DependenciesBuilt, start, map[string]interface{}{
		"tables.count": len(graph.Tables()),
	})

	start = time.Now()
	plan, err := planner.PlanTables(s, graph, c.request.Measures, c.calls)
	if err != nil {
		return nil, err
	}
	c.plan = plan
	c.collector.AddTiming(annotations.TablesResolved, start, map[string]interface{}{
		"tables":   plan.Order,
		"worklist": plan.Worklist,
		"relevant": plan.Relevant,
	})

	for _, d := range c.request.Dimensions {
		pred, err := c.calls.Predicate(d)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", d, err)
		}
		if !s.HasDimension(pred) {
			return nil, &schema.SchemaError{Op: "resolve dimension " + d, Predicate: pred, Err: schema.ErrUnknownPredicate}
		}
	}
	for _, f := range c.request.Filters {
		pred, err := c.calls.Predicate(f)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f, err)
		}
		if _, ok := s.FilterDependencies(pred); !ok {
			return nil, &schema.SchemaError{Op: "resolve filter " + f, Predicate: pred, Err: schema.ErrUnknownPredicate}
		}
	}
	if err := c.checkDisplayNames(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkDisplayNames rejects requests whose Report columns would collide
// after escaping, e.g. State(x: "a(") and State(x: "a<").
func (c *Compiler) checkDisplayNames() error {
	seen := map[string]string{}
	check := func(field string, texts []string) error {
		for _, text := range texts {
			name := naming.DisplayColumnName(text)
			if prev, ok := seen[name]; ok && prev != text {
				return &schema.RequestError{
					Field: field,
					Msg:   fmt.Sprintf("%s and %s both display as %s", prev, text, name),
				}
			}
			seen[name] = text
		}
		return nil
	}
	if err := check("dimensions", c.request.Dimensions); err != nil {
		return err
	}
	return check("measures", c.request.Measures)
}

// Compile builds a compiler and returns its program
func Compile(s *schema.Schema, req schema.Request, opts Options) (*logic.Program, error) {
	c, err := New(s, req, opts)
	if err != nil {
		return nil, err
	}
	return c.Program()
}

// ID identifies this compilation in events and logs
func (c *Compiler) ID() string {
	return c.id
}

// Request returns the normalized request being compiled
func (c *Compiler) Request() schema.Request {
	return c.request
}

func (c *Compiler) Schema() *schema.Schema {
	return c.schema
}

func (c *Compiler) Graph() *planner.Graph {
	return c.graph
}

func (c *Compiler) Plan() *planner.TablePlan {
	return c.plan
}

// Events returns the annotations recorded so far
func (c *Compiler) Events() []annotations.Event {
	return c.collector.Events()
}

// Program generates the logic program. Either the complete program is
// returned or an error; a partial program is never returned.
func (c *Compiler) Program() (*logic.Program, error) {
	start := time.Now()
	c.collector.Add(annotations.Event{
		Name:  annotations.CompileInvoked,
		Start: start,
		End:   start,
		Data: map[string]interface{}{
			"id":               c.id,
			"measures.count":   len(c.request.Measures),
			"dimensions.count": len(c.request.Dimensions),
			"filters.count":    len(c.request.Filters),
		},
	})

	program, err := c.generate()
	if err == nil {
		err = c.checkBuildCompleteness(program)
	}
	if err != nil {
		c.collector.Add(annotations.Event{Name: annotations.ErrorCompile, Data: map[string]interface{}{"error": err}})
		c.collector.AddTiming(annotations.CompileComplete, start, map[string]interface{}{
			"id":      c.id,
			"success": false,
			"error":   err,
		})
		return nil, err
	}

	c.collector.AddTiming(annotations.CompileComplete, start, map[string]interface{}{
		"id":          c.id,
		"success":     true,
		"rules.count": program.Len(),
	})
	return program, nil
}

// FullProgram returns base followed by the generated program, ready for the
// downstream logic-to-SQL compiler.
func (c *Compiler) FullProgram(base string) (string, error) {
	program, err := c.Program()
	if err != nil {
		return "", err
	}
	return logic.Concat(base, program), nil
}

// Explain renders the tables the request touches
func (c *Compiler) Explain() string {
	return planner.FormatPlan(c.schema, c.graph, c.plan)
}

// columnName returns the internal column name for call text
func (c *Compiler) columnName(text string) (string, error) {
	pred, err := c.calls.Predicate(text)
	if err != nil {
		return "", err
	}
	return naming.ColumnName(pred, text), nil
}

// apply returns the call for text applied to the fact row
func (c *Compiler) apply(text string) (*logic.Call, error) {
	call, err := c.calls.Call(text)
	if err != nil {
		return nil, err
	}
	return call.WithSubject(logic.Var(c.opts.FactVariable)), nil
}
