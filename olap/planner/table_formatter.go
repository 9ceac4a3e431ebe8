package planner

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/janus-olap/olap/schema"
)

// FormatPlan renders the relevant tables of a plan as a markdown table
func FormatPlan(s *schema.Schema, g *Graph, plan *TablePlan) string {
	if plan == nil || len(plan.Relevant) == 0 {
		return "_No tables needed_"
	}

	columns := []string{"table", "kind", "direct", "transitive", "measures", "ephemeral"}
	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	sb := &strings.Builder{}
	table := tablewriter.NewTable(sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for _, name := range plan.Relevant {
		table.Append([]string{
			name,
			tableKind(s, name),
			joinOrDash(g.Direct(name)),
			joinOrDash(g.Dependencies(name)),
			joinOrDash(plan.Measures[name]),
			joinOrDash(s.EphemeralDimensions(name)),
		})
	}
	table.Render()

	sb.WriteString(fmt.Sprintf("\n_%d tables, %d to build_\n", len(plan.Relevant), len(plan.Worklist)))
	return sb.String()
}

func tableKind(s *schema.Schema, name string) string {
	t, ok := s.Table(name)
	switch {
	case !ok:
		return "unknown"
	case t.Consolidation != nil:
		return "consolidation"
	case t.Union != nil:
		return "union"
	default:
		return "base"
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
