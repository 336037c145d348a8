package dataflow

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Plan is a frozen dataflow DAG: a single sink reachable from every other
// node by following Parents(). Once built it is never mutated (spec.md §3
// lifecycle: "once the sink is produced the plan is frozen").
type Plan struct {
	Sink Node
}

// StructureText renders the plan as an indented, topologically ordered text
// tree: each node's Describe() on its own line, parents before children,
// duplicate-visited nodes (shared by more than one child, e.g. a measure
// subplan read by CombineAggregatedOutputsNode) printed once at first
// encounter and referenced by id thereafter. Byte-identical across runs for
// a given plan value, per spec.md §5's determinism requirement. Grounded on
// QueryPlan's phase-ordered debug output in datalog/planner/types.go.
func (p Plan) StructureText() string {
	var b strings.Builder
	visited := make(map[int]bool)
	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		indent := strings.Repeat("  ", depth)
		if visited[n.ID()] {
			fmt.Fprintf(&b, "%s#%d %s (see above)\n", indent, n.ID(), shortKind(n))
			return
		}
		visited[n.ID()] = true
		for _, parent := range n.Parents() {
			walk(parent, depth+1)
		}
		fmt.Fprintf(&b, "%s#%d %s\n", indent, n.ID(), n.Describe())
	}
	walk(p.Sink, 0)
	return b.String()
}

func shortKind(n Node) string {
	desc := n.Describe()
	if idx := strings.Index(desc, "("); idx >= 0 {
		return desc[:idx]
	}
	return desc
}

// DumpTable renders every node in the plan as a markdown table (id, kind,
// parents, description), grounded on table_formatter.go's
// tablewriter-backed relation rendering.
func (p Plan) DumpTable() string {
	var b strings.Builder
	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"id", "kind", "parents", "description"})

	visited := make(map[int]bool)
	var rows [][]string
	var walk func(n Node)
	walk = func(n Node) {
		if visited[n.ID()] {
			return
		}
		visited[n.ID()] = true
		for _, parent := range n.Parents() {
			walk(parent)
		}
		parentIDs := make([]string, len(n.Parents()))
		for i, parent := range n.Parents() {
			parentIDs[i] = fmt.Sprintf("%d", parent.ID())
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", n.ID()),
			shortKind(n),
			strings.Join(parentIDs, ","),
			n.Describe(),
		})
	}
	walk(p.Sink)

	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return b.String()
}
