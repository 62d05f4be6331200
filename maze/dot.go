package maze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emicklei/dot"
)

// ExportDOT renders the explored graph in Graphviz DOT format for the
// /dump_dot meta-command. Each room shows its id, title, step distance,
// visit statistics, and the current inventory snapshot; edges carry the
// command that was walked and how often.
func ExportDOT(g *Graph, inv *Inventory) string {
	out := dot.NewGraph(dot.Directed)
	out.Attr("rankdir", "TB")

	nodes := make(map[NodeID]dot.Node, g.Len())
	for _, n := range g.Nodes() {
		dn := out.Node(fmt.Sprintf("room_%d", n.ID))
		dn.Attr("shape", "rect")
		dn.Attr("style", "rounded")
		dn.Attr("label", nodeLabel(n, inv))
		nodes[n.ID] = dn
	}

	for _, n := range g.Nodes() {
		edges := make([]string, 0, len(n.EdgeToNode))
		for e := range n.EdgeToNode {
			edges = append(edges, e)
		}
		sort.Strings(edges)
		for _, e := range edges {
			succ := n.EdgeToNode[e]
			label := e
			if visits := n.EdgeVisits[e]; visits > 1 {
				label = fmt.Sprintf("%s (%d)", e, visits)
			}
			out.Edge(nodes[n.ID], nodes[succ]).Attr("label", label)
		}
	}

	return out.String()
}

func nodeLabel(n *Node, inv *Inventory) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s\n", n.ID, n.Title)
	fmt.Fprintf(&sb, "steps: %d  visits: %d\n", n.MinSteps, n.Visits)
	fmt.Fprintf(&sb, "edges: %d visited / %d untried\n", len(n.EdgeVisits), len(n.Candidates))
	if msg := truncate(n.Message, 120); msg != "" {
		sb.WriteString(msg)
		sb.WriteString("\n")
	}
	if items := inv.Items(); len(items) > 0 {
		fmt.Fprintf(&sb, "inventory: %s\n", strings.Join(items, ", "))
	} else {
		sb.WriteString("inventory is empty\n")
	}
	if len(n.Aux) > 0 {
		fmt.Fprintf(&sb, "notes: %d\n", len(n.Aux))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
