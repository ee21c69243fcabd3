// Package visualization renders causal overlays in various output formats.
package visualization

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
	"github.com/nvandessel/trace-semantics/internal/overlay"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// layerColors maps layers to DOT fill colors.
var layerColors = map[models.Layer]string{
	models.LayerTheory:         "steelblue",
	models.LayerMethodology:    "goldenrod",
	models.LayerImplementation: "mediumseagreen",
}

// Options tune rendering.
type Options struct {
	// Highlight lists entity positions drawn with a red outline, such as
	// the ancestors implicated by a falsified comparison.
	Highlight []int

	// ClusterByDAGNode groups entities sharing a DAG node into a subgraph.
	ClusterByDAGNode bool
}

func nodeID(i int) string { return fmt.Sprintf("e%d", i) }

func nodeLabel(e *lel.TraceEvent) string {
	label := fmt.Sprintf("#%d %s", e.ID, e.Tag())
	if name, ok := models.VariableName(e.Kind); ok {
		label += "\n" + truncate(name, 32)
	}
	return label
}

// RenderDOT produces a Graphviz DOT representation of the overlay. Edges
// point from cause to effect.
func RenderDOT(log *lel.LayeredEventLog, ov *overlay.CausalOverlay, opts Options) string {
	highlight := make(map[int]bool, len(opts.Highlight))
	for _, i := range opts.Highlight {
		highlight[i] = true
	}

	var b strings.Builder
	b.WriteString("digraph lelir {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	writeNode := func(indent string, i int) {
		e := log.At(ov.Entities[i].EventIdx)
		color := layerColors[e.Layer]
		if color == "" {
			color = "lightgray"
		}
		style := "filled"
		if e.Boundary.Type == models.BoundaryDualAnnotated {
			style = "filled,dashed"
		}
		extra := ""
		if highlight[i] {
			extra = ", color=\"tomato\", penwidth=2"
		}
		fmt.Fprintf(&b, "%s%q [label=%q, fillcolor=%q, style=%q, tooltip=%q%s];\n",
			indent, nodeID(i), nodeLabel(e), color, style, string(e.Layer), extra)
	}

	clustered := make(map[int]bool)
	if opts.ClusterByDAGNode {
		for _, dag := range sortedKeys(ov.EntityByDAGNode) {
			fmt.Fprintf(&b, "  subgraph %q {\n", "cluster_"+dag)
			fmt.Fprintf(&b, "    label=%q;\n", dag)
			for _, i := range ov.EntityByDAGNode[dag] {
				writeNode("    ", i)
				clustered[i] = true
			}
			b.WriteString("  }\n")
		}
	}
	for i := range ov.Entities {
		if !clustered[i] {
			writeNode("  ", i)
		}
	}
	b.WriteString("\n")

	for i, ent := range ov.Entities {
		for _, p := range ent.CausalParents {
			fmt.Fprintf(&b, "  %q -> %q;\n", nodeID(p), nodeID(i))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON graph representation with nodes and edges arrays.
func RenderJSON(log *lel.LayeredEventLog, ov *overlay.CausalOverlay) map[string]any {
	nodes := make([]map[string]any, 0, ov.Len())
	for i, ent := range ov.Entities {
		e := log.At(ent.EventIdx)
		n := map[string]any{
			"id":       nodeID(i),
			"event_id": e.ID,
			"kind":     e.Tag(),
			"layer":    e.Layer,
			"step":     e.Temporal.SimulationStep,
		}
		if ent.DAGNode != "" {
			n["dag_node"] = ent.DAGNode
		}
		if name, ok := models.VariableName(e.Kind); ok {
			n["variable"] = name
		}
		nodes = append(nodes, n)
	}

	edges := make([]map[string]any, 0, ov.EdgeCount())
	for i, ent := range ov.Entities {
		for _, p := range ent.CausalParents {
			edges = append(edges, map[string]any{
				"source": nodeID(p),
				"target": nodeID(i),
			})
		}
	}

	groups := make(map[string][]string, len(ov.EntityByDAGNode))
	for dag, members := range ov.EntityByDAGNode {
		ids := make([]string, len(members))
		for j, i := range members {
			ids[j] = nodeID(i)
		}
		groups[dag] = ids
	}

	return map[string]any{
		"experiment_id": log.ExperimentRef().ExperimentID,
		"nodes":         nodes,
		"edges":         edges,
		"dag_groups":    groups,
		"node_count":    len(nodes),
		"edge_count":    len(edges),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
