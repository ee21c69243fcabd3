// Package overlay projects a layered event log into an index-addressed causal
// graph. Entities are addressed by log position; causal-reference ids are
// resolved once at construction so traversals never touch the id index.
package overlay

import (
	"maps"
	"slices"

	"github.com/nvandessel/trace-semantics/internal/lel"
)

// Entity is the overlay view of one event.
type Entity struct {
	// EventIdx is the position of the event in the log. It always equals the
	// entity's own position in the overlay.
	EventIdx int `json:"event_idx" yaml:"event_idx"`

	// DAGNode is the event's DAG node reference, or empty.
	DAGNode string `json:"dag_node,omitempty" yaml:"dag_node,omitempty"`

	// CausalParents are the log positions of resolved causal references.
	// Dangling references are dropped.
	CausalParents []int `json:"causal_parents" yaml:"causal_parents"`
}

// CausalOverlay is a read-only causal graph over one log.
type CausalOverlay struct {
	Entities        []Entity         `json:"entities" yaml:"entities"`
	EntityByDAGNode map[string][]int `json:"entity_by_dag_node" yaml:"entity_by_dag_node"`
}

// FromLog builds the overlay in a single pass over the log.
func FromLog(log *lel.LayeredEventLog) *CausalOverlay {
	n := log.Len()
	o := &CausalOverlay{
		Entities:        make([]Entity, 0, n),
		EntityByDAGNode: make(map[string][]int),
	}
	idx := log.Indexes()
	for i, e := range log.Events() {
		parents := make([]int, 0, len(e.CausalRefs))
		for _, ref := range e.CausalRefs {
			if pos, ok := idx.Position(ref); ok {
				parents = append(parents, pos)
			}
		}
		if e.DAGNodeRef != "" {
			o.EntityByDAGNode[e.DAGNodeRef] = append(o.EntityByDAGNode[e.DAGNodeRef], i)
		}
		o.Entities = append(o.Entities, Entity{
			EventIdx:      i,
			DAGNode:       e.DAGNodeRef,
			CausalParents: parents,
		})
	}
	return o
}

// Len returns the number of entities, which equals the log length.
func (o *CausalOverlay) Len() int {
	return len(o.Entities)
}

// Entity returns the entity at position i.
func (o *CausalOverlay) Entity(i int) (*Entity, bool) {
	if i < 0 || i >= len(o.Entities) {
		return nil, false
	}
	return &o.Entities[i], true
}

// EdgeCount returns the total number of resolved causal edges.
func (o *CausalOverlay) EdgeCount() int {
	n := 0
	for i := range o.Entities {
		n += len(o.Entities[i].CausalParents)
	}
	return n
}

// TransitiveAncestors returns every entity reachable from start over
// causal-parent edges, excluding start, in breadth-first discovery order.
// Each ancestor appears once even when the graph has cycles. An out-of-range
// start yields nil.
func (o *CausalOverlay) TransitiveAncestors(start int) []int {
	walked := o.ancestorsWithDepth(start)
	if walked == nil {
		return nil
	}
	out := make([]int, len(walked))
	for i, a := range walked {
		out[i] = a.idx
	}
	return out
}

type ancestor struct {
	idx   int
	depth int
}

// ancestorsWithDepth is the breadth-first walk shared by ancestor and
// implication queries. Direct parents have depth 1.
func (o *CausalOverlay) ancestorsWithDepth(start int) []ancestor {
	root, ok := o.Entity(start)
	if !ok {
		return nil
	}

	// start is pre-visited so a cycle back to it is not reported.
	visited := map[int]bool{start: true}
	queue := make([]ancestor, 0, len(root.CausalParents))
	for _, p := range root.CausalParents {
		queue = append(queue, ancestor{idx: p, depth: 1})
	}

	out := []ancestor{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.idx] {
			continue
		}
		visited[cur.idx] = true
		out = append(out, cur)
		for _, p := range o.Entities[cur.idx].CausalParents {
			if !visited[p] {
				queue = append(queue, ancestor{idx: p, depth: cur.depth + 1})
			}
		}
	}
	return out
}

// Equal reports whether two overlays have identical entities and DAG
// groupings.
func (o *CausalOverlay) Equal(p *CausalOverlay) bool {
	if len(o.Entities) != len(p.Entities) {
		return false
	}
	for i := range o.Entities {
		a, b := &o.Entities[i], &p.Entities[i]
		if a.EventIdx != b.EventIdx || a.DAGNode != b.DAGNode || !slices.Equal(a.CausalParents, b.CausalParents) {
			return false
		}
	}
	return maps.EqualFunc(o.EntityByDAGNode, p.EntityByDAGNode, func(x, y []int) bool {
		return slices.Equal(x, y)
	})
}
