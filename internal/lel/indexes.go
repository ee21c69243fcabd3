package lel

import (
	"maps"
	"slices"

	"github.com/nvandessel/trace-semantics/internal/models"
)

// Indexes are the secondary indexes of a log, updated exactly once per
// appended event. Slices returned by lookups are shared with the index and
// must not be modified.
type Indexes struct {
	byID       map[models.EventID]int
	byLayer    map[models.Layer][]models.EventID
	byKind     map[models.KindTag][]models.EventID
	byStep     map[uint64]models.EventID
	steps      []uint64 // sorted keys of byStep
	byVariable map[string][]models.EventID
	byDAGNode  map[string][]models.EventID
}

func newIndexes(capacity int) *Indexes {
	return &Indexes{
		byID:       make(map[models.EventID]int, capacity),
		byLayer:    make(map[models.Layer][]models.EventID),
		byKind:     make(map[models.KindTag][]models.EventID),
		byStep:     make(map[uint64]models.EventID),
		byVariable: make(map[string][]models.EventID),
		byDAGNode:  make(map[string][]models.EventID),
	}
}

func (x *Indexes) add(e *TraceEvent, position int) {
	x.byID[e.ID] = position
	x.byLayer[e.Layer] = append(x.byLayer[e.Layer], e.ID)
	x.byKind[e.Tag()] = append(x.byKind[e.Tag()], e.ID)

	step := e.Temporal.SimulationStep
	if _, ok := x.byStep[step]; !ok {
		x.byStep[step] = e.ID
		// Traces are almost always step-ordered, so this is usually an append.
		if n := len(x.steps); n == 0 || x.steps[n-1] < step {
			x.steps = append(x.steps, step)
		} else {
			i, _ := slices.BinarySearch(x.steps, step)
			x.steps = slices.Insert(x.steps, i, step)
		}
	}

	if name, ok := models.VariableName(e.Kind); ok {
		x.byVariable[name] = append(x.byVariable[name], e.ID)
	}
	if e.DAGNodeRef != "" {
		x.byDAGNode[e.DAGNodeRef] = append(x.byDAGNode[e.DAGNodeRef], e.ID)
	}
}

// Position returns the log position of id.
func (x *Indexes) Position(id models.EventID) (int, bool) {
	pos, ok := x.byID[id]
	return pos, ok
}

// ByLayer returns the ids of events whose primary layer is l.
func (x *Indexes) ByLayer(l models.Layer) []models.EventID {
	return x.byLayer[l]
}

// ByKind returns the ids of events of the given kind.
func (x *Indexes) ByKind(tag models.KindTag) []models.EventID {
	return x.byKind[tag]
}

// ByVariable returns the ids of parameter and observable events naming v.
func (x *Indexes) ByVariable(v string) []models.EventID {
	return x.byVariable[v]
}

// HasVariable reports whether any event names v.
func (x *Indexes) HasVariable(v string) bool {
	_, ok := x.byVariable[v]
	return ok
}

// ByDAGNode returns the ids of events referencing node.
func (x *Indexes) ByDAGNode(node string) []models.EventID {
	return x.byDAGNode[node]
}

// FirstAtStep returns the first event appended at the given simulation step.
func (x *Indexes) FirstAtStep(step uint64) (models.EventID, bool) {
	id, ok := x.byStep[step]
	return id, ok
}

// StepEntry pairs a simulation step with the first event seen at it.
type StepEntry struct {
	Step    uint64         `json:"step" yaml:"step"`
	EventID models.EventID `json:"event_id" yaml:"event_id"`
}

// StepRange returns, in ascending step order, the first event at every step
// in [from, to].
func (x *Indexes) StepRange(from, to uint64) []StepEntry {
	if from > to {
		return nil
	}
	start, _ := slices.BinarySearch(x.steps, from)
	var out []StepEntry
	for _, step := range x.steps[start:] {
		if step > to {
			break
		}
		out = append(out, StepEntry{Step: step, EventID: x.byStep[step]})
	}
	return out
}

// IndexSnapshot is the persisted form of Indexes.
type IndexSnapshot struct {
	ByID       map[models.EventID]int              `json:"by_id" yaml:"by_id"`
	ByLayer    map[models.Layer][]models.EventID   `json:"by_layer" yaml:"by_layer"`
	ByKind     map[models.KindTag][]models.EventID `json:"by_kind" yaml:"by_kind"`
	ByStep     []StepEntry                         `json:"by_step" yaml:"by_step"`
	ByVariable map[string][]models.EventID         `json:"by_variable" yaml:"by_variable"`
	ByDAGNode  map[string][]models.EventID         `json:"by_dag_node" yaml:"by_dag_node"`
}

// Snapshot copies the indexes into their persisted form.
func (x *Indexes) Snapshot() IndexSnapshot {
	s := IndexSnapshot{
		ByID:       maps.Clone(x.byID),
		ByLayer:    cloneLists(x.byLayer),
		ByKind:     cloneLists(x.byKind),
		ByStep:     make([]StepEntry, 0, len(x.steps)),
		ByVariable: cloneLists(x.byVariable),
		ByDAGNode:  cloneLists(x.byDAGNode),
	}
	for _, step := range x.steps {
		s.ByStep = append(s.ByStep, StepEntry{Step: step, EventID: x.byStep[step]})
	}
	return s
}

// Equal reports whether two snapshots index the same events identically.
func (s IndexSnapshot) Equal(o IndexSnapshot) bool {
	return maps.Equal(s.ByID, o.ByID) &&
		listsEqual(s.ByLayer, o.ByLayer) &&
		listsEqual(s.ByKind, o.ByKind) &&
		slices.Equal(s.ByStep, o.ByStep) &&
		listsEqual(s.ByVariable, o.ByVariable) &&
		listsEqual(s.ByDAGNode, o.ByDAGNode)
}

func cloneLists[K comparable](m map[K][]models.EventID) map[K][]models.EventID {
	out := make(map[K][]models.EventID, len(m))
	for k, ids := range m {
		out[k] = slices.Clone(ids)
	}
	return out
}

func listsEqual[K comparable](a, b map[K][]models.EventID) bool {
	return maps.EqualFunc(a, b, func(x, y []models.EventID) bool {
		return slices.Equal(x, y)
	})
}
