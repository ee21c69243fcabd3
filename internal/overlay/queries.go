package overlay

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
)

// ConfounderCandidate is a DAG node that causally precedes both the
// observable and the intervention and is not held fixed by the experiment spec.
type ConfounderCandidate struct {
	DAGNode                    string `json:"dag_node" yaml:"dag_node"`
	ObservableAncestorEvents   []int  `json:"observable_ancestor_events" yaml:"observable_ancestor_events"`
	InterventionAncestorEvents []int  `json:"intervention_ancestor_events" yaml:"intervention_ancestor_events"`
}

// DetectConfounders returns the uncontrolled common causes of every event
// naming observableVar and every event naming interventionVar, ordered by DAG
// node name. Unknown variables yield no candidates.
func (o *CausalOverlay) DetectConfounders(log *lel.LayeredEventLog, observableVar, interventionVar string) []ConfounderCandidate {
	idx := log.Indexes()
	if !idx.HasVariable(observableVar) || !idx.HasVariable(interventionVar) {
		return nil
	}

	obsAncestors := o.ancestorSet(log.Positions(idx.ByVariable(observableVar)))
	intAncestors := o.ancestorSet(log.Positions(idx.ByVariable(interventionVar)))

	shared := make([]int, 0)
	for a := range obsAncestors {
		if intAncestors[a] {
			shared = append(shared, a)
		}
	}
	slices.Sort(shared)

	spec := log.Spec()
	grouped := make(map[string]*ConfounderCandidate)
	for _, a := range shared {
		node := o.Entities[a].DAGNode
		if node == "" || node == interventionVar || spec.IsControlled(node) {
			continue
		}
		c, ok := grouped[node]
		if !ok {
			c = &ConfounderCandidate{DAGNode: node}
			grouped[node] = c
		}
		// A shared ancestor contributes to both sides.
		c.ObservableAncestorEvents = append(c.ObservableAncestorEvents, a)
		c.InterventionAncestorEvents = append(c.InterventionAncestorEvents, a)
	}

	out := make([]ConfounderCandidate, 0, len(grouped))
	for _, c := range grouped {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b ConfounderCandidate) int {
		return cmp.Compare(a.DAGNode, b.DAGNode)
	})
	return out
}

func (o *CausalOverlay) ancestorSet(positions []int) map[int]bool {
	set := make(map[int]bool)
	for _, p := range positions {
		for _, a := range o.TransitiveAncestors(p) {
			set[a] = true
		}
	}
	return set
}

// PredictionComparison is a comparison-result event resolved against the
// spec's predictions.
type PredictionComparison struct {
	ComparisonEventIdx int                      `json:"comparison_event_idx" yaml:"comparison_event_idx"`
	PredictionID       *models.SpecElementID    `json:"prediction_id" yaml:"prediction_id"`
	Variable           string                   `json:"variable" yaml:"variable"`
	Outcome            models.ComparisonOutcome `json:"outcome" yaml:"outcome"`
	IsFalsified        bool                     `json:"is_falsified" yaml:"is_falsified"`
	DAGNode            string                   `json:"dag_node,omitempty" yaml:"dag_node,omitempty"`
}

// ComparePredictions returns one record per comparison-result event, in
// append order. A prediction id that does not parse or resolve leaves
// PredictionID nil and Variable set to constants.UnknownVariable.
func (o *CausalOverlay) ComparePredictions(log *lel.LayeredEventLog) []PredictionComparison {
	ids := log.Indexes().ByKind(models.TagComparisonResult)
	out := make([]PredictionComparison, 0, len(ids))
	spec := log.Spec()
	for _, id := range ids {
		pos, ok := log.Indexes().Position(id)
		if !ok {
			continue
		}
		e := log.At(pos)
		cr, ok := e.Kind.(models.ComparisonResult)
		if !ok {
			continue
		}

		pc := PredictionComparison{
			ComparisonEventIdx: pos,
			Variable:           constants.UnknownVariable,
			Outcome:            cr.Result,
			IsFalsified:        !cr.Result.Agreement,
			DAGNode:            e.DAGNodeRef,
		}
		if n, ok := parsePredictionID(cr.PredictionID); ok {
			pid := models.SpecElementID(n)
			pc.PredictionID = &pid
			if p, ok := spec.Prediction(pid); ok {
				pc.Variable = p.Variable
			}
		}
		out = append(out, pc)
	}
	return out
}

// parsePredictionID reads an unsigned decimal id. One leading '+' is
// accepted; signs, spaces and other bases are not.
func parsePredictionID(s string) (uint64, bool) {
	digits := strings.TrimPrefix(s, "+")
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	return n, err == nil
}

// ImplicatedNode is a DAG node upstream of a comparison.
type ImplicatedNode struct {
	DAGNode string       `json:"dag_node" yaml:"dag_node"`
	Layer   models.Layer `json:"layer" yaml:"layer"`

	// CausalDistance is the shallowest depth at which the node was reached.
	CausalDistance int `json:"causal_distance" yaml:"causal_distance"`

	// AncestorEventIndices lists every ancestor position carrying the node,
	// in discovery order.
	AncestorEventIndices []int `json:"ancestor_event_indices" yaml:"ancestor_event_indices"`
}

// ImplicateCausalNodes walks upstream from the comparison event and returns
// the DAG nodes reached, ordered by layer rank (theory first), then by causal
// distance, then by name. Layer is taken from the shallowest occurrence.
func (o *CausalOverlay) ImplicateCausalNodes(log *lel.LayeredEventLog, comparison PredictionComparison) []ImplicatedNode {
	grouped := make(map[string]*ImplicatedNode)
	for _, a := range o.ancestorsWithDepth(comparison.ComparisonEventIdx) {
		node := o.Entities[a.idx].DAGNode
		if node == "" {
			continue
		}
		layer := log.At(a.idx).Layer
		n, ok := grouped[node]
		if !ok {
			grouped[node] = &ImplicatedNode{
				DAGNode:              node,
				Layer:                layer,
				CausalDistance:       a.depth,
				AncestorEventIndices: []int{a.idx},
			}
			continue
		}
		n.AncestorEventIndices = append(n.AncestorEventIndices, a.idx)
		if a.depth < n.CausalDistance {
			n.CausalDistance = a.depth
			n.Layer = layer
		}
	}

	out := make([]ImplicatedNode, 0, len(grouped))
	for _, n := range grouped {
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b ImplicatedNode) int {
		return cmp.Or(
			cmp.Compare(a.Layer.Rank(), b.Layer.Rank()),
			cmp.Compare(a.CausalDistance, b.CausalDistance),
			cmp.Compare(a.DAGNode, b.DAGNode),
		)
	})
	return out
}
