// Package lel implements the layered event log: immutable trace events,
// their secondary indexes and the append-only builder that assigns ids.
package lel

import (
	"fmt"

	"github.com/nvandessel/trace-semantics/internal/models"
)

// TraceEvent is one fully constructed, identified event. Events are never
// mutated after they are appended to a log.
type TraceEvent struct {
	ID       models.EventID                `json:"id" yaml:"id"`
	Layer    models.Layer                  `json:"layer" yaml:"layer"`
	Boundary models.BoundaryClassification `json:"boundary" yaml:"boundary"`
	Kind     models.EventKind              `json:"-" yaml:"-"`
	Temporal models.TemporalCoord          `json:"temporal" yaml:"temporal"`

	// CausalRefs are best-effort references to causally prior events. They
	// are not validated and may name ids absent from the log.
	CausalRefs []models.EventID `json:"causal_refs" yaml:"causal_refs"`

	// DAGNodeRef optionally names a node of the external causal graph.
	DAGNodeRef string `json:"dag_node_ref,omitempty" yaml:"dag_node_ref,omitempty"`

	// SpecRef optionally names the spec element this event realizes.
	SpecRef *models.SpecElementID `json:"spec_ref,omitempty" yaml:"spec_ref,omitempty"`

	Provenance models.ProvenanceAnchor `json:"provenance" yaml:"provenance"`
	Confidence models.ConfidenceMeta   `json:"confidence" yaml:"confidence"`
}

// Tag returns the kind discriminant of the event.
func (e *TraceEvent) Tag() models.KindTag {
	return e.Kind.Tag()
}

// EventDraft accumulates the fields of an event before it receives an id.
// Layer, kind and temporal coordinate are required.
type EventDraft struct {
	layer       models.Layer
	boundary    models.BoundaryClassification
	kind        models.EventKind
	temporal    models.TemporalCoord
	hasTemporal bool
	causalRefs  []models.EventID
	dagNodeRef  string
	specRef     *models.SpecElementID
	provenance  *models.ProvenanceAnchor
	confidence  *models.ConfidenceMeta
}

// NewEvent starts a draft with a primary-layer boundary classification.
func NewEvent() *EventDraft {
	return &EventDraft{boundary: models.PrimaryLayer()}
}

// Layer sets the primary layer. Required.
func (d *EventDraft) Layer(l models.Layer) *EventDraft {
	d.layer = l
	return d
}

// Boundary sets the boundary classification.
func (d *EventDraft) Boundary(b models.BoundaryClassification) *EventDraft {
	d.boundary = b
	return d
}

// Kind sets the typed payload. Required.
func (d *EventDraft) Kind(k models.EventKind) *EventDraft {
	d.kind = k
	return d
}

// Temporal sets when the event occurred. Required.
func (d *EventDraft) Temporal(t models.TemporalCoord) *EventDraft {
	d.temporal = t
	d.hasTemporal = true
	return d
}

// CausalRefs replaces the causal references.
func (d *EventDraft) CausalRefs(ids ...models.EventID) *EventDraft {
	d.causalRefs = ids
	return d
}

// DAGNode sets the DAG node reference.
func (d *EventDraft) DAGNode(node string) *EventDraft {
	d.dagNodeRef = node
	return d
}

// SpecRef sets the spec element reference.
func (d *EventDraft) SpecRef(id models.SpecElementID) *EventDraft {
	d.specRef = &id
	return d
}

// Provenance sets the provenance anchor. Defaults to a synthetic anchor.
func (d *EventDraft) Provenance(p models.ProvenanceAnchor) *EventDraft {
	d.provenance = &p
	return d
}

// Confidence sets confidence metadata. Defaults to fully observed.
func (d *EventDraft) Confidence(c models.ConfidenceMeta) *EventDraft {
	d.confidence = &c
	return d
}

// checkRequired panics when a structural prerequisite is missing. These are
// programmer defects, not runtime conditions, and are never defaulted.
func (d *EventDraft) checkRequired() {
	if d.layer == "" {
		panic("lel: event draft is missing its layer")
	}
	if !d.layer.Valid() {
		panic(fmt.Sprintf("lel: event draft has unknown layer %q", d.layer))
	}
	if d.kind == nil {
		panic("lel: event draft is missing its kind")
	}
	if !models.ValidKind(d.kind) {
		panic(fmt.Sprintf("lel: event draft has unsupported kind %T", d.kind))
	}
	if !d.hasTemporal {
		panic("lel: event draft is missing its temporal coordinate")
	}
}

// finish stamps a validated draft with its id.
func (d *EventDraft) finish(id models.EventID) TraceEvent {
	e := TraceEvent{
		ID:         id,
		Layer:      d.layer,
		Boundary:   d.boundary,
		Kind:       d.kind,
		Temporal:   d.temporal,
		CausalRefs: d.causalRefs,
		DAGNodeRef: d.dagNodeRef,
		SpecRef:    d.specRef,
		Provenance: models.SyntheticProvenance(),
		Confidence: models.FullConfidence(),
	}
	if d.provenance != nil {
		e.Provenance = *d.provenance
	}
	if d.confidence != nil {
		e.Confidence = *d.confidence
	}
	return e
}
