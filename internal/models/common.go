// Package models defines the primitive types of the layered event log IR:
// identifiers, layers, temporal coordinates, provenance and confidence
// metadata, observed values, experiment specifications and the closed set of
// event kinds.
package models

import (
	"fmt"

	"github.com/nvandessel/trace-semantics/internal/constants"
)

// EventID uniquely identifies a trace event within a log. IDs are issued
// monotonically by an allocator; issuance order need not match log position.
type EventID uint64

// SpecElementID identifies an element of an experiment specification
// (precondition, prediction, intervention, controlled variable).
type SpecElementID uint64

// ElementID is a generic element reference used by derived completeness.
type ElementID uint64

// Layer is the primary classification axis of every IR element.
type Layer string

const (
	LayerTheory         Layer = "theory"
	LayerMethodology    Layer = "methodology"
	LayerImplementation Layer = "implementation"
)

// Layers lists every layer in diagnostic priority order.
var Layers = []Layer{LayerTheory, LayerMethodology, LayerImplementation}

// Valid reports whether l is one of the three known layers.
func (l Layer) Valid() bool {
	switch l {
	case LayerTheory, LayerMethodology, LayerImplementation:
		return true
	}
	return false
}

// Rank orders layers for diagnosis: theory first, implementation last.
// Unknown layers sort after every known layer.
func (l Layer) Rank() int {
	switch l {
	case LayerTheory:
		return 0
	case LayerMethodology:
		return 1
	case LayerImplementation:
		return 2
	}
	return 3
}

// BoundaryType discriminates BoundaryClassification variants.
type BoundaryType string

const (
	BoundaryPrimaryLayer     BoundaryType = "primary_layer"
	BoundaryDualAnnotated    BoundaryType = "dual_annotated"
	BoundaryContextDependent BoundaryType = "context_dependent"
)

// BoundaryClassification records whether an element belongs unambiguously to
// its primary layer, is also relevant to a secondary layer, or depends on the
// simulated system.
type BoundaryClassification struct {
	Type BoundaryType `json:"type" yaml:"type"`

	// SecondaryLayer and Rationale are set for dual-annotated elements.
	SecondaryLayer Layer  `json:"secondary_layer,omitempty" yaml:"secondary_layer,omitempty"`
	Rationale      string `json:"rationale,omitempty" yaml:"rationale,omitempty"`

	// DefaultLayer and ContextNote are set for context-dependent elements.
	DefaultLayer Layer  `json:"default_layer,omitempty" yaml:"default_layer,omitempty"`
	ContextNote  string `json:"context_note,omitempty" yaml:"context_note,omitempty"`
}

// PrimaryLayer returns the unambiguous boundary classification.
func PrimaryLayer() BoundaryClassification {
	return BoundaryClassification{Type: BoundaryPrimaryLayer}
}

// DualAnnotated returns a classification cross-referencing a secondary layer.
func DualAnnotated(secondary Layer, rationale string) BoundaryClassification {
	return BoundaryClassification{Type: BoundaryDualAnnotated, SecondaryLayer: secondary, Rationale: rationale}
}

// ContextDependent returns a classification whose layer depends on the system.
func ContextDependent(defaultLayer Layer, note string) BoundaryClassification {
	return BoundaryClassification{Type: BoundaryContextDependent, DefaultLayer: defaultLayer, ContextNote: note}
}

// ObservationMode distinguishes interventional from observational data.
type ObservationMode string

const (
	Interventional ObservationMode = "interventional"
	Observational  ObservationMode = "observational"
)

// TemporalCoord places an event in three coordinate systems.
type TemporalCoord struct {
	// SimulationStep is the MD step or the ionic/SCF iteration.
	SimulationStep uint64 `json:"simulation_step" yaml:"simulation_step"`
	// WallClockNs is nanoseconds since experiment start, when known.
	WallClockNs *uint64 `json:"wall_clock_ns,omitempty" yaml:"wall_clock_ns,omitempty"`
	// LogicalSequence is assigned by the producer during construction.
	LogicalSequence uint64 `json:"logical_sequence" yaml:"logical_sequence"`
}

// At is shorthand for a temporal coordinate without wall-clock time.
func At(step, sequence uint64) TemporalCoord {
	return TemporalCoord{SimulationStep: step, LogicalSequence: sequence}
}

// WithWallClock returns a copy of t carrying the given wall-clock offset.
func (t TemporalCoord) WithWallClock(ns uint64) TemporalCoord {
	t.WallClockNs = &ns
	return t
}

// Equal reports whether two coordinates are identical.
func (t TemporalCoord) Equal(o TemporalCoord) bool {
	if t.SimulationStep != o.SimulationStep || t.LogicalSequence != o.LogicalSequence {
		return false
	}
	if (t.WallClockNs == nil) != (o.WallClockNs == nil) {
		return false
	}
	return t.WallClockNs == nil || *t.WallClockNs == *o.WallClockNs
}

// SourceLocationType discriminates SourceLocation variants.
type SourceLocationType string

const (
	LocationLineRange     SourceLocationType = "line_range"
	LocationXPath         SourceLocationType = "xpath"
	LocationBinaryOffset  SourceLocationType = "binary_offset"
	LocationAPIQuery      SourceLocationType = "api_query"
	LocationExternalInput SourceLocationType = "external_input"
)

// SourceLocation points into a raw trace file.
type SourceLocation struct {
	Type SourceLocationType `json:"type" yaml:"type"`

	// Start and End bound a line range; Start and Length bound a byte range.
	Start  uint64 `json:"start,omitempty" yaml:"start,omitempty"`
	End    uint64 `json:"end,omitempty" yaml:"end,omitempty"`
	Length uint64 `json:"length,omitempty" yaml:"length,omitempty"`

	// Expr holds the XPath expression or API query.
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`
}

func LineRange(start, end uint64) SourceLocation {
	return SourceLocation{Type: LocationLineRange, Start: start, End: end}
}

func XPath(expr string) SourceLocation {
	return SourceLocation{Type: LocationXPath, Expr: expr}
}

func BinaryOffset(start, length uint64) SourceLocation {
	return SourceLocation{Type: LocationBinaryOffset, Start: start, Length: length}
}

func APIQuery(query string) SourceLocation {
	return SourceLocation{Type: LocationAPIQuery, Expr: query}
}

func ExternalInput() SourceLocation {
	return SourceLocation{Type: LocationExternalInput}
}

// String renders the location for logs and reports.
func (s SourceLocation) String() string {
	switch s.Type {
	case LocationLineRange:
		return fmt.Sprintf("lines %d-%d", s.Start, s.End)
	case LocationXPath:
		return "xpath " + s.Expr
	case LocationBinaryOffset:
		return fmt.Sprintf("bytes %d+%d", s.Start, s.Length)
	case LocationAPIQuery:
		return "api " + s.Expr
	default:
		return "external input"
	}
}

// ProvenanceAnchor ties an IR element back to its raw trace source.
type ProvenanceAnchor struct {
	SourceFile     string         `json:"source_file" yaml:"source_file"`
	SourceLocation SourceLocation `json:"source_location" yaml:"source_location"`
	RawHash        uint64         `json:"raw_hash" yaml:"raw_hash"`
}

// SyntheticProvenance is the anchor used when a producer supplies none.
func SyntheticProvenance() ProvenanceAnchor {
	return ProvenanceAnchor{SourceFile: constants.SyntheticSourceFile, SourceLocation: ExternalInput()}
}

// ExperimentRef links a log to its experiment and cycle.
type ExperimentRef struct {
	ExperimentID string `json:"experiment_id" yaml:"experiment_id"`
	CycleID      uint32 `json:"cycle_id" yaml:"cycle_id"`
	HypothesisID string `json:"hypothesis_id" yaml:"hypothesis_id"`
}

// CompletenessType discriminates Completeness variants.
type CompletenessType string

const (
	FullyObserved       CompletenessType = "fully_observed"
	PartiallyInferred   CompletenessType = "partially_inferred"
	ExternallyProvided  CompletenessType = "externally_provided"
	DerivedCompleteness CompletenessType = "derived"
)

// Completeness classifies how an element's data was obtained.
type Completeness struct {
	Type CompletenessType `json:"type" yaml:"type"`

	// InferenceMethod is set for partially inferred data.
	InferenceMethod string `json:"inference_method,omitempty" yaml:"inference_method,omitempty"`

	// FromElements lists the inputs of derived data.
	FromElements []ElementID `json:"from_elements,omitempty" yaml:"from_elements,omitempty"`
}

// DerivedFrom returns derived completeness over the given event ids.
func DerivedFrom(ids ...EventID) Completeness {
	from := make([]ElementID, len(ids))
	for i, id := range ids {
		from[i] = ElementID(id)
	}
	return Completeness{Type: DerivedCompleteness, FromElements: from}
}

// ConfidenceMeta carries the classification confidence of an element.
type ConfidenceMeta struct {
	Completeness  Completeness `json:"completeness" yaml:"completeness"`
	FieldCoverage float32      `json:"field_coverage" yaml:"field_coverage"`
	Notes         []string     `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// FullConfidence is the confidence used when a producer supplies none.
func FullConfidence() ConfidenceMeta {
	return ConfidenceMeta{
		Completeness:  Completeness{Type: FullyObserved},
		FieldCoverage: 1.0,
	}
}
