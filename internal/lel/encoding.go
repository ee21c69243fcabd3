package lel

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/trace-semantics/internal/models"
)

// traceEventFields shares every field of TraceEvent but none of its methods,
// so the encoders below can embed it without recursing.
type traceEventFields TraceEvent

type traceEventJSON struct {
	traceEventFields
	Kind models.KindEnvelope `json:"kind"`
}

type traceEventYAML struct {
	traceEventFields `yaml:",inline"`
	Kind             models.KindEnvelope `yaml:"kind"`
}

// MarshalJSON implements json.Marshaler.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(traceEventJSON{
		traceEventFields: traceEventFields(e),
		Kind:             models.KindEnvelope{Kind: e.Kind},
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *TraceEvent) UnmarshalJSON(b []byte) error {
	var w traceEventJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = TraceEvent(w.traceEventFields)
	e.Kind = w.Kind.Kind
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e TraceEvent) MarshalYAML() (any, error) {
	return traceEventYAML{
		traceEventFields: traceEventFields(e),
		Kind:             models.KindEnvelope{Kind: e.Kind},
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *TraceEvent) UnmarshalYAML(node *yaml.Node) error {
	var w traceEventYAML
	if err := node.Decode(&w); err != nil {
		return err
	}
	*e = TraceEvent(w.traceEventFields)
	e.Kind = w.Kind.Kind
	return nil
}
