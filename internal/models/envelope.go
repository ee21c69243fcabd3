package models

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// KindEnvelope wraps an EventKind for field-labeled encoding as
// {"type": <tag>, "payload": {...}}.
type KindEnvelope struct {
	Kind EventKind
}

type envelopeJSON struct {
	Type    KindTag         `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type envelopeYAML struct {
	Type    KindTag   `yaml:"type"`
	Payload yaml.Node `yaml:"payload"`
}

// MarshalJSON implements json.Marshaler.
func (e KindEnvelope) MarshalJSON() ([]byte, error) {
	if e.Kind == nil {
		return nil, fmt.Errorf("encoding event kind: kind is nil")
	}
	payload, err := json.Marshal(e.Kind)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", e.Kind.Tag(), err)
	}
	return json.Marshal(envelopeJSON{Type: e.Kind.Tag(), Payload: payload})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *KindEnvelope) UnmarshalJSON(b []byte) error {
	var w envelopeJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	k, err := DecodeKind(w.Type, func(v any) error { return json.Unmarshal(w.Payload, v) })
	if err != nil {
		return err
	}
	e.Kind = k
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (e KindEnvelope) MarshalYAML() (any, error) {
	if e.Kind == nil {
		return nil, fmt.Errorf("encoding event kind: kind is nil")
	}
	return struct {
		Type    KindTag   `yaml:"type"`
		Payload EventKind `yaml:"payload"`
	}{e.Kind.Tag(), e.Kind}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *KindEnvelope) UnmarshalYAML(node *yaml.Node) error {
	var w envelopeYAML
	if err := node.Decode(&w); err != nil {
		return err
	}
	k, err := DecodeKind(w.Type, w.Payload.Decode)
	if err != nil {
		return err
	}
	e.Kind = k
	return nil
}

// DecodeKind decodes a payload into the concrete kind named by tag.
func DecodeKind(tag KindTag, decode func(any) error) (EventKind, error) {
	switch tag {
	case TagExecutionStatus:
		return decodeAs[ExecutionStatus](decode)
	case TagExceptionEvent:
		return decodeAs[ExceptionEvent](decode)
	case TagParameterRecord:
		return decodeAs[ParameterRecord](decode)
	case TagValidationResult:
		return decodeAs[ValidationResult](decode)
	case TagNumericalStatus:
		return decodeAs[NumericalStatus](decode)
	case TagResourceStatus:
		return decodeAs[ResourceStatus](decode)
	case TagObservableMeasurement:
		return decodeAs[ObservableMeasurement](decode)
	case TagSamplingMetadata:
		return decodeAs[SamplingMetadata](decode)
	case TagComparisonResult:
		return decodeAs[ComparisonResult](decode)
	case TagConvergencePoint:
		return decodeAs[ConvergencePoint](decode)
	case TagStateSnapshot:
		return decodeAs[StateSnapshot](decode)
	case TagEnergyRecord:
		return decodeAs[EnergyRecord](decode)
	}
	return nil, fmt.Errorf("unknown event kind %q", tag)
}

func decodeAs[T EventKind](decode func(any) error) (EventKind, error) {
	var k T
	if err := decode(&k); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", k.Tag(), err)
	}
	return k, nil
}
