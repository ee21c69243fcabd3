package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind discriminates Value variants.
type ValueKind string

const (
	ValueKnown    ValueKind = "known"
	ValueKnownVec ValueKind = "known_vec"
	ValueKnownCat ValueKind = "known_cat"
	ValueHavoc    ValueKind = "havoc"
)

// ValueType is the expected shape of a value that was not observed.
type ValueType string

const (
	TypeScalar      ValueType = "scalar"
	TypeVector      ValueType = "vector"
	TypeCategorical ValueType = "categorical"
)

// HavocReasonType explains why a value is unknown.
type HavocReasonType string

const (
	ReasonNotLogged             HavocReasonType = "not_logged"
	ReasonFrameworkLimitation   HavocReasonType = "framework_limitation"
	ReasonConfigurationOmission HavocReasonType = "configuration_omission"
	ReasonCrashStateGap         HavocReasonType = "crash_state_gap"
	ReasonTemporalGap           HavocReasonType = "temporal_gap"
)

// HavocReason is the reason attached to an unobserved value. LastKnownStep
// and GapSteps are only meaningful for temporal gaps.
type HavocReason struct {
	Type          HavocReasonType `json:"type" yaml:"type"`
	LastKnownStep uint64          `json:"last_known_step,omitempty" yaml:"last_known_step,omitempty"`
	GapSteps      uint64          `json:"gap_steps,omitempty" yaml:"gap_steps,omitempty"`
}

// TemporalGap returns a havoc reason for a window of unrecorded steps.
func TemporalGap(lastKnownStep, gapSteps uint64) HavocReason {
	return HavocReason{Type: ReasonTemporalGap, LastKnownStep: lastKnownStep, GapSteps: gapSteps}
}

// Havoc marks a value that the trace does not contain.
type Havoc struct {
	ExpectedType ValueType   `json:"expected_type" yaml:"expected_type"`
	Reason       HavocReason `json:"reason" yaml:"reason"`
}

// Value is a physical value: a known scalar, vector or category, or an
// explicit havoc marker distinguishing missing data from a genuine zero.
type Value struct {
	Kind     ValueKind `json:"kind" yaml:"kind"`
	Scalar   float64   `json:"scalar,omitempty" yaml:"scalar,omitempty"`
	Vector   []float64 `json:"vector,omitempty" yaml:"vector,omitempty"`
	Unit     string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	Category string    `json:"category,omitempty" yaml:"category,omitempty"`
	Havoc    *Havoc    `json:"havoc,omitempty" yaml:"havoc,omitempty"`
}

func Known(v float64, unit string) Value {
	return Value{Kind: ValueKnown, Scalar: v, Unit: unit}
}

func KnownVec(v []float64, unit string) Value {
	return Value{Kind: ValueKnownVec, Vector: v, Unit: unit}
}

func KnownCat(category string) Value {
	return Value{Kind: ValueKnownCat, Category: category}
}

// Unknown returns a havoc value of the expected type.
func Unknown(expected ValueType, reason HavocReason) Value {
	return Value{Kind: ValueHavoc, Havoc: &Havoc{ExpectedType: expected, Reason: reason}}
}

// KnownScalar returns the scalar and true when v is a known scalar.
func (v Value) KnownScalar() (float64, bool) {
	if v.Kind != ValueKnown {
		return 0, false
	}
	return v.Scalar, true
}

// IsHavoc reports whether v is an explicit "not observed" marker.
func (v Value) IsHavoc() bool {
	return v.Kind == ValueHavoc
}

// String renders the value for reports.
func (v Value) String() string {
	switch v.Kind {
	case ValueKnown:
		return fmt.Sprintf("%g %s", v.Scalar, v.Unit)
	case ValueKnownVec:
		return fmt.Sprintf("%v %s", v.Vector, v.Unit)
	case ValueKnownCat:
		return v.Category
	case ValueHavoc:
		if v.Havoc != nil {
			return fmt.Sprintf("havoc(%s: %s)", v.Havoc.ExpectedType, v.Havoc.Reason.Type)
		}
		return "havoc"
	}
	return "invalid"
}

// jsonFloat encodes non-finite floats as strings because JSON numbers
// cannot represent NaN or infinities. YAML handles them natively.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	return marshalFloat(float64(f), 64), nil
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	v, err := unmarshalFloat(b, 64)
	if err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// jsonFloat32 is jsonFloat for float32 fields, formatted at 32-bit precision.
type jsonFloat32 float32

func (f jsonFloat32) MarshalJSON() ([]byte, error) {
	return marshalFloat(float64(f), 32), nil
}

func (f *jsonFloat32) UnmarshalJSON(b []byte) error {
	v, err := unmarshalFloat(b, 32)
	if err != nil {
		return err
	}
	*f = jsonFloat32(v)
	return nil
}

func marshalFloat(v float64, bits int) []byte {
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`)
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`)
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`)
	}
	return strconv.AppendFloat(nil, v, 'g', -1, bits)
}

func unmarshalFloat(b []byte, bits int) (float64, error) {
	s := string(b)
	if len(b) > 1 && b[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return 0, fmt.Errorf("decoding float: %w", err)
		}
	}
	v, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return 0, fmt.Errorf("decoding float %q: %w", s, err)
	}
	return v, nil
}

type valueJSON struct {
	Kind     ValueKind   `json:"kind"`
	Scalar   *jsonFloat  `json:"scalar,omitempty"`
	Vector   []jsonFloat `json:"vector,omitempty"`
	Unit     string      `json:"unit,omitempty"`
	Category string      `json:"category,omitempty"`
	Havoc    *Havoc      `json:"havoc,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	w := valueJSON{Kind: v.Kind, Unit: v.Unit, Category: v.Category, Havoc: v.Havoc}
	if v.Kind == ValueKnown {
		s := jsonFloat(v.Scalar)
		w.Scalar = &s
	}
	if v.Vector != nil {
		w.Vector = make([]jsonFloat, len(v.Vector))
		for i, x := range v.Vector {
			w.Vector[i] = jsonFloat(x)
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	var w valueJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*v = Value{Kind: w.Kind, Unit: w.Unit, Category: w.Category, Havoc: w.Havoc}
	if w.Scalar != nil {
		v.Scalar = float64(*w.Scalar)
	}
	if w.Vector != nil {
		v.Vector = make([]float64, len(w.Vector))
		for i, x := range w.Vector {
			v.Vector[i] = float64(x)
		}
	}
	return nil
}

// The records below carry bare floats next to Value. They shadow those
// fields with jsonFloat so non-finite measures survive JSON.

// MarshalJSON implements json.Marshaler.
func (m DivergenceMeasure) MarshalJSON() ([]byte, error) {
	type plain DivergenceMeasure
	return json.Marshal(struct {
		plain
		Value jsonFloat `json:"value"`
	}{plain(m), jsonFloat(m.Value)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *DivergenceMeasure) UnmarshalJSON(b []byte) error {
	type plain DivergenceMeasure
	var w struct {
		plain
		Value jsonFloat `json:"value"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = DivergenceMeasure(w.plain)
	m.Value = float64(w.Value)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m MatchStatus) MarshalJSON() ([]byte, error) {
	type plain MatchStatus
	return json.Marshal(struct {
		plain
		Deviation jsonFloat `json:"deviation,omitempty"`
	}{plain(m), jsonFloat(m.Deviation)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MatchStatus) UnmarshalJSON(b []byte) error {
	type plain MatchStatus
	var w struct {
		plain
		Deviation jsonFloat `json:"deviation,omitempty"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = MatchStatus(w.plain)
	m.Deviation = float64(w.Deviation)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p PredictionRecord) MarshalJSON() ([]byte, error) {
	type plain PredictionRecord
	w := struct {
		plain
		Tolerance *jsonFloat `json:"tolerance,omitempty"`
	}{plain: plain(p)}
	if p.Tolerance != nil {
		t := jsonFloat(*p.Tolerance)
		w.Tolerance = &t
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PredictionRecord) UnmarshalJSON(b []byte) error {
	type plain PredictionRecord
	var w struct {
		plain
		Tolerance *jsonFloat `json:"tolerance,omitempty"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = PredictionRecord(w.plain)
	p.Tolerance = nil
	if w.Tolerance != nil {
		t := float64(*w.Tolerance)
		p.Tolerance = &t
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c ConfidenceMeta) MarshalJSON() ([]byte, error) {
	type plain ConfidenceMeta
	return json.Marshal(struct {
		plain
		FieldCoverage jsonFloat32 `json:"field_coverage"`
	}{plain(c), jsonFloat32(c.FieldCoverage)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ConfidenceMeta) UnmarshalJSON(b []byte) error {
	type plain ConfidenceMeta
	var w struct {
		plain
		FieldCoverage jsonFloat32 `json:"field_coverage"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*c = ConfidenceMeta(w.plain)
	c.FieldCoverage = float32(w.FieldCoverage)
	return nil
}
