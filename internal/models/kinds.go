package models

// KindTag is the payload-free discriminant of an event kind, used as an
// index key.
type KindTag string

const (
	TagExecutionStatus       KindTag = "execution_status"
	TagExceptionEvent        KindTag = "exception_event"
	TagParameterRecord       KindTag = "parameter_record"
	TagValidationResult      KindTag = "validation_result"
	TagNumericalStatus       KindTag = "numerical_status"
	TagResourceStatus        KindTag = "resource_status"
	TagObservableMeasurement KindTag = "observable_measurement"
	TagSamplingMetadata      KindTag = "sampling_metadata"
	TagComparisonResult      KindTag = "comparison_result"
	TagConvergencePoint      KindTag = "convergence_point"
	TagStateSnapshot         KindTag = "state_snapshot"
	TagEnergyRecord          KindTag = "energy_record"
)

// KindTags lists every tag of the closed taxonomy.
var KindTags = []KindTag{
	TagExecutionStatus,
	TagExceptionEvent,
	TagParameterRecord,
	TagValidationResult,
	TagNumericalStatus,
	TagResourceStatus,
	TagObservableMeasurement,
	TagSamplingMetadata,
	TagComparisonResult,
	TagConvergencePoint,
	TagStateSnapshot,
	TagEnergyRecord,
}

// EventKind is the typed payload of a trace event. The set of
// implementations is closed: only the types in this file satisfy it.
type EventKind interface {
	Tag() KindTag
	eventKind()
}

// ExecutionStatus records that a run completed or terminated abnormally.
type ExecutionStatus struct {
	Status           ExecutionOutcome `json:"status" yaml:"status"`
	FrameworkErrorID string           `json:"framework_error_id,omitempty" yaml:"framework_error_id,omitempty"`
}

// ExceptionEvent is an exception raised by the simulation framework.
type ExceptionEvent struct {
	ExceptionType string   `json:"exception_type" yaml:"exception_type"`
	Component     string   `json:"component" yaml:"component"`
	DSLCallPath   []string `json:"dsl_call_path,omitempty" yaml:"dsl_call_path,omitempty"`
	Message       string   `json:"message" yaml:"message"`
	Severity      Severity `json:"severity" yaml:"severity"`
}

// ParameterRecord is an input parameter with its specified and actual value.
type ParameterRecord struct {
	Name            string          `json:"name" yaml:"name"`
	SpecifiedValue  *Value          `json:"specified_value,omitempty" yaml:"specified_value,omitempty"`
	ActualValue     Value           `json:"actual_value" yaml:"actual_value"`
	Units           string          `json:"units,omitempty" yaml:"units,omitempty"`
	ObservationMode ObservationMode `json:"observation_mode" yaml:"observation_mode"`
}

// ValidationResult compares a parameter's specified and actual values.
type ValidationResult struct {
	ParameterName   string      `json:"parameter_name" yaml:"parameter_name"`
	MatchStatus     MatchStatus `json:"match_status" yaml:"match_status"`
	DeviationDetail string      `json:"deviation_detail,omitempty" yaml:"deviation_detail,omitempty"`
}

// NumericalStatus is a numerical health event.
type NumericalStatus struct {
	EventType        NumericalEventType `json:"event_type" yaml:"event_type"`
	AffectedQuantity string             `json:"affected_quantity" yaml:"affected_quantity"`
	Severity         Severity           `json:"severity" yaml:"severity"`
	Detail           Value              `json:"detail" yaml:"detail"`
}

// ResourceStatus describes the platform and resources of a run.
type ResourceStatus struct {
	PlatformType    string   `json:"platform_type" yaml:"platform_type"`
	DeviceIDs       []string `json:"device_ids,omitempty" yaml:"device_ids,omitempty"`
	MemoryAllocated *Value   `json:"memory_allocated,omitempty" yaml:"memory_allocated,omitempty"`
	MemoryPeak      *Value   `json:"memory_peak,omitempty" yaml:"memory_peak,omitempty"`
	Parallelization string   `json:"parallelization,omitempty" yaml:"parallelization,omitempty"`
	Warnings        []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ObservableMeasurement is a measured observable.
type ObservableMeasurement struct {
	VariableName      string          `json:"variable_name" yaml:"variable_name"`
	MeasurementMethod string          `json:"measurement_method" yaml:"measurement_method"`
	Value             Value           `json:"value" yaml:"value"`
	Uncertainty       *Value          `json:"uncertainty,omitempty" yaml:"uncertainty,omitempty"`
	Conditions        string          `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	ObservationMode   ObservationMode `json:"observation_mode" yaml:"observation_mode"`
}

// SamplingMetadata describes how observables were sampled.
type SamplingMetadata struct {
	SampleCount         uint64  `json:"sample_count" yaml:"sample_count"`
	SamplingMethod      string  `json:"sampling_method" yaml:"sampling_method"`
	EquilibrationSteps  *uint64 `json:"equilibration_steps,omitempty" yaml:"equilibration_steps,omitempty"`
	AutocorrelationTime *Value  `json:"autocorrelation_time,omitempty" yaml:"autocorrelation_time,omitempty"`
	StatisticalPower    *Value  `json:"statistical_power,omitempty" yaml:"statistical_power,omitempty"`
}

// ComparisonResult is a derived prediction-observation comparison.
// PredictionID is the decimal form of a spec prediction id as written by the
// producer; it is resolved lazily and may not parse.
type ComparisonResult struct {
	PredictionID  string            `json:"prediction_id" yaml:"prediction_id"`
	ObservationID EventID           `json:"observation_id" yaml:"observation_id"`
	Result        ComparisonOutcome `json:"result" yaml:"result"`
}

// ConvergencePoint is one point of a convergence trajectory (SCF, ionic,
// constraint) or a derived summary of one.
type ConvergencePoint struct {
	Iteration   uint64 `json:"iteration" yaml:"iteration"`
	MetricName  string `json:"metric_name" yaml:"metric_name"`
	MetricValue Value  `json:"metric_value" yaml:"metric_value"`
	Converged   *bool  `json:"converged,omitempty" yaml:"converged,omitempty"`
}

// StateSnapshot references captured coordinates, velocities or forces.
type StateSnapshot struct {
	SnapshotType SnapshotType `json:"snapshot_type" yaml:"snapshot_type"`
	DataRef      string       `json:"data_ref" yaml:"data_ref"`
}

// EnergyComponent is one named term of an energy decomposition.
type EnergyComponent struct {
	Name  string `json:"name" yaml:"name"`
	Value Value  `json:"value" yaml:"value"`
}

// EnergyRecord is the energy decomposition at a timestep.
type EnergyRecord struct {
	Total      Value             `json:"total" yaml:"total"`
	Components []EnergyComponent `json:"components,omitempty" yaml:"components,omitempty"`
}

func (ExecutionStatus) Tag() KindTag       { return TagExecutionStatus }
func (ExceptionEvent) Tag() KindTag        { return TagExceptionEvent }
func (ParameterRecord) Tag() KindTag       { return TagParameterRecord }
func (ValidationResult) Tag() KindTag      { return TagValidationResult }
func (NumericalStatus) Tag() KindTag       { return TagNumericalStatus }
func (ResourceStatus) Tag() KindTag        { return TagResourceStatus }
func (ObservableMeasurement) Tag() KindTag { return TagObservableMeasurement }
func (SamplingMetadata) Tag() KindTag      { return TagSamplingMetadata }
func (ComparisonResult) Tag() KindTag      { return TagComparisonResult }
func (ConvergencePoint) Tag() KindTag      { return TagConvergencePoint }
func (StateSnapshot) Tag() KindTag         { return TagStateSnapshot }
func (EnergyRecord) Tag() KindTag          { return TagEnergyRecord }

func (ExecutionStatus) eventKind()       {}
func (ExceptionEvent) eventKind()        {}
func (ParameterRecord) eventKind()       {}
func (ValidationResult) eventKind()      {}
func (NumericalStatus) eventKind()       {}
func (ResourceStatus) eventKind()        {}
func (ObservableMeasurement) eventKind() {}
func (SamplingMetadata) eventKind()      {}
func (ComparisonResult) eventKind()      {}
func (ConvergencePoint) eventKind()      {}
func (StateSnapshot) eventKind()         {}
func (EnergyRecord) eventKind()          {}

// ValidKind reports whether k is one of the twelve kind values. Pointers to
// kind structs satisfy EventKind but are not valid payloads.
func ValidKind(k EventKind) bool {
	switch k.(type) {
	case ExecutionStatus, ExceptionEvent, ParameterRecord, ValidationResult,
		NumericalStatus, ResourceStatus, ObservableMeasurement, SamplingMetadata,
		ComparisonResult, ConvergencePoint, StateSnapshot, EnergyRecord:
		return true
	}
	return false
}

// VariableName returns the variable a kind is indexed under, if any.
// Only parameter records and observable measurements name variables.
func VariableName(k EventKind) (string, bool) {
	switch k := k.(type) {
	case ParameterRecord:
		return k.Name, true
	case ObservableMeasurement:
		return k.VariableName, true
	}
	return "", false
}

// Bool returns a pointer to b, for optional flags such as Converged.
func Bool(b bool) *bool { return &b }
