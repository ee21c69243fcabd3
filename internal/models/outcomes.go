package models

// ExecutionOutcome is the completion or failure state of a run.
type ExecutionOutcome string

const (
	OutcomeSuccess        ExecutionOutcome = "success"
	OutcomeCrashDivergent ExecutionOutcome = "crash_divergent"
	OutcomeTimeout        ExecutionOutcome = "timeout"
	OutcomeFrameworkError ExecutionOutcome = "framework_error"
)

// Severity is the standard severity ladder.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// NumericalEventType classifies numerical health events.
type NumericalEventType string

const (
	NumericalNaNDetected        NumericalEventType = "nan_detected"
	NumericalInfDetected        NumericalEventType = "inf_detected"
	NumericalLargeForce         NumericalEventType = "large_force"
	NumericalEnergyDrift        NumericalEventType = "energy_drift"
	NumericalConvergenceFailure NumericalEventType = "convergence_failure"
)

// NonFinite reports whether the event records a NaN or an infinity.
func (t NumericalEventType) NonFinite() bool {
	return t == NumericalNaNDetected || t == NumericalInfDetected
}

// MatchType discriminates parameter validation outcomes.
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchWithinTolerance MatchType = "within_tolerance"
	MatchMismatch        MatchType = "mismatch"
)

// MatchStatus is a parameter validation result. Deviation is unset for
// exact matches.
type MatchStatus struct {
	Type      MatchType `json:"type" yaml:"type"`
	Deviation float64   `json:"deviation,omitempty" yaml:"deviation,omitempty"`
}

// SnapshotType selects what a state snapshot captured.
type SnapshotType string

const (
	SnapshotCoordinates SnapshotType = "coordinates"
	SnapshotVelocities  SnapshotType = "velocities"
	SnapshotForces      SnapshotType = "forces"
	SnapshotFull        SnapshotType = "full"
)

// DivergenceType names the measure used to compare prediction and observation.
type DivergenceType string

const (
	DivergenceAbsoluteDifference DivergenceType = "absolute_difference"
	DivergenceZScore             DivergenceType = "z_score"
	DivergenceBayesFactor        DivergenceType = "bayes_factor"
	DivergenceKL                 DivergenceType = "kl_divergence"
	DivergenceEffectSize         DivergenceType = "effect_size"
	DivergenceCustom             DivergenceType = "custom"
)

// DivergenceMeasure is a pluggable prediction-observation distance. Name is
// set only for custom measures.
type DivergenceMeasure struct {
	Type  DivergenceType `json:"type" yaml:"type"`
	Name  string         `json:"name,omitempty" yaml:"name,omitempty"`
	Value float64        `json:"value" yaml:"value"`
}

// ComparisonOutcome is the result of comparing a prediction with an observation.
type ComparisonOutcome struct {
	Agreement  bool               `json:"agreement" yaml:"agreement"`
	Divergence *DivergenceMeasure `json:"divergence,omitempty" yaml:"divergence,omitempty"`
	Detail     string             `json:"detail" yaml:"detail"`
}
