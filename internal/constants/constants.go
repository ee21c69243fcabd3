// Package constants provides named constants used throughout the trace-semantics codebase.
// This centralizes thresholds and sentinels so analyses and config agree on defaults.
package constants

// Convergence derivation constants
const (
	// DefaultConvergenceWindow is the number of most recent samples a derived
	// convergence summary is computed over. Shorter series yield no summary.
	DefaultConvergenceWindow = 4

	// DefaultRelDeltaThreshold is the relative-delta threshold separating
	// converged from stalled series, and the minimum mean relative delta for
	// an oscillation verdict.
	DefaultRelDeltaThreshold = 1e-4

	// MinSignChanges is the number of delta sign changes that marks a window
	// as oscillating.
	MinSignChanges = 2

	// MinConvergenceWindow is the smallest window whose deltas can show
	// MinSignChanges sign changes.
	MinConvergenceWindow = 4
)

// Derived convergence metric names. Adapters and the classifier agree on
// these strings; a metric outside this set is not classified.
const (
	MetricOscillationRelDeltaMean = "derived_oscillation_rel_delta_mean"
	MetricConvergenceRelDeltaMax  = "derived_convergence_rel_delta_max"
	MetricStallRelDeltaMean       = "derived_stall_rel_delta_mean"

	// MetricSCFDelta is the per-iteration SCF energy change reported by VASP.
	MetricSCFDelta = "dE"

	MetricSCFOscillation = "derived_vasp_scf_oscillation_dE"
	MetricSCFStall       = "derived_vasp_scf_stall_dE"
)

// Sentinels
const (
	// UnknownVariable is reported for comparisons whose prediction id does
	// not resolve against the experiment spec.
	UnknownVariable = "unknown"

	// UnknownMetric is the source metric reported when the classified event
	// is not a convergence point.
	UnknownMetric = "unknown"

	// SyntheticSourceFile names the provenance of producer-less events.
	SyntheticSourceFile = "synthetic"

	// RelativeUnit is the unit of derived relative-delta metrics.
	RelativeUnit = "relative"
)

// Persisted form constants
const (
	// FormatVersion is written into every persisted document.
	FormatVersion = "1.0.0"

	// SupportedFormatConstraint gates which document versions decode.
	SupportedFormatConstraint = "^1.0.0"
)

// Benchmark generator constants
const (
	// BenchDAGNodeCount is the number of distinct DAG nodes synthetic events reference.
	BenchDAGNodeCount = 50

	// BenchParameterCount is the number of distinct parameter names.
	BenchParameterCount = 20
)
