package convergence

import (
	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
)

// Pattern is a canonical convergence verdict.
type Pattern string

const (
	Converged        Pattern = "converged"
	Oscillating      Pattern = "oscillating"
	Stalled          Pattern = "stalled"
	Divergent        Pattern = "divergent"
	InsufficientData Pattern = "insufficient_data"
)

// Confidence is how directly a verdict was observed.
type Confidence string

const (
	// Direct verdicts were observed firsthand by the producing tool.
	Direct Confidence = "direct"
	// Derived verdicts were computed from other events.
	Derived Confidence = "derived"
	// Absent verdicts have no reliable basis.
	Absent Confidence = "absent"
)

// Canonical is a tool-independent convergence verdict for one event.
type Canonical struct {
	Pattern         Pattern    `json:"pattern" yaml:"pattern"`
	Confidence      Confidence `json:"confidence" yaml:"confidence"`
	SourceMetric    string     `json:"source_metric" yaml:"source_metric"`
	SourceFramework string     `json:"source_framework" yaml:"source_framework"`
}

type flag int

const (
	flagNone flag = iota
	flagTrue
	flagFalse
)

func flagOf(b *bool) flag {
	switch {
	case b == nil:
		return flagNone
	case *b:
		return flagTrue
	}
	return flagFalse
}

type family int

const (
	familyEnergy family = iota + 1
	familySCF
)

func familyOf(framework string) (family, bool) {
	f, ok := constants.ParseFramework(framework)
	switch {
	case !ok:
		return 0, false
	case f.EnergySeries():
		return familyEnergy, true
	}
	return familySCF, true
}

type rule struct {
	family family
	metric string
	flag   flag
}

// rules maps a (framework family, metric, converged flag) triple to its
// verdict. Anything not listed is insufficient data.
var rules = map[rule]Pattern{
	{familyEnergy, constants.MetricConvergenceRelDeltaMax, flagTrue}:   Converged,
	{familyEnergy, constants.MetricOscillationRelDeltaMean, flagFalse}: Oscillating,
	{familyEnergy, constants.MetricStallRelDeltaMean, flagFalse}:       Stalled,
	{familySCF, constants.MetricSCFDelta, flagTrue}:                    Converged,
	{familySCF, constants.MetricSCFDelta, flagNone}:                    InsufficientData,
	{familySCF, constants.MetricSCFOscillation, flagFalse}:             Oscillating,
	{familySCF, constants.MetricSCFStall, flagFalse}:                   Stalled,
}

func confidenceOf(c models.Completeness) Confidence {
	switch c.Type {
	case models.FullyObserved:
		return Direct
	case models.DerivedCompleteness:
		return Derived
	}
	return Absent
}

// HasDivergentStatus reports whether any event in the log records a NaN or
// infinity, or a crash-divergent execution status.
func HasDivergentStatus(log *lel.LayeredEventLog) bool {
	idx := log.Indexes()
	for _, id := range idx.ByKind(models.TagNumericalStatus) {
		e, ok := log.Lookup(id)
		if !ok {
			continue
		}
		if ns, ok := e.Kind.(models.NumericalStatus); ok && ns.EventType.NonFinite() {
			return true
		}
	}
	for _, id := range idx.ByKind(models.TagExecutionStatus) {
		e, ok := log.Lookup(id)
		if !ok {
			continue
		}
		if es, ok := e.Kind.(models.ExecutionStatus); ok && es.Status == models.OutcomeCrashDivergent {
			return true
		}
	}
	return false
}

// Classify maps one event to a canonical verdict. Divergence anywhere in the
// log overrides the event's own metric. Framework names match
// case-insensitively.
func Classify(e *lel.TraceEvent, framework string, log *lel.LayeredEventLog) Canonical {
	return classify(e, framework, HasDivergentStatus(log))
}

// ClassifyAll classifies every convergence point in the log, in append order.
func ClassifyAll(log *lel.LayeredEventLog, framework string) []Canonical {
	divergent := HasDivergentStatus(log)
	ids := log.Indexes().ByKind(models.TagConvergencePoint)
	out := make([]Canonical, 0, len(ids))
	for _, id := range ids {
		if e, ok := log.Lookup(id); ok {
			out = append(out, classify(e, framework, divergent))
		}
	}
	return out
}

func classify(e *lel.TraceEvent, framework string, divergent bool) Canonical {
	c := Canonical{
		SourceMetric:    constants.UnknownMetric,
		SourceFramework: framework,
	}
	cp, isPoint := e.Kind.(models.ConvergencePoint)
	if isPoint {
		c.SourceMetric = cp.MetricName
	}
	fromCompleteness := confidenceOf(e.Confidence.Completeness)

	if divergent {
		c.Pattern, c.Confidence = Divergent, fromCompleteness
		return c
	}

	c.Pattern, c.Confidence = InsufficientData, Absent
	if !isPoint {
		return c
	}
	fam, ok := familyOf(framework)
	if !ok {
		return c
	}
	if p, ok := rules[rule{fam, cp.MetricName, flagOf(cp.Converged)}]; ok {
		c.Pattern, c.Confidence = p, fromCompleteness
	}
	return c
}
