package convergence

import (
	"math"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
)

type sample struct {
	event *lel.TraceEvent
	value float64
}

// window returns the last n samples, or false when fewer exist.
func window(samples []sample, n int) ([]sample, bool) {
	if n < constants.MinConvergenceWindow || len(samples) < n {
		return nil, false
	}
	return samples[len(samples)-n:], true
}

func signChanges(xs []float64) int {
	n := 0
	for i := 1; i < len(xs); i++ {
		if xs[i-1]*xs[i] < 0 {
			n++
		}
	}
	return n
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// DeriveEnergySummary classifies the most recent energy totals in events as
// oscillating, converged or stalled and returns a derived convergence point
// for the caller to append. It returns false when fewer than p.Window energy
// records carry a known scalar total.
func DeriveEnergySummary(events []lel.TraceEvent, sourceFile string, p Params) (*lel.EventDraft, bool) {
	var samples []sample
	for i := range events {
		rec, ok := events[i].Kind.(models.EnergyRecord)
		if !ok {
			continue
		}
		if v, ok := rec.Total.KnownScalar(); ok {
			samples = append(samples, sample{event: &events[i], value: v})
		}
	}
	win, ok := window(samples, p.Window)
	if !ok {
		return nil, false
	}

	deltas := make([]float64, len(win)-1)
	scale := 0.0
	for i, s := range win {
		scale += math.Abs(s.value)
		if i > 0 {
			deltas[i-1] = s.value - win[i-1].value
		}
	}
	// Relative deltas keep the threshold independent of energy units.
	scale = math.Max(1, scale/float64(len(win)))

	rel := make([]float64, len(deltas))
	maxRel := 0.0
	for i, d := range deltas {
		rel[i] = math.Abs(d) / scale
		maxRel = math.Max(maxRel, rel[i])
	}
	meanRel := mean(rel)

	var (
		metric    string
		value     float64
		converged bool
		note      string
	)
	switch {
	case signChanges(deltas) >= constants.MinSignChanges && meanRel > p.RelDeltaThreshold:
		metric, value, note = constants.MetricOscillationRelDeltaMean, meanRel,
			"energy deltas alternate sign across the derivation window"
	case maxRel <= p.RelDeltaThreshold:
		metric, value, converged, note = constants.MetricConvergenceRelDeltaMax, maxRel, true,
			"max relative energy delta is below convergence threshold"
	default:
		metric, value, note = constants.MetricStallRelDeltaMean, meanRel,
			"energy deltas remain above threshold without oscillation"
	}

	refs := make([]models.EventID, 0, len(win)+2)
	for _, s := range win {
		refs = append(refs, s.event.ID)
	}
	if id, ok := latest(events, models.TagExecutionStatus); ok {
		refs = append(refs, id)
	}
	if id, ok := latest(events, models.TagNumericalStatus); ok {
		refs = append(refs, id)
	}

	seq := uint64(1)
	if len(events) > 0 {
		seq = events[len(events)-1].Temporal.LogicalSequence + 1
	}
	return summary(win[len(win)-1].event.Temporal.SimulationStep, seq, metric, value, converged, note, refs, sourceFile), true
}

// DeriveSCFSummary classifies the most recent unconverged SCF dE values in
// events as oscillating or stalled. Steps that already report a converged dE
// point are excluded. It returns false when fewer than p.Window values remain.
func DeriveSCFSummary(events []lel.TraceEvent, sourceFile string, p Params) (*lel.EventDraft, bool) {
	convergedSteps := make(map[uint64]bool)
	for i := range events {
		if cp, ok := events[i].Kind.(models.ConvergencePoint); ok && cp.MetricName == constants.MetricSCFDelta &&
			cp.Converged != nil && *cp.Converged {
			convergedSteps[events[i].Temporal.SimulationStep] = true
		}
	}

	var samples []sample
	for i := range events {
		cp, ok := events[i].Kind.(models.ConvergencePoint)
		if !ok || cp.MetricName != constants.MetricSCFDelta || convergedSteps[events[i].Temporal.SimulationStep] {
			continue
		}
		if v, ok := cp.MetricValue.KnownScalar(); ok {
			samples = append(samples, sample{event: &events[i], value: v})
		}
	}
	win, ok := window(samples, p.Window)
	if !ok {
		return nil, false
	}

	values := make([]float64, len(win))
	for i, s := range win {
		values[i] = s.value
	}
	scale := math.Max(1, math.Abs(values[0]))
	normalized := make([]float64, len(values))
	for i, v := range values {
		normalized[i] = math.Abs(v) / scale
	}
	meanNorm := mean(normalized)

	metric, note := constants.MetricSCFStall, "SCF dE values remain above threshold without oscillation"
	if signChanges(values) >= constants.MinSignChanges && meanNorm > p.RelDeltaThreshold {
		metric, note = constants.MetricSCFOscillation, "SCF dE values alternate sign across the derivation window"
	}

	refs := make([]models.EventID, len(win))
	for i, s := range win {
		refs[i] = s.event.ID
	}
	last := win[len(win)-1].event.Temporal
	return summary(last.SimulationStep, last.LogicalSequence+1, metric, meanNorm, false, note, refs, sourceFile), true
}

func latest(events []lel.TraceEvent, tag models.KindTag) (models.EventID, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Tag() == tag {
			return events[i].ID, true
		}
	}
	return 0, false
}

func summary(step, seq uint64, metric string, value float64, converged bool, note string, refs []models.EventID, sourceFile string) *lel.EventDraft {
	confidence := models.ConfidenceMeta{
		Completeness:  models.DerivedFrom(refs...),
		FieldCoverage: 1.0,
		Notes:         []string{note},
	}
	return lel.NewEvent().
		Layer(models.LayerMethodology).
		Kind(models.ConvergencePoint{
			Iteration:   step,
			MetricName:  metric,
			MetricValue: models.Known(value, constants.RelativeUnit),
			Converged:   models.Bool(converged),
		}).
		Temporal(models.At(step, seq)).
		CausalRefs(refs...).
		Provenance(models.ProvenanceAnchor{SourceFile: sourceFile, SourceLocation: models.ExternalInput()}).
		Confidence(confidence)
}
