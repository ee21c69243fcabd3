package adapter

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/convergence"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
)

// EnergySeriesName is the registry key of the energy series adapter.
const EnergySeriesName = "energy"

const (
	// kineticEnergy is the fixed kinetic component reported for every sample.
	kineticEnergy = 12500.3
	// nsPerStep converts steps to wall-clock nanoseconds.
	nsPerStep = 1500
)

// EnergySeries reads "<step> <total energy>" lines from an OpenMM-style
// state reporter. Blank lines, comments and malformed lines are skipped.
type EnergySeries struct {
	opts Options
}

// NewEnergySeries returns an energy series adapter.
func NewEnergySeries(opts Options) *EnergySeries {
	return &EnergySeries{opts: opts.withDefaults("simulation.log")}
}

func (a *EnergySeries) Name() string                   { return EnergySeriesName }
func (a *EnergySeries) Framework() constants.Framework { return constants.FrameworkOpenMM }

type energySample struct {
	step   uint64
	energy float64
	src    line
}

func parseEnergySeries(lines []line) []energySample {
	var out []energySample
	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			continue
		}
		step, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		energy, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		out = append(out, energySample{step: step, energy: energy, src: l})
	}
	return out
}

// Parse builds the log: run parameters, the platform, one energy record per
// sample, the execution status and a derived convergence summary when the
// series fills the derivation window.
func (a *EnergySeries) Parse(ctx context.Context, raw io.Reader) (*lel.LayeredEventLog, error) {
	lines, err := readLines(ctx, raw, a.Name())
	if err != nil {
		return nil, err
	}
	samples := parseEnergySeries(lines)
	if len(samples) == 0 {
		return nil, &Error{Kind: ErrParse, Adapter: a.Name(), Msg: "no energy samples found"}
	}

	src := a.opts.SourceFile
	header := models.ProvenanceAnchor{SourceFile: src, SourceLocation: models.LineRange(1, 1)}
	spec := models.ExperimentSpec{
		ControlledVariables: []models.ControlledVariable{
			{ID: 1, Parameter: "temperature", HeldValue: models.Known(300, "K")},
		},
		Provenance: models.ProvenanceAnchor{SourceFile: "experiment_spec.json", SourceLocation: models.ExternalInput()},
	}
	b := lel.NewBuilder(a.opts.ref(), spec, lel.WithCapacity(len(samples)+5))

	forceField := models.KnownCat("amber14-all")
	b.Append(lel.NewEvent().
		Layer(models.LayerTheory).
		Kind(models.ParameterRecord{
			Name:            "force_field",
			SpecifiedValue:  &forceField,
			ActualValue:     forceField,
			ObservationMode: models.Observational,
		}).
		Temporal(models.At(0, 1).WithWallClock(0)).
		DAGNode("force_field").
		Provenance(header))

	timestep := models.Known(0.002, "ps")
	b.Append(lel.NewEvent().
		Layer(models.LayerMethodology).
		Boundary(models.DualAnnotated(models.LayerImplementation, "timestep affects both sampling methodology and numerical stability")).
		Kind(models.ParameterRecord{
			Name:            "timestep",
			SpecifiedValue:  &timestep,
			ActualValue:     timestep,
			Units:           "ps",
			ObservationMode: models.Observational,
		}).
		Temporal(models.At(0, 2).WithWallClock(100)).
		DAGNode("timestep").
		Provenance(header))

	memory := models.Known(2048, "MB")
	resource := b.Append(lel.NewEvent().
		Layer(models.LayerImplementation).
		Kind(models.ResourceStatus{
			PlatformType:    "CUDA",
			DeviceIDs:       []string{"GPU:0"},
			MemoryAllocated: &memory,
			Parallelization: "SingleGPU",
		}).
		Temporal(models.At(0, 3).WithWallClock(500)).
		DAGNode("platform").
		Provenance(header))

	seq := uint64(4)
	var last models.EventID
	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last = b.Append(lel.NewEvent().
			Layer(models.LayerImplementation).
			Kind(models.EnergyRecord{
				Total: models.Known(s.energy, "kJ/mol"),
				Components: []models.EnergyComponent{
					{Name: "kinetic", Value: models.Known(kineticEnergy, "kJ/mol")},
					{Name: "potential", Value: models.Known(s.energy-kineticEnergy, "kJ/mol")},
				},
			}).
			Temporal(models.At(s.step, seq).WithWallClock(s.step*nsPerStep)).
			CausalRefs(resource).
			Provenance(s.src.provenance(src)))
		seq++
	}

	finalStep := samples[len(samples)-1].step
	b.Append(lel.NewEvent().
		Layer(models.LayerImplementation).
		Kind(models.ExecutionStatus{Status: models.OutcomeSuccess}).
		Temporal(models.At(finalStep, seq).WithWallClock(finalStep*nsPerStep)).
		CausalRefs(last).
		Provenance(header))

	if draft, ok := convergence.DeriveEnergySummary(b.Events(), src, a.opts.Params); ok {
		b.Append(draft)
	}
	return b.Build(), nil
}
