// Package analysis runs the causal and convergence analyses over a layered
// event log and collects their results into a report.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/convergence"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/logging"
	"github.com/nvandessel/trace-semantics/internal/models"
	"github.com/nvandessel/trace-semantics/internal/overlay"
	"github.com/nvandessel/trace-semantics/internal/telemetry"
)

// Implication lists the DAG nodes upstream of one falsified comparison.
type Implication struct {
	Comparison overlay.PredictionComparison `json:"comparison" yaml:"comparison"`
	Nodes      []overlay.ImplicatedNode     `json:"nodes" yaml:"nodes"`
}

// ConfounderSet holds the candidates found for one observable and
// intervention pair.
type ConfounderSet struct {
	Observable   string                        `json:"observable" yaml:"observable"`
	Intervention string                        `json:"intervention" yaml:"intervention"`
	Candidates   []overlay.ConfounderCandidate `json:"candidates" yaml:"candidates"`
}

// Verdict is the canonical classification of one convergence point.
type Verdict struct {
	EventID models.EventID `json:"event_id" yaml:"event_id"`
	convergence.Canonical `yaml:",inline"`
}

// Report is the outcome of one analysis run.
type Report struct {
	ExperimentRef models.ExperimentRef `json:"experiment_ref" yaml:"experiment_ref"`
	Framework     string               `json:"framework" yaml:"framework"`
	EventCount    int                  `json:"event_count" yaml:"event_count"`
	EntityCount   int                  `json:"entity_count" yaml:"entity_count"`
	EdgeCount     int                  `json:"edge_count" yaml:"edge_count"`

	// DerivedSummary is set when the runner appended a convergence summary
	// the input log did not carry.
	DerivedSummary bool `json:"derived_summary" yaml:"derived_summary"`

	Comparisons  []overlay.PredictionComparison `json:"comparisons" yaml:"comparisons"`
	Implications []Implication                  `json:"implications" yaml:"implications"`
	Confounders  []ConfounderSet                `json:"confounders" yaml:"confounders"`
	Convergence  []Verdict                      `json:"convergence" yaml:"convergence"`

	// Log is the analyzed log, including any derived summary.
	Log *lel.LayeredEventLog `json:"-" yaml:"-"`
	// Overlay is the causal overlay built over Log.
	Overlay *overlay.CausalOverlay `json:"-" yaml:"-"`
}

// Runner composes the analyses. The zero value is not usable; create one
// with NewRunner.
type Runner struct {
	params    convergence.Params
	framework string
	logger    *slog.Logger
	findings  *logging.FindingsLogger
	telemetry *telemetry.Provider
}

// Option configures a Runner.
type Option func(*Runner)

// WithParams sets the convergence derivation parameters.
func WithParams(p convergence.Params) Option {
	return func(r *Runner) { r.params = p }
}

// WithFramework sets the framework used to derive and classify convergence.
func WithFramework(name string) Option {
	return func(r *Runner) { r.framework = name }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithFindings records every finding to fl.
func WithFindings(fl *logging.FindingsLogger) Option {
	return func(r *Runner) { r.findings = fl }
}

// WithTelemetry records spans and counters to p.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(r *Runner) { r.telemetry = p }
}

// NewRunner returns a runner with default parameters for OpenMM traces.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		params:    convergence.DefaultParams(),
		framework: string(constants.FrameworkOpenMM),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run analyzes log. The input log is never modified; when a summary has to
// be derived the report carries an extended copy.
func (r *Runner) Run(ctx context.Context, log *lel.LayeredEventLog) (*Report, error) {
	if err := r.params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid convergence parameters: %w", err)
	}
	ref := log.ExperimentRef()
	rep := &Report{ExperimentRef: ref, Framework: r.framework}
	r.logger.Info("analysis started", "experiment", ref.ExperimentID, "events", log.Len(), "framework", r.framework)

	stages := []struct {
		name string
		fn   func(context.Context, *Report) error
	}{
		{"derive", func(ctx context.Context, rep *Report) error {
			rep.Log, rep.DerivedSummary = r.derive(log)
			rep.EventCount = rep.Log.Len()
			return nil
		}},
		{"overlay", func(ctx context.Context, rep *Report) error {
			rep.Overlay = overlay.FromLog(rep.Log)
			rep.EntityCount, rep.EdgeCount = rep.Overlay.Len(), rep.Overlay.EdgeCount()
			return nil
		}},
		{"compare", r.compare},
		{"implicate", r.implicate},
		{"confound", r.confound},
		{"classify", r.classify},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sctx, done := r.telemetry.StartStage(ctx, s.name, attribute.String("experiment", ref.ExperimentID))
		err := s.fn(sctx, rep)
		done(err)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	r.telemetry.CountEvents(ctx, rep.EventCount, attribute.String("framework", r.framework))
	r.logger.Info("analysis finished",
		"experiment", ref.ExperimentID,
		"comparisons", len(rep.Comparisons),
		"implications", len(rep.Implications),
		"confounder_pairs", len(rep.Confounders),
		"verdicts", len(rep.Convergence),
	)
	return rep, nil
}

// derive appends a convergence summary when the log has none.
func (r *Runner) derive(log *lel.LayeredEventLog) (*lel.LayeredEventLog, bool) {
	for _, id := range log.Indexes().ByKind(models.TagConvergencePoint) {
		if e, ok := log.Lookup(id); ok && e.Confidence.Completeness.Type == models.DerivedCompleteness {
			return log, false
		}
	}

	derive, isSample := convergence.DeriveEnergySummary, isEnergySample
	if f, ok := constants.ParseFramework(r.framework); ok && !f.EnergySeries() {
		derive, isSample = convergence.DeriveSCFSummary, isSCFSample
	}
	events := log.Events()
	draft, ok := derive(events, sampleSource(events, isSample), r.params)
	if !ok {
		r.logger.Debug("no convergence summary derived", "events", log.Len())
		return log, false
	}
	b := lel.Extend(log)
	id := b.Append(draft)
	r.logger.Debug("derived convergence summary", "event_id", id)
	return b.Build(), true
}

func isEnergySample(k models.EventKind) bool {
	_, ok := k.(models.EnergyRecord)
	return ok
}

func isSCFSample(k models.EventKind) bool {
	cp, ok := k.(models.ConvergencePoint)
	return ok && cp.MetricName == constants.MetricSCFDelta
}

// sampleSource is the source file of the last sample a summary is derived
// from, or the synthetic source when no sample names one.
func sampleSource(events []lel.TraceEvent, isSample func(models.EventKind) bool) string {
	for i := len(events) - 1; i >= 0; i-- {
		if isSample(events[i].Kind) && events[i].Provenance.SourceFile != "" {
			return events[i].Provenance.SourceFile
		}
	}
	return constants.SyntheticSourceFile
}

func (r *Runner) compare(ctx context.Context, rep *Report) error {
	rep.Comparisons = rep.Overlay.ComparePredictions(rep.Log)
	for _, c := range rep.Comparisons {
		r.logger.Log(ctx, logging.LevelTrace, "comparison", "event", c.ComparisonEventIdx, "variable", c.Variable, "falsified", c.IsFalsified)
		r.record("comparison", rep, c)
	}
	r.telemetry.CountFindings(ctx, "comparison", len(rep.Comparisons))
	return nil
}

func (r *Runner) implicate(ctx context.Context, rep *Report) error {
	for _, c := range rep.Comparisons {
		if !c.IsFalsified {
			continue
		}
		imp := Implication{Comparison: c, Nodes: rep.Overlay.ImplicateCausalNodes(rep.Log, c)}
		rep.Implications = append(rep.Implications, imp)
		r.record("implication", rep, imp)
	}
	r.telemetry.CountFindings(ctx, "implication", len(rep.Implications))
	return nil
}

func (r *Runner) confound(ctx context.Context, rep *Report) error {
	spec := rep.Log.Spec()
	found := 0
	for _, obs := range unique(spec.Predictions, func(p models.PredictionRecord) string { return p.Variable }) {
		for _, iv := range unique(spec.Interventions, func(i models.InterventionRecord) string { return i.Parameter }) {
			if obs == iv {
				continue
			}
			set := ConfounderSet{
				Observable:   obs,
				Intervention: iv,
				Candidates:   rep.Overlay.DetectConfounders(rep.Log, obs, iv),
			}
			r.logger.Log(ctx, logging.LevelTrace, "confounder pair", "observable", obs, "intervention", iv, "candidates", len(set.Candidates))
			rep.Confounders = append(rep.Confounders, set)
			for _, c := range set.Candidates {
				r.record("confounder", rep, map[string]any{"observable": obs, "intervention": iv, "candidate": c})
			}
			found += len(set.Candidates)
		}
	}
	r.telemetry.CountFindings(ctx, "confounder", found)
	return nil
}

func (r *Runner) classify(ctx context.Context, rep *Report) error {
	ids := rep.Log.Indexes().ByKind(models.TagConvergencePoint)
	verdicts := convergence.ClassifyAll(rep.Log, r.framework)
	rep.Convergence = make([]Verdict, len(verdicts))
	for i, v := range verdicts {
		rep.Convergence[i] = Verdict{EventID: ids[i], Canonical: v}
		r.record("convergence", rep, rep.Convergence[i])
	}
	r.telemetry.CountFindings(ctx, "convergence", len(verdicts))
	return nil
}

func (r *Runner) record(kind string, rep *Report, detail any) {
	r.findings.Log(logging.Finding{ExperimentID: rep.ExperimentRef.ExperimentID, Kind: kind, Detail: detail})
}

// unique returns the distinct non-empty keys of xs in first-seen order.
func unique[T any](xs []T, key func(T) string) []string {
	seen := make(map[string]bool, len(xs))
	var out []string
	for _, x := range xs {
		k := key(x)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
