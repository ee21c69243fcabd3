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

// OSZICARName is the registry key of the VASP OSZICAR adapter.
const OSZICARName = "oszicar"

// OSZICAR reads the electronic (DAV/RMM) and ionic (F=) lines of a VASP
// OSZICAR file.
type OSZICAR struct {
	opts Options
}

// NewOSZICAR returns an OSZICAR adapter.
func NewOSZICAR(opts Options) *OSZICAR {
	return &OSZICAR{opts: opts.withDefaults("OSZICAR")}
}

func (a *OSZICAR) Name() string                   { return OSZICARName }
func (a *OSZICAR) Framework() constants.Framework { return constants.FrameworkVASP }

// scfRecord is one parsed line: an SCF iteration when ionic is false,
// otherwise the ionic step summary that ends an SCF cycle.
type scfRecord struct {
	ionic     bool
	step      uint64
	iteration uint64
	value     float64 // dE for SCF iterations, F for ionic steps
	e0, dE    *float64
	converged bool
	src       line
}

func valueAfter(text, marker string) *float64 {
	_, rest, ok := strings.Cut(text, marker)
	if !ok {
		return nil
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOSZICAR(lines []line) []scfRecord {
	var out []scfRecord
	step := uint64(1)
	lastSCF := -1
	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		if strings.HasPrefix(text, "DAV:") || strings.HasPrefix(text, "RMM:") {
			fields := strings.Fields(text)
			if len(fields) < 4 {
				continue
			}
			iter, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				continue
			}
			dE, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				continue
			}
			out = append(out, scfRecord{step: step, iteration: iter, value: dE, src: l})
			lastSCF = len(out) - 1
			continue
		}
		if !strings.Contains(text, "F=") {
			continue
		}
		f := valueAfter(text, "F=")
		if f == nil {
			continue
		}
		if fields := strings.Fields(text); len(fields) > 0 {
			if n, err := strconv.ParseUint(fields[0], 10, 64); err == nil {
				step = n
			}
		}
		// The ionic line closes the SCF cycle: its last iteration converged.
		if lastSCF >= 0 {
			out[lastSCF].converged = true
			lastSCF = -1
		}
		dE := valueAfter(text, "d E =")
		if dE == nil {
			dE = valueAfter(text, "dE =")
		}
		out = append(out, scfRecord{ionic: true, step: step, value: *f, e0: valueAfter(text, "E0="), dE: dE, src: l})
		step++
	}
	return out
}

// Parse builds the log: one convergence point per SCF iteration, one energy
// record per ionic step, the execution status and a derived SCF summary when
// the trailing unconverged iterations fill the derivation window. A trace
// that ends inside an SCF cycle is reported as a timeout.
func (a *OSZICAR) Parse(ctx context.Context, raw io.Reader) (*lel.LayeredEventLog, error) {
	lines, err := readLines(ctx, raw, a.Name())
	if err != nil {
		return nil, err
	}
	records := parseOSZICAR(lines)
	if len(records) == 0 {
		return nil, &Error{Kind: ErrParse, Adapter: a.Name(), Msg: "no SCF or ionic lines found"}
	}

	src := a.opts.SourceFile
	b := lel.NewBuilder(a.opts.ref(), models.ExperimentSpec{}, lel.WithCapacity(len(records)+2))
	var prev, last models.EventID
	for i, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seq := uint64(i + 1)
		d := lel.NewEvent().Temporal(models.At(r.step, seq)).Provenance(r.src.provenance(src))
		if prev != 0 {
			d.CausalRefs(prev)
		}
		if !r.ionic {
			var flag *bool
			if r.converged {
				flag = models.Bool(true)
			}
			d.Layer(models.LayerMethodology).
				Kind(models.ConvergencePoint{
					Iteration:   r.iteration,
					MetricName:  constants.MetricSCFDelta,
					MetricValue: models.Known(r.value, "eV"),
					Converged:   flag,
				})
		} else {
			var comps []models.EnergyComponent
			if r.e0 != nil {
				comps = append(comps, models.EnergyComponent{Name: "E0", Value: models.Known(*r.e0, "eV")})
			}
			if r.dE != nil {
				comps = append(comps, models.EnergyComponent{Name: "dE", Value: models.Known(*r.dE, "eV")})
			}
			d.Layer(models.LayerImplementation).
				Kind(models.EnergyRecord{Total: models.Known(r.value, "eV"), Components: comps}).
				DAGNode("ionic_energy")
		}
		last = b.Append(d)
		prev = last
		if r.ionic {
			prev = 0
		}
	}

	final := records[len(records)-1]
	status := models.OutcomeSuccess
	if !final.ionic {
		status = models.OutcomeTimeout
	}
	b.Append(lel.NewEvent().
		Layer(models.LayerImplementation).
		Kind(models.ExecutionStatus{Status: status}).
		Temporal(models.At(final.step, uint64(len(records)+1))).
		CausalRefs(last).
		Provenance(final.src.provenance(src)))

	if draft, ok := convergence.DeriveSCFSummary(b.Events(), src, a.opts.Params); ok {
		b.Append(draft)
	}
	return b.Build(), nil
}
