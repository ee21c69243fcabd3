// Package bench measures log and overlay construction over synthetic traces.
package bench

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
	"github.com/nvandessel/trace-semantics/internal/overlay"
)

// DefaultSeed is the generator seed used by the CLI.
const DefaultSeed uint64 = 0x5DEECE66D1A4F681

// DefaultScales are the trace sizes benchmarked when none are given.
var DefaultScales = []int{1_000, 10_000, 100_000, 1_000_000}

// lcg is a 64-bit linear congruential generator returning the high 31 bits.
type lcg struct{ state uint64 }

func (r *lcg) next() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state >> 33
}

// Generate builds a deterministic synthetic log of n parameter records:
// about 70% implementation, 20% methodology and 10% theory events, 30%
// carrying one of 50 DAG nodes and 10% citing one to three earlier events.
// Each call uses its own id allocator, so ids always start at 1.
func Generate(n int, seed uint64) *lel.LayeredEventLog {
	rng := &lcg{state: seed}
	ref := models.ExperimentRef{
		ExperimentID: fmt.Sprintf("bench-%d", n),
		CycleID:      1,
		HypothesisID: "H-bench",
	}
	spec := models.ExperimentSpec{
		Provenance: models.ProvenanceAnchor{SourceFile: "bench", SourceLocation: models.ExternalInput()},
	}
	b := lel.NewBuilder(ref, spec, lel.WithCapacity(n))

	for i := range n {
		var layer models.Layer
		switch r := rng.next() % 10; {
		case r <= 6:
			layer = models.LayerImplementation
		case r <= 8:
			layer = models.LayerMethodology
		default:
			layer = models.LayerTheory
		}

		dag := ""
		if rng.next()%100 < 30 {
			dag = fmt.Sprintf("node_%d", rng.next()%constants.BenchDAGNodeCount)
		}

		var refs []models.EventID
		if i > 0 && rng.next()%100 < 10 {
			count := int(rng.next()%3) + 1
			refs = make([]models.EventID, count)
			for j := range refs {
				refs[j] = models.EventID(rng.next()%uint64(i) + 1)
			}
		}

		d := lel.NewEvent().
			Layer(layer).
			Kind(models.ParameterRecord{
				Name:            fmt.Sprintf("param_%d", i%constants.BenchParameterCount),
				ActualValue:     models.Known(1.0, "nm"),
				Units:           "nm",
				ObservationMode: models.Observational,
			}).
			Temporal(models.At(uint64(i), uint64(i)).WithWallClock(uint64(i) * 1_000)).
			CausalRefs(refs...)
		if dag != "" {
			d.DAGNode(dag)
		}
		b.Append(d)
	}
	return b.Build()
}

// Result reports one benchmark scale.
type Result struct {
	Events          int           `json:"events"`
	LogDuration     time.Duration `json:"log_duration_ns"`
	OverlayDuration time.Duration `json:"overlay_duration_ns"`
	Entities        int           `json:"entities"`
	Edges           int           `json:"edges"`
	DAGGroups       int           `json:"dag_groups"`
}

// Measure times log construction and overlay construction for n events.
func Measure(n int, seed uint64) Result {
	start := time.Now()
	log := Generate(n, seed)
	logDur := time.Since(start)

	start = time.Now()
	ov := overlay.FromLog(log)
	edges := ov.EdgeCount()
	ovDur := time.Since(start)

	return Result{
		Events:          n,
		LogDuration:     logDur,
		OverlayDuration: ovDur,
		Entities:        ov.Len(),
		Edges:           edges,
		DAGGroups:       len(ov.EntityByDAGNode),
	}
}

// Run measures every scale, at most parallel at a time, and returns the
// results in scale order. Episodes share no state. Scales not yet started
// when ctx is cancelled are skipped and the context error is returned.
func Run(ctx context.Context, scales []int, seed uint64, parallel int) ([]Result, error) {
	for _, n := range scales {
		if n < 0 {
			return nil, fmt.Errorf("invalid scale %d", n)
		}
	}
	if parallel < 1 {
		parallel = 1
	}
	results := make([]Result, len(scales))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, n := range scales {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Measure(n, seed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
