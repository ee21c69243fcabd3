package lel

import (
	"encoding/json"
	"slices"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/trace-semantics/internal/models"
)

func testRef() models.ExperimentRef {
	return models.ExperimentRef{ExperimentID: "exp-1", CycleID: 1, HypothesisID: "h-1"}
}

func param(name string, v float64, step uint64) *EventDraft {
	return NewEvent().
		Layer(models.LayerTheory).
		Kind(models.ParameterRecord{Name: name, ActualValue: models.Known(v, "K"), ObservationMode: models.Observational}).
		Temporal(models.At(step, step))
}

func energy(total float64, step uint64) *EventDraft {
	return NewEvent().
		Layer(models.LayerImplementation).
		Kind(models.EnergyRecord{Total: models.Known(total, "kJ/mol")}).
		Temporal(models.At(step, step))
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestBuilder_AppendAssignsIncreasingIDs(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	first := b.Append(param("temperature", 300, 0))
	second := b.Append(energy(-1000, 1))
	if first != 1 || second != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first, second)
	}
	log := b.Build()
	if log.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", log.Len())
	}
	if log.At(1).ID != second {
		t.Errorf("At(1).ID = %d, want %d", log.At(1).ID, second)
	}
	if got := log.ExperimentRef(); got != testRef() {
		t.Errorf("ExperimentRef() = %+v, want %+v", got, testRef())
	}
}

func TestBuilder_Defaults(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	id := b.Append(energy(-1, 0))
	e, ok := b.Build().Lookup(id)
	if !ok {
		t.Fatalf("Lookup(%d) not found", id)
	}
	if e.Boundary.Type != models.BoundaryPrimaryLayer {
		t.Errorf("Boundary.Type = %q, want %q", e.Boundary.Type, models.BoundaryPrimaryLayer)
	}
	if e.Provenance.SourceFile != "synthetic" {
		t.Errorf("Provenance.SourceFile = %q, want synthetic", e.Provenance.SourceFile)
	}
	if e.Confidence.Completeness.Type != models.FullyObserved || e.Confidence.FieldCoverage != 1.0 {
		t.Errorf("Confidence = %+v, want fully observed with coverage 1", e.Confidence)
	}
	if len(e.CausalRefs) != 0 || e.DAGNodeRef != "" || e.SpecRef != nil {
		t.Errorf("optional fields set on default event: %+v", e)
	}
}

func TestBuilder_MissingRequiredFieldsPanic(t *testing.T) {
	tests := []struct {
		name  string
		draft *EventDraft
	}{
		{"missing layer", NewEvent().Kind(models.EnergyRecord{}).Temporal(models.At(0, 0))},
		{"unknown layer", NewEvent().Layer("astrology").Kind(models.EnergyRecord{}).Temporal(models.At(0, 0))},
		{"missing kind", NewEvent().Layer(models.LayerTheory).Temporal(models.At(0, 0))},
		{"missing temporal", NewEvent().Layer(models.LayerTheory).Kind(models.EnergyRecord{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(testRef(), models.ExperimentSpec{})
			expectPanic(t, "Append", func() { b.Append(tt.draft) })
			if b.Len() != 0 {
				t.Errorf("Len() = %d after failed append, want 0", b.Len())
			}
		})
	}
}

func TestBuilder_PointerKindsPanic(t *testing.T) {
	kinds := []models.EventKind{
		&models.NumericalStatus{EventType: models.NumericalNaNDetected},
		&models.ParameterRecord{Name: "T"},
		&models.ComparisonResult{PredictionID: "1"},
	}
	for _, k := range kinds {
		t.Run(string(k.Tag()), func(t *testing.T) {
			b := NewBuilder(testRef(), models.ExperimentSpec{})
			expectPanic(t, "Append", func() {
				b.Append(NewEvent().Layer(models.LayerImplementation).Kind(k).Temporal(models.At(0, 0)))
			})
			expectPanic(t, "AppendEvent", func() {
				b.AppendEvent(TraceEvent{ID: 7, Layer: models.LayerImplementation, Kind: k})
			})
			if b.Len() != 0 {
				t.Errorf("Len() = %d after rejected appends, want 0", b.Len())
			}
			if got := b.Build().Indexes().ByVariable("T"); len(got) != 0 {
				t.Errorf("ByVariable(T) = %v, want empty", got)
			}
		})
	}
}

func TestBuilder_FailedAppendDoesNotConsumeID(t *testing.T) {
	alloc := NewIDAllocator()
	b := NewBuilder(testRef(), models.ExperimentSpec{}, WithAllocator(alloc))
	expectPanic(t, "Append", func() { b.Append(NewEvent()) })
	if id := b.Append(energy(0, 0)); id != 1 {
		t.Errorf("first successful id = %d, want 1", id)
	}
}

func TestBuilder_DuplicateIDPanics(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	id := b.Append(energy(0, 0))
	dup := b.Events()[0]
	if dup.ID != id {
		t.Fatalf("Events()[0].ID = %d, want %d", dup.ID, id)
	}
	expectPanic(t, "AppendEvent", func() { b.AppendEvent(dup) })
}

func TestBuilder_UseAfterBuildPanics(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	b.Build()
	expectPanic(t, "Append", func() { b.Append(energy(0, 0)) })
}

func TestIndexes_Lookups(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	temp := b.Append(param("temperature", 300, 0).DAGNode("temperature"))
	dt := b.Append(param("timestep", 0.002, 0))
	e1 := b.Append(energy(-10, 1))
	obs := b.Append(NewEvent().
		Layer(models.LayerMethodology).
		Kind(models.ObservableMeasurement{VariableName: "temperature", Value: models.Known(301, "K")}).
		Temporal(models.At(2, 3)).
		DAGNode("temperature"))
	idx := b.Build().Indexes()

	tests := []struct {
		name string
		got  []models.EventID
		want []models.EventID
	}{
		{"by layer theory", idx.ByLayer(models.LayerTheory), []models.EventID{temp, dt}},
		{"by layer implementation", idx.ByLayer(models.LayerImplementation), []models.EventID{e1}},
		{"by kind parameter", idx.ByKind(models.TagParameterRecord), []models.EventID{temp, dt}},
		{"by kind absent", idx.ByKind(models.TagStateSnapshot), nil},
		{"by variable", idx.ByVariable("temperature"), []models.EventID{temp, obs}},
		{"by dag node", idx.ByDAGNode("temperature"), []models.EventID{temp, obs}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !slices.Equal(tt.got, tt.want) {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if idx.HasVariable("pressure") {
		t.Error("HasVariable(pressure) = true, want false")
	}
	if id, ok := idx.FirstAtStep(0); !ok || id != temp {
		t.Errorf("FirstAtStep(0) = %d, %v, want %d, true", id, ok, temp)
	}
	if pos, ok := idx.Position(obs); !ok || pos != 3 {
		t.Errorf("Position(%d) = %d, %v, want 3, true", obs, pos, ok)
	}
}

func TestIndexes_StepRangeIsOrdered(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	ids := map[uint64]models.EventID{}
	for _, step := range []uint64{40, 10, 30, 20, 10} {
		id := b.Append(energy(float64(step), step))
		if _, seen := ids[step]; !seen {
			ids[step] = id
		}
	}
	idx := b.Build().Indexes()

	tests := []struct {
		name     string
		from, to uint64
		want     []uint64
	}{
		{"all", 0, 100, []uint64{10, 20, 30, 40}},
		{"inclusive bounds", 20, 30, []uint64{20, 30}},
		{"empty window", 21, 29, nil},
		{"reversed", 30, 20, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.StepRange(tt.from, tt.to)
			var steps []uint64
			for _, entry := range got {
				steps = append(steps, entry.Step)
				if entry.EventID != ids[entry.Step] {
					t.Errorf("step %d maps to %d, want first event %d", entry.Step, entry.EventID, ids[entry.Step])
				}
			}
			if !slices.Equal(steps, tt.want) {
				t.Errorf("StepRange(%d, %d) steps = %v, want %v", tt.from, tt.to, steps, tt.want)
			}
		})
	}
}

func TestIndexes_SnapshotEqual(t *testing.T) {
	build := func() *LayeredEventLog {
		b := NewBuilder(testRef(), models.ExperimentSpec{})
		b.Append(param("temperature", 300, 0))
		b.Append(energy(-1, 1))
		return b.Build()
	}
	a, c := build().Indexes().Snapshot(), build().Indexes().Snapshot()
	if !a.Equal(c) {
		t.Error("snapshots of identical logs differ")
	}
	c.ByStep = c.ByStep[:1]
	if a.Equal(c) {
		t.Error("snapshots with different step entries compare equal")
	}
}

func TestIDAllocator_ConcurrentIDsAreUnique(t *testing.T) {
	alloc := NewIDAllocator()
	const workers, perWorker = 8, 500

	var mu sync.Mutex
	seen := make(map[models.EventID]bool, workers*perWorker)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]models.EventID, 0, perWorker)
			for range perWorker {
				local = append(local, alloc.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("id %d issued twice", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("issued %d distinct ids, want %d", len(seen), workers*perWorker)
	}
	if alloc.Last() != models.EventID(workers*perWorker) {
		t.Errorf("Last() = %d, want %d", alloc.Last(), workers*perWorker)
	}
}

func TestIDAllocator_IndependentEpisodes(t *testing.T) {
	a, b := NewIDAllocator(), NewIDAllocator()
	a.Next()
	a.Next()
	if id := b.Next(); id != 1 {
		t.Errorf("fresh allocator issued %d, want 1", id)
	}
	a.Observe(10)
	a.Observe(5)
	if id := a.Next(); id != 11 {
		t.Errorf("Next() after Observe(10) = %d, want 11", id)
	}
}

func TestExtend_LeavesOriginalUntouched(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	b.Append(energy(-1, 0))
	b.Append(energy(-2, 1))
	orig := b.Build()

	ext := Extend(orig)
	id := ext.Append(energy(-3, 2).CausalRefs(1, 2))
	grown := ext.Build()

	if id != 3 {
		t.Errorf("Append after Extend = %d, want 3", id)
	}
	if orig.Len() != 2 || grown.Len() != 3 {
		t.Errorf("Len() = %d, %d, want 2, 3", orig.Len(), grown.Len())
	}
	if _, ok := orig.Lookup(id); ok {
		t.Errorf("original log sees event %d appended to its extension", id)
	}
}

func TestTraceEvent_JSONAndYAMLKeepKind(t *testing.T) {
	b := NewBuilder(testRef(), models.ExperimentSpec{})
	b.Append(NewEvent().
		Layer(models.LayerMethodology).
		Boundary(models.DualAnnotated(models.LayerImplementation, "integrator choice")).
		Kind(models.ConvergencePoint{Iteration: 3, MetricName: "dE", MetricValue: models.Known(1e-5, "eV"), Converged: models.Bool(true)}).
		Temporal(models.At(3, 7).WithWallClock(42)).
		CausalRefs(99).
		SpecRef(4))
	want := b.Build().At(0)

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var got TraceEvent
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		checkEventRoundTrip(t, want, &got)
	})
	t.Run("yaml", func(t *testing.T) {
		data, err := yaml.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var got TraceEvent
		if err := yaml.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		checkEventRoundTrip(t, want, &got)
	})
}

func checkEventRoundTrip(t *testing.T, want, got *TraceEvent) {
	t.Helper()
	if got.ID != want.ID || got.Layer != want.Layer {
		t.Errorf("id/layer = %d/%s, want %d/%s", got.ID, got.Layer, want.ID, want.Layer)
	}
	if got.Boundary != want.Boundary {
		t.Errorf("Boundary = %+v, want %+v", got.Boundary, want.Boundary)
	}
	if !got.Temporal.Equal(want.Temporal) {
		t.Errorf("Temporal = %+v, want %+v", got.Temporal, want.Temporal)
	}
	if !slices.Equal(got.CausalRefs, want.CausalRefs) {
		t.Errorf("CausalRefs = %v, want %v", got.CausalRefs, want.CausalRefs)
	}
	if got.SpecRef == nil || *got.SpecRef != *want.SpecRef {
		t.Errorf("SpecRef = %v, want %d", got.SpecRef, *want.SpecRef)
	}
	cp, ok := got.Kind.(models.ConvergencePoint)
	if !ok {
		t.Fatalf("Kind = %T, want models.ConvergencePoint", got.Kind)
	}
	if cp.MetricName != "dE" || cp.Converged == nil || !*cp.Converged {
		t.Errorf("Kind = %+v, want converged dE point", cp)
	}
}
