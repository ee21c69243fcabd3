package visualization

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
	"github.com/nvandessel/trace-semantics/internal/overlay"
)

// testGraph builds force_field -> timestep -> energy, with energy also
// depending directly on force_field.
func testGraph(t *testing.T) (*lel.LayeredEventLog, *overlay.CausalOverlay) {
	t.Helper()
	b := lel.NewBuilder(models.ExperimentRef{ExperimentID: "exp-viz"}, models.ExperimentSpec{})
	ff := b.Append(lel.NewEvent().
		Layer(models.LayerTheory).
		Kind(models.ParameterRecord{Name: "force_field", ActualValue: models.KnownCat("amber14"), ObservationMode: models.Observational}).
		Temporal(models.At(0, 0)).
		DAGNode("force_field"))
	dt := b.Append(lel.NewEvent().
		Layer(models.LayerMethodology).
		Boundary(models.DualAnnotated(models.LayerImplementation, "stability")).
		Kind(models.ParameterRecord{Name: "timestep", ActualValue: models.Known(0.002, "ps"), ObservationMode: models.Observational}).
		Temporal(models.At(0, 1)).
		DAGNode("timestep").
		CausalRefs(ff))
	b.Append(lel.NewEvent().
		Layer(models.LayerImplementation).
		Kind(models.EnergyRecord{Total: models.Known(-1, "kJ/mol")}).
		Temporal(models.At(10, 2)).
		DAGNode("force_field").
		CausalRefs(ff, dt))
	log := b.Build()
	return log, overlay.FromLog(log)
}

func TestRenderDOT(t *testing.T) {
	log, ov := testGraph(t)
	dot := RenderDOT(log, ov, Options{})

	if !strings.HasPrefix(dot, "digraph lelir {") {
		t.Error("expected digraph header")
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("expected closing brace")
	}
	for _, want := range []string{
		`"e0" [label="#1 parameter_record\nforce_field", fillcolor="steelblue"`,
		`fillcolor="goldenrod", style="filled,dashed"`,
		`fillcolor="mediumseagreen"`,
		`"e0" -> "e1";`,
		`"e0" -> "e2";`,
		`"e1" -> "e2";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "subgraph") {
		t.Error("unexpected cluster without ClusterByDAGNode")
	}
}

func TestRenderDOT_EveryDAGEntityPresent(t *testing.T) {
	log, ov := testGraph(t)
	dot := RenderDOT(log, ov, Options{ClusterByDAGNode: true, Highlight: []int{0}})

	if !strings.Contains(dot, `subgraph "cluster_force_field"`) || !strings.Contains(dot, `subgraph "cluster_timestep"`) {
		t.Errorf("expected one cluster per DAG node\n%s", dot)
	}
	for _, members := range ov.EntityByDAGNode {
		for _, i := range members {
			if strings.Count(dot, `"`+nodeID(i)+`" [label=`) != 1 {
				t.Errorf("entity %d should be rendered exactly once", i)
			}
		}
	}
	if !strings.Contains(dot, `color="tomato", penwidth=2`) {
		t.Error("expected highlighted entity")
	}
}

func TestRenderDOT_EmptyLog(t *testing.T) {
	log := lel.NewBuilder(models.ExperimentRef{ExperimentID: "empty"}, models.ExperimentSpec{}).Build()
	dot := RenderDOT(log, overlay.FromLog(log), Options{ClusterByDAGNode: true})
	if strings.Contains(dot, "->") || strings.Contains(dot, "[label=") {
		t.Errorf("empty log should render no nodes or edges\n%s", dot)
	}
}

func TestRenderJSON(t *testing.T) {
	log, ov := testGraph(t)
	got := RenderJSON(log, ov)

	if got["node_count"] != 3 || got["edge_count"] != 3 {
		t.Errorf("counts = %v nodes, %v edges, want 3 and 3", got["node_count"], got["edge_count"])
	}
	groups := got["dag_groups"].(map[string][]string)
	if strings.Join(groups["force_field"], ",") != "e0,e2" {
		t.Errorf("force_field group = %v, want [e0 e2]", groups["force_field"])
	}
	nodes := got["nodes"].([]map[string]any)
	if nodes[1]["variable"] != "timestep" || nodes[2]["layer"] != models.LayerImplementation {
		t.Errorf("nodes = %v", nodes)
	}
	if _, err := json.Marshal(got); err != nil {
		t.Errorf("json.Marshal() error = %v", err)
	}
}

func TestServer_Routes(t *testing.T) {
	log, ov := testGraph(t)
	srv := httptest.NewServer(NewServer(log, ov).Handler())
	defer srv.Close()

	tests := []struct {
		path       string
		wantStatus int
		wantType   string
	}{
		{"/", http.StatusOK, "application/json"},
		{"/graph.dot?cluster=1", http.StatusOK, "text/vnd.graphviz; charset=utf-8"},
		{"/api/ancestors?event=3", http.StatusOK, "application/json"},
		{"/api/ancestors", http.StatusBadRequest, ""},
		{"/api/ancestors?event=abc", http.StatusBadRequest, ""},
		{"/api/ancestors?event=99", http.StatusNotFound, ""},
		{"/missing", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
			if tt.wantType != "" && resp.Header.Get("Content-Type") != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", resp.Header.Get("Content-Type"), tt.wantType)
			}
		})
	}
}

func TestServer_Ancestors(t *testing.T) {
	log, ov := testGraph(t)
	srv := httptest.NewServer(NewServer(log, ov).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/ancestors?event=3")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		EventID   uint64           `json:"event_id"`
		Ancestors []models.EventID `json:"ancestors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.EventID != 3 || len(body.Ancestors) != 2 || body.Ancestors[0] != 1 || body.Ancestors[1] != 2 {
		t.Errorf("ancestors = %+v, want event 3 with [1 2]", body)
	}
}

func TestServer_ListenAndServe(t *testing.T) {
	log, ov := testGraph(t)
	s := NewServer(log, ov)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for s.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	resp, err := http.Get("http://" + s.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v, want nil on shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
