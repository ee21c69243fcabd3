package visualization

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/models"
	"github.com/nvandessel/trace-semantics/internal/overlay"
)

// Server serves a rendered overlay and answers ancestor queries over it.
type Server struct {
	log        *lel.LayeredEventLog
	overlay    *overlay.CausalOverlay
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a new graph server for the given log and overlay.
func NewServer(log *lel.LayeredEventLog, ov *overlay.CausalOverlay) *Server {
	return &Server{log: log, overlay: ov}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleGraph)
	mux.HandleFunc("/graph.dot", s.handleDOT)
	mux.HandleFunc("/api/ancestors", s.handleAncestors)
	return mux
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. A clean shutdown returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(RenderJSON(s.log, s.overlay))
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.Write([]byte(RenderDOT(s.log, s.overlay, Options{ClusterByDAGNode: r.URL.Query().Get("cluster") == "1"})))
}

// handleAncestors returns the transitive causal ancestors of one event.
func (s *Server) handleAncestors(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("event")
	if raw == "" {
		http.Error(w, "missing 'event' query parameter", http.StatusBadRequest)
		return
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid event id: "+raw, http.StatusBadRequest)
		return
	}
	pos, ok := s.log.Indexes().Position(models.EventID(n))
	if !ok {
		http.Error(w, "event not found: "+raw, http.StatusNotFound)
		return
	}

	ancestors := s.overlay.TransitiveAncestors(pos)
	ids := make([]models.EventID, len(ancestors))
	for i, a := range ancestors {
		ids[i] = s.log.At(a).ID
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"event_id":  n,
		"ancestors": ids,
	})
}
