package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gentleman-programming/gentleman-signals-state-manager/pkg/manager"
)

// Server exposes a manager for inspection. Create with NewServer and
// mount Routes on any chi-compatible mux.
type Server struct {
	mgr    *manager.Manager
	logger *slog.Logger

	metricsHandler http.Handler

	clients   map[*client]struct{}
	clientsMu sync.Mutex

	seq     atomic.Uint64
	unwatch func()
	closed  atomic.Bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler overrides the /metrics handler, for stores
// instrumented against a non-default Prometheus registry.
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// NewServer creates an inspector for m and starts forwarding its
// change feed to connected websocket clients.
func NewServer(m *manager.Manager, opts ...ServerOption) *Server {
	s := &Server{
		mgr:            m,
		logger:         slog.Default(),
		metricsHandler: promhttp.Handler(),
		clients:        make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unwatch = m.Watch(func(c manager.Change) {
		s.broadcast(wsMessage{
			Type:    messageChange,
			Key:     c.Key,
			Value:   c.Value,
			Created: c.Created,
			Seq:     s.seq.Add(1),
		})
	})

	return s
}

// Routes returns the inspector's router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/state", s.handleState)
	r.Get("/state/{key}", s.handleStateKey)
	r.Get("/live", s.handleLive)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	return r
}

// Close stops the change feed and disconnects all clients.
func (s *Server) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.unwatch()

	s.clientsMu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[*client]struct{})
	s.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.Snapshot())
}

func (s *Server) handleStateKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	cell, ok := s.mgr.Cell(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "key not materialized",
			"key":   key,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": cell.GetAny(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.mgr.Closed() {
		status = "closed"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"cells":  s.mgr.Len(),
	})
}

func (s *Server) register(c *client) {
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()
}

func (s *Server) unregister(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()
}

// broadcast fans a message out without blocking the mutating
// goroutine: clients whose buffers are full are dropped.
func (s *Server) broadcast(msg wsMessage) {
	s.clientsMu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		if !c.trySend(msg) {
			s.logger.Warn("dropping slow inspector client")
			s.unregister(c)
			c.close()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
