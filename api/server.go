package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icache-sim/icache-sim/config"
	"github.com/icache-sim/icache-sim/sim"
)

// defaultGeometry is the cache shape a request falls back to when it omits
// an override.
type defaultGeometry struct {
	Sets     int
	Ways     int
	LineSize int
}

// Server is the embeddable HTTP API: a single POST /api/v1/simulate
// endpoint, a WebSocket feed of run progress, and a health check.
type Server struct {
	runs          *RunManager
	broadcaster   *Broadcaster
	mux           *http.ServeMux
	server        *http.Server
	port          int
	defaultCache  defaultGeometry
	defaultParams sim.Params
}

// NewServer creates a new API server using cfg's cache geometry and cost
// model as the default for requests that don't override them.
func NewServer(port int, cfg *config.Config) *Server {
	broadcaster := NewBroadcaster()

	s := &Server{
		runs:        NewRunManager(),
		broadcaster: broadcaster,
		mux:         http.NewServeMux(),
		port:        port,
		defaultCache: defaultGeometry{
			Sets: cfg.Cache.Sets, Ways: cfg.Cache.Ways, LineSize: cfg.Cache.LineSize,
		},
		defaultParams: sim.Params{
			CyclesHit:  cfg.Cost.CyclesHit,
			CyclesMiss: cfg.Cost.CyclesMiss,
			ClockMHz:   cfg.Cost.ClockMHz,
		},
	}

	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler with CORS middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/simulate", s.handleSimulate)
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server starting on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and disconnects all WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.broadcaster != nil {
		s.broadcaster.Close()
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetBroadcaster returns the broadcaster, for tests.
func (s *Server) GetBroadcaster() *Broadcaster {
	return s.broadcaster
}

// corsMiddleware restricts cross-origin requests to localhost, since the API
// is meant to be driven by a local CLI, TUI, or desktop viewer, never a
// remote page.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin reports whether origin is empty, a file:// URL, or
// localhost/127.0.0.1 over http or https on any port.
func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}

	if strings.HasPrefix(origin, "file://") {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"runs":   s.runs.Count(),
		"time":   time.Now().Format(time.RFC3339),
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

func readJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1024*1024))
	return decoder.Decode(v)
}
