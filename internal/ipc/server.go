package ipc

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps an HTTP server with phasebook routing.
type Server struct {
	httpServer *http.Server
}

// Routes builds the API mux wrapped in CORS handling.
func Routes(h *Handler) http.Handler {
	mux := http.NewServeMux()

	// Health endpoint.
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Workflow endpoints.
	mux.HandleFunc("GET /api/v1/workflow", h.GetWorkflow)
	mux.HandleFunc("GET /api/v1/phases/{phaseID}", h.GetPhase)
	mux.HandleFunc("POST /api/v1/phases/{phaseID}/select", h.SelectPhase)
	mux.HandleFunc("POST /api/v1/phases/{phaseID}/begin", h.BeginInteraction)
	mux.HandleFunc("POST /api/v1/phases/{phaseID}/content", h.RecordContent)
	mux.HandleFunc("POST /api/v1/phases/{phaseID}/complete", h.CompletePhase)
	mux.HandleFunc("POST /api/v1/phases/{phaseID}/generate", h.Generate)

	// Document endpoints.
	mux.HandleFunc("GET /api/v1/document", h.GetDocument)
	mux.HandleFunc("POST /api/v1/document/export", h.ExportDocument)
	mux.HandleFunc("GET /api/v1/exports", h.ListExports)

	// Event endpoints.
	mux.HandleFunc("GET /api/v1/events", h.ListEvents)
	mux.HandleFunc("GET /api/v1/events/stream", h.StreamEvents)

	// Metrics.
	mux.Handle("GET /metrics", promhttp.Handler())

	return corsMiddleware(mux)
}

// NewServer creates a Server that binds to the given address.
func NewServer(h *Handler, listenAddr string) *Server {
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: Routes(h),
	}

	return &Server{
		httpServer: srv,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for HTTP connections. Blocks until the server stops.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for local browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// FormatListenURL turns a listen address into a browsable URL.
func FormatListenURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}
