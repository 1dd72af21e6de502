package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxEventBytes bounds the size of an invocation event body.
const maxEventBytes = 32 << 20

// Invoker handles one invocation event.
type Invoker interface {
	Handle(ctx context.Context, event domain.Event) domain.Response
}

// Server exposes the invocation endpoint plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	invoker    Invoker
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /invoke routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, invoker Invoker, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimd.RequestID, chimd.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		invoker: invoker,
		logger:  logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/invoke", s.handleInvoke)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleInvoke answers with the invocation response envelope. Only a body
// that is not an event is a client error; processing failures are reported
// inside the envelope.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var event domain.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&event); err != nil {
		s.logger.Warn("invalid invocation event",
			"error", err,
			"request_id", chimd.GetReqID(r.Context()),
		)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event: " + err.Error()})
		return
	}

	resp := s.invoker.Handle(r.Context(), event)
	writeJSON(w, resp.StatusCode, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
