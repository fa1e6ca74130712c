package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/stillpointhq/stillpoint/internal/config"
	"github.com/stillpointhq/stillpoint/internal/observability"
	"github.com/stillpointhq/stillpoint/internal/orchestrator"
	"github.com/stillpointhq/stillpoint/internal/session"
	"github.com/stillpointhq/stillpoint/internal/store"
)

type Server struct {
	cfg      config.Config
	orch     *orchestrator.Orchestrator
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, orch *orchestrator.Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		orch:    orch,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin. This prevents other websites from driving a
				// user's reflection session if the service is ever exposed
				// beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions/{sessionID}", s.handleGetSession)
	r.Post("/v1/sessions/{sessionID}/space", s.handleSelectSpace)
	r.Post("/v1/sessions/{sessionID}/turns", s.handleSubmitTurn)
	r.Get("/v1/sessions/{sessionID}/turns", s.handleListTurns)
	r.Post("/v1/sessions/{sessionID}/pause", s.handlePauseSession)
	r.Post("/v1/sessions/{sessionID}/resume", s.handleResumeSession)
	r.Post("/v1/sessions/{sessionID}/complete", s.handleCompleteSession)
	r.Post("/v1/sessions/{sessionID}/abandon", s.handleAbandonSession)
	r.Get("/v1/sessions/{sessionID}/audit", s.handleAuditTrail)
	r.Get("/v1/sessions/{sessionID}/ws", s.handleSessionWS)
	r.Get("/v1/resources", s.handleResources)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"storage": s.storageMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"storage": s.storageMode(),
	})
}

func (s *Server) storageMode() string {
	switch {
	case strings.TrimSpace(s.cfg.DatabaseURL) != "":
		return "postgres"
	case strings.TrimSpace(s.cfg.SQLitePath) != "":
		return "sqlite"
	default:
		return "in-memory"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

// maxRequestBody caps request bodies well above any legitimate turn; a single
// reflection is a few sentences.
const maxRequestBody = 1 << 20

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// errorCode maps a domain error to an HTTP status and a stable wire code.
func errorCode(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrInvalidSpace):
		return http.StatusBadRequest, "invalid_space"
	case errors.Is(err, session.ErrIllegalTransition):
		return http.StatusConflict, "illegal_transition"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	status, code := errorCode(err)
	respondError(w, status, code, err.Error())
}

func (s *Server) observeSessionEvent(event string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SessionEvents.WithLabelValues(event).Inc()
}
