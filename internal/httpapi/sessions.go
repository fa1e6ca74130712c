package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stillpointhq/stillpoint/internal/orchestrator"
	"github.com/stillpointhq/stillpoint/internal/protocol"
	"github.com/stillpointhq/stillpoint/internal/resources"
	"github.com/stillpointhq/stillpoint/internal/session"
)

type createSessionRequest struct {
	OwnerID string `json:"owner_id"`
	Region  string `json:"region"`
}

type createSessionResponse struct {
	SessionID       string          `json:"session_id"`
	OwnerID         string          `json:"owner_id"`
	State           session.State   `json:"state"`
	Region          string          `json:"region"`
	Spaces          []session.Space `json:"spaces"`
	CreatedAt       time.Time       `json:"created_at"`
	InactivityTTLMS int64           `json:"inactivity_ttl_ms"`
}

type selectSpaceRequest struct {
	Space string `json:"space"`
}

type submitTurnRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		req.OwnerID = "anonymous"
	}

	sess, err := s.orch.StartSession(r.Context(), req.OwnerID, req.Region)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID:       sess.ID,
		OwnerID:         sess.OwnerID,
		State:           sess.State,
		Region:          sess.Region,
		Spaces:          session.Spaces,
		CreatedAt:       sess.CreatedAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	sess, err := s.orch.Session(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSelectSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	var req selectSpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cont, err := s.orch.SelectSpace(r.Context(), id, req.Space)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTurnResult(cont))
}

func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	var req submitTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	resp, err := s.orch.ProcessTurn(r.Context(), id, req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTurnResult(resp))
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	turns, err := s.orch.SessionTurns(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"turns":      turns,
	})
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	events, err := s.orch.SessionAudit(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"events":     events,
	})
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.orch.Pause)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.orch.Resume)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.orch.Complete)
}

func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	s.handleLifecycle(w, r, s.orch.Abandon)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*session.Session, error)) {
	id, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	sess, err := op(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	region := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("region")))
	if region == "" {
		region = s.cfg.DefaultRegion
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"region":    region,
		"helplines": resources.ForRegion(region),
	})
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return "", false
	}
	return id, true
}

// toTurnResult flattens an orchestrator response into the variant-tagged wire
// shape shared by the REST and websocket surfaces.
func toTurnResult(resp orchestrator.Response) protocol.TurnResult {
	out := protocol.TurnResult{
		Type:    protocol.TypeTurnResult,
		Variant: resp.Variant(),
	}
	switch v := resp.(type) {
	case orchestrator.Continue:
		out.SessionID = v.SessionID
		out.State = string(v.State)
		out.Iteration = v.Iteration
		out.Question = v.Question
		out.DepthScore = v.DepthScore
		out.SafetyTier = string(v.SafetyTier)
		out.ShowResources = v.ShowResources
	case orchestrator.Grounding:
		out.SessionID = v.SessionID
		out.State = string(v.State)
		out.Exercise = v.Exercise
		out.Question = v.Question
		out.DepthScore = v.DepthScore
		out.SafetyTier = string(v.SafetyTier)
	case orchestrator.PauseSuggested:
		out.SessionID = v.SessionID
		out.State = string(v.State)
		out.Message = v.Message
		out.Question = v.NextQuestion
		out.DepthScore = v.DepthScore
		out.SafetyTier = string(v.SafetyTier)
		out.Helplines = v.Helplines
	case orchestrator.Crisis:
		out.SessionID = v.SessionID
		out.State = string(v.State)
		out.Message = v.Message
		out.DepthScore = v.DepthScore
		out.SafetyTier = string(v.SafetyTier)
		out.Helplines = v.Helplines
	case orchestrator.Integration:
		out.SessionID = v.SessionID
		out.State = string(v.State)
		out.Question = v.Question
		out.Reason = v.Reason
		out.DepthScore = v.DepthScore
		out.SafetyTier = string(v.SafetyTier)
	case orchestrator.Completed:
		out.SessionID = v.SessionID
		out.State = string(v.State)
		out.Summary = v.Summary
		out.Iteration = v.Iterations
		out.DepthScore = v.DepthScore
	}
	return out
}
