// Package httpapi exposes the query engine over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"finsight/internal/engine"
)

// Engine is the turn handler the server fronts.
type Engine interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (engine.Response, error)
}

// Server routes chat turns to the engine.
type Server struct {
	engine  Engine
	metrics *Metrics
}

// New creates the HTTP server.
func New(eng Engine, metrics *Metrics) *Server {
	return &Server{engine: eng, metrics: metrics}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/sessions", s.handleCreateSession)
	r.Post("/api/chat", s.handleChat)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: uuid.NewString(),
	})
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "sessionId is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	start := time.Now()
	resp, err := s.engine.HandleTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.metrics.Turns.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "turn_failed", "the request could not be processed")
		return
	}

	s.metrics.Turns.WithLabelValues(string(resp.Kind)).Inc()
	s.metrics.ObserveTurnLatency(time.Since(start))

	respondJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
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
