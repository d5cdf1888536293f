// Package server exposes the decision pipeline over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seclab/promptgate/internal/pipeline"
	"github.com/seclab/promptgate/internal/telemetry"
)

// ChatRequest is the inbound request body for /v1/chat.
type ChatRequest struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	UserRole string `json:"user_role"`
}

// ChatResponse is the caller-facing result of one pipeline run.
type ChatResponse struct {
	RequestID string `json:"request_id"`
	Outcome   string `json:"outcome"`
	Response  string `json:"response,omitempty"`
	BlockedAt string `json:"blocked_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RiskScore int    `json:"risk_score"`
	StepUp    bool   `json:"step_up,omitempty"`
}

// Server routes chat requests through the pipeline.
type Server struct {
	pipe    *pipeline.Pipeline
	metrics *telemetry.Metrics
	logger  zerolog.Logger
	mux     *http.ServeMux
}

// New creates the HTTP surface. metrics may be nil to disable the
// scrape endpoint.
func New(pipe *pipeline.Pipeline, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		pipe:    pipe,
		metrics: metrics,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/v1/chat", s.handleChat)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("/metrics", metrics.Handler())
		pipe.Observe(func(rec *pipeline.Record) {
			stage := ""
			if rec.Outcome == pipeline.OutcomeBlocked {
				stage = rec.BlockedAt
			}
			metrics.ObserveRun(string(rec.Outcome), stage, rec.FinalRiskScore, time.Since(rec.Timestamp))
		})
	}
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	rec, err := s.pipe.Run(r.Context(), pipeline.Request{
		Prompt:   req.Message,
		Role:     req.UserRole,
		Identity: req.UserID,
	})

	logEvent := s.logger.Info()
	status := http.StatusOK
	switch rec.Outcome {
	case pipeline.OutcomeBlocked:
		logEvent = s.logger.Warn()
		status = http.StatusForbidden
	case pipeline.OutcomeFailed:
		logEvent = s.logger.Error().Err(err)
		status = http.StatusBadGateway
	}
	logEvent.
		Str("request_id", rec.RequestID).
		Str("identity", rec.Identity).
		Str("role", rec.Role).
		Str("outcome", string(rec.Outcome)).
		Str("blocked_at", rec.BlockedAt).
		Int("risk_score", rec.FinalRiskScore).
		Msg("chat request")

	writeJSON(w, status, ChatResponse{
		RequestID: rec.RequestID,
		Outcome:   string(rec.Outcome),
		Response:  rec.Response,
		BlockedAt: rec.BlockedAt,
		Reason:    rec.Reason,
		RiskScore: rec.FinalRiskScore,
		StepUp:    rec.StepUp,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
