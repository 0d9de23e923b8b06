// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/pprof"
	"strconv"

	"agribot/internal/auth"
	"agribot/internal/common/errors"
	"agribot/internal/common/logger"
	"agribot/internal/common/validation"
	"agribot/internal/conversation"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// chatRequestSchema validates the chat payload before dispatch.
const chatRequestSchema = `{
	"type": "object",
	"required": ["user_id", "query"],
	"properties": {
		"user_id": {"type": "string", "minLength": 1},
		"query": {"type": "string"},
		"language": {"type": "string"}
	},
	"additionalProperties": false
}`

// QueryProcessor resolves one chat query.
type QueryProcessor interface {
	Process(ctx context.Context, userID, rawQuery, inputLang string) string
}

// Server exposes the chat, auth and history endpoints plus the operational
// surface (/healthz, /metrics, pprof).
type Server struct {
	pipeline  QueryProcessor
	auth      *auth.Service
	history   *conversation.Store
	supported map[string]bool
	canonical string
	logger    logger.Logger
}

func New(p QueryProcessor, authService *auth.Service, history *conversation.Store, canonicalLang string, supportedLangs []string, log logger.Logger) *Server {
	supported := make(map[string]bool, len(supportedLangs))
	for _, lang := range supportedLangs {
		supported[lang] = true
	}
	return &Server{
		pipeline:  p,
		auth:      authService,
		history:   history,
		supported: supported,
		canonical: canonicalLang,
		logger: log.With(map[string]interface{}{
			"component": "server",
		}),
	}
}

// Handler builds the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

type chatRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	Language string `json:"language"`
}

type chatResponse struct {
	Response string `json:"response"`
	Language string `json:"language"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	result, err := validation.ValidateJSON(body, chatRequestSchema)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}
	if !result.Valid {
		s.logger.Warn("chat payload rejected", map[string]interface{}{
			"errors": result.GetErrorMessages(),
		})
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	if req.Language == "" {
		req.Language = s.canonical
	}
	if !s.supported[req.Language] {
		s.writeError(w, http.StatusBadRequest, "unsupported language")
		return
	}

	answer := s.pipeline.Process(r.Context(), req.UserID, req.Query, req.Language)

	s.writeJSON(w, http.StatusOK, chatResponse{
		Response: answer,
		Language: req.Language,
	})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	if err := s.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		if stdErr, ok := err.(*errors.StandardError); ok {
			switch stdErr.Code {
			case errors.ErrCodeDuplicateUser:
				s.writeError(w, http.StatusConflict, "username already exists")
				return
			case errors.ErrCodeInvalidRequest:
				s.writeError(w, http.StatusBadRequest, "username and password are required")
				return
			}
		}
		s.logger.WithError(err).Error("registration failed", nil)
		s.writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	ok, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.WithError(err).Error("login failed", nil)
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "authenticated", "username": req.Username})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	turns, err := s.history.History(r.Context(), userID, limit)
	if err != nil {
		s.logger.WithError(err).Error("history read failed", map[string]interface{}{
			"user_id": userID,
		})
		s.writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": turns})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("writing response failed", nil)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
