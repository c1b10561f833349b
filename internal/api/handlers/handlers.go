package handlers

import (
	"chat-workspace/internal/app"
	"chat-workspace/internal/logger"
	"chat-workspace/internal/service/beast"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/llm"
	"chat-workspace/internal/service/session"
	"chat-workspace/internal/workspace"
	"chat-workspace/pkg/validation"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type DeleteResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	CurrentSessionID string `json:"current_session_id,omitempty"`
}

// Handlers serves the HTTP API over the application services
type Handlers struct {
	config    *app.Config
	validator *validation.ChatRequestValidator
	upgrader  websocket.Upgrader
}

// NewHandlers creates a new Handlers
func NewHandlers(config *app.Config) *Handlers {
	origin := config.AppConfig.Server.AllowedOrigin
	return &Handlers{
		config:    config,
		validator: validation.NewChatRequestValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return o == "" || origin == "*" || o == origin
			},
		},
	}
}

// sendError sends a standardized JSON error response
func (h *Handlers) sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Error = err.Error()
	}
	json.NewEncoder(w).Encode(errResp)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// sessionID resolves the {id} path value; "current" names the current session
func (h *Handlers) sessionID(r *http.Request) string {
	id := r.PathValue("id")
	if id == "current" {
		return h.config.Store.CurrentID()
	}
	return id
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var cfgErr *llm.ConfigError
	var transportErr *llm.TransportError
	var emptyErr *llm.EmptyResponseError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrMessageNotFound),
		errors.Is(err, workspace.ErrFileNotFound),
		errors.Is(err, beast.ErrNoRun):
		return http.StatusNotFound
	case errors.Is(err, beast.ErrRunActive),
		errors.Is(err, beast.ErrNotAwaitingApprove),
		errors.Is(err, beast.ErrNotPaused):
		return http.StatusConflict
	case errors.Is(err, chat.ErrNotAssistantMessage),
		errors.Is(err, chat.ErrNoPrompt),
		errors.Is(err, beast.ErrEmptyTask),
		errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &transportErr), errors.As(err, &emptyErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) sendServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Log.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}).WithError(err).Error(message)
	}
	h.sendError(w, status, message, err)
}

// NotImplementedHandler answers routes whose collaborators live outside this service
func (h *Handlers) NotImplementedHandler(w http.ResponseWriter, r *http.Request) {
	h.sendError(w, http.StatusNotImplemented, "Not implemented", nil)
}

// HealthHandler reports liveness
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
