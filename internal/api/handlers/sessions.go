package handlers

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/llm"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type SessionInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"message_count"`
	FileCount    int    `json:"file_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type SessionsResponse struct {
	Sessions         []SessionInfo `json:"sessions"`
	CurrentSessionID string        `json:"current_session_id"`
}

type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type SwitchSessionRequest struct {
	ID string `json:"id"`
}

type MessagesResponse struct {
	Messages []db.Message `json:"messages"`
}

type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"`
}

type ChatResponse struct {
	UserMessage *db.Message       `json:"user_message,omitempty"`
	Reply       *db.Message       `json:"reply,omitempty"`
	Files       []db.FileArtifact `json:"files,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorClass  string            `json:"error_class,omitempty"`
}

type RegenerateRequest struct {
	Mode string `json:"mode,omitempty"`
}

func toSessionInfo(s db.Session) SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		Title:        s.Title,
		MessageCount: len(s.Messages),
		FileCount:    len(s.Files),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}

// ListSessionsHandler returns all sessions, most recently updated first
func (h *Handlers) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.config.Store.Sessions()
	resp := SessionsResponse{
		Sessions:         make([]SessionInfo, 0, len(sessions)),
		CurrentSessionID: h.config.Store.CurrentID(),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionInfo(s))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateSessionHandler creates a session and makes it current
func (h *Handlers) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	s := h.config.Store.CreateSession(req.Title)
	h.writeJSON(w, http.StatusCreated, toSessionInfo(s))
}

// GetCurrentSessionHandler returns the current session with messages and files
func (h *Handlers) GetCurrentSessionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.config.Store.CurrentSession())
}

// SwitchSessionHandler makes another session current
func (h *Handlers) SwitchSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req SwitchSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.config.Store.SwitchSession(req.ID); err != nil {
		h.sendServiceError(w, r, "Error switching session", err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.config.Store.CurrentSession())
}

// DeleteSessionHandler removes a session and any beast run attached to it
func (h *Handlers) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	// a run may outlive its session otherwise
	h.config.Beast.Stop(id)

	if err := h.config.Store.DeleteSession(id); err != nil {
		h.sendServiceError(w, r, "Error deleting session", err)
		return
	}
	h.writeJSON(w, http.StatusOK, DeleteResponse{
		Success:          true,
		Message:          "Session deleted successfully",
		CurrentSessionID: h.config.Store.CurrentID(),
	})
}

// GetMessagesHandler returns a session's message log in order
func (h *Handlers) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.config.Store.Messages(h.sessionID(r))
	if err != nil {
		h.sendServiceError(w, r, "Error retrieving messages", err)
		return
	}
	h.writeJSON(w, http.StatusOK, MessagesResponse{Messages: msgs})
}

// ChatHandler sends a message and returns the reply. Provider failures are
// also recorded in the log, so the reply is returned alongside the error.
func (h *Handlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validator.ValidateChatRequest(req.Message, req.Mode); err != nil {
		h.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	mode, _ := chat.ParseMode(req.Mode)
	id := h.sessionID(r)

	logger.Log.WithFields(logrus.Fields{
		"session_id": id,
		"mode":       mode,
	}).Info("Chat request received")

	result, err := h.config.Chat.SendMessage(r.Context(), id, req.Message, mode)
	if result == nil {
		h.sendServiceError(w, r, "Error processing message", err)
		return
	}

	resp := ChatResponse{
		UserMessage: &result.UserMessage,
		Reply:       &result.Reply,
		Files:       result.Files,
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		resp.ErrorClass = llm.ErrorClass(err)
		status = statusFor(err)
	}
	h.writeJSON(w, status, resp)
}

// RegenerateHandler replaces an assistant reply with a fresh one
func (h *Handlers) RegenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req RegenerateRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	mode, err := chat.ParseMode(req.Mode)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	msg, err := h.config.Chat.Regenerate(r.Context(), h.sessionID(r), r.PathValue("messageID"), mode)
	if err != nil {
		h.sendServiceError(w, r, "Error regenerating message", err)
		return
	}
	h.writeJSON(w, http.StatusOK, msg)
}
