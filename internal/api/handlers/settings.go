package handlers

import (
	"chat-workspace/internal/config"
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type ModelsResponse struct {
	Models []config.Model `json:"models"`
}

// maskKey hides all but the edges of an API key
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// GetSettingsHandler returns settings with the API key masked
func (h *Handlers) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	s := h.config.Store.Settings()
	s.APIKey = maskKey(s.APIKey)
	h.writeJSON(w, http.StatusOK, s)
}

// UpdateSettingsHandler replaces settings. Sending back the masked key keeps the stored one.
func (h *Handlers) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req db.Settings
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validator.ValidateSettings(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	current := h.config.Store.Settings()
	if req.APIKey != "" && req.APIKey == maskKey(current.APIKey) {
		req.APIKey = current.APIKey
	}
	h.config.Store.UpdateSettings(req)

	logger.Log.WithFields(logrus.Fields{
		"provider": req.Provider,
		"model":    req.Model,
	}).Info("Settings updated")

	req.APIKey = maskKey(req.APIKey)
	h.writeJSON(w, http.StatusOK, req)
}

// GetMemoryHandler returns what the assistant remembers about the user
func (h *Handlers) GetMemoryHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.config.Store.Memory())
}

// UpdateMemoryHandler replaces the user memory
func (h *Handlers) UpdateMemoryHandler(w http.ResponseWriter, r *http.Request) {
	var req db.UserMemory
	if !h.decode(w, r, &req) {
		return
	}
	h.config.Store.UpdateMemory(req)
	h.writeJSON(w, http.StatusOK, h.config.Store.Memory())
}

// GetModelsHandler returns the available models, optionally for one provider
func (h *Handlers) GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	models := h.config.ModelsConfig().GetAvailableModels()
	if provider := r.URL.Query().Get("provider"); provider != "" {
		models = h.config.ModelsConfig().ForProvider(provider)
	}
	h.writeJSON(w, http.StatusOK, ModelsResponse{Models: models})
}

// GetAnalyticsHandler returns usage counters
func (h *Handlers) GetAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.config.Store.Analytics())
}
