package handlers

import (
	"chat-workspace/internal/app"
	"net/http"
)

func enableCORS(origin string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// NewRouter registers every API route on a Go 1.22+ ServeMux
func NewRouter(config *app.Config) http.Handler {
	h := NewHandlers(config)
	origin := config.AppConfig.Server.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	mux := http.NewServeMux()
	public := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, enableCORS(origin, fn))
	}
	protected := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, enableCORS(origin, config.Auth.Middleware(fn)))
	}

	// CORS preflight for every API path
	public("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) {})

	// Public routes
	public("POST /api/login", config.Auth.LoginHandler)
	public("GET /api/health", h.HealthHandler)

	// Sessions
	protected("GET /api/sessions", h.ListSessionsHandler)
	protected("POST /api/sessions", h.CreateSessionHandler)
	protected("GET /api/sessions/current", h.GetCurrentSessionHandler)
	protected("PUT /api/sessions/current", h.SwitchSessionHandler)
	protected("DELETE /api/sessions/{id}", h.DeleteSessionHandler)

	// Messages
	protected("GET /api/sessions/{id}/messages", h.GetMessagesHandler)
	protected("POST /api/sessions/{id}/chat", h.ChatHandler)
	protected("POST /api/sessions/{id}/messages/{messageID}/regenerate", h.RegenerateHandler)

	// Files
	protected("GET /api/sessions/{id}/files", h.ListFilesHandler)
	protected("GET /api/sessions/{id}/files/{name...}", h.GetFileHandler)
	protected("PUT /api/sessions/{id}/files/{name...}", h.PutFileHandler)
	protected("DELETE /api/sessions/{id}/files/{name...}", h.DeleteFileHandler)
	protected("GET /api/sessions/{id}/export", h.ExportHandler)

	// Beast mode
	protected("POST /api/sessions/{id}/beast", h.StartBeastHandler)
	protected("GET /api/sessions/{id}/beast", h.BeastStatusHandler)
	protected("POST /api/sessions/{id}/beast/approve", h.ApproveBeastHandler)
	protected("POST /api/sessions/{id}/beast/resume", h.ResumeBeastHandler)
	protected("POST /api/sessions/{id}/beast/stop", h.StopBeastHandler)
	protected("GET /api/sessions/{id}/beast/events", h.BeastEventsHandler)

	// Settings, memory and metadata
	protected("GET /api/settings", h.GetSettingsHandler)
	protected("PUT /api/settings", h.UpdateSettingsHandler)
	protected("GET /api/memory", h.GetMemoryHandler)
	protected("PUT /api/memory", h.UpdateMemoryHandler)
	protected("GET /api/models", h.GetModelsHandler)
	protected("GET /api/analytics", h.GetAnalyticsHandler)

	protected("POST /api/deploy", h.NotImplementedHandler)
	protected("POST /api/github/repos", h.NotImplementedHandler)

	return mux
}
