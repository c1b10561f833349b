package handlers

import (
	"chat-workspace/internal/logger"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

type StartBeastRequest struct {
	Task string `json:"task"`
}

// StartBeastHandler starts a beast run in the session
func (h *Handlers) StartBeastHandler(w http.ResponseWriter, r *http.Request) {
	var req StartBeastRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.config.Beast.Start(h.sessionID(r), req.Task)
	if err != nil {
		h.sendServiceError(w, r, "Error starting beast mode", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, st)
}

// BeastStatusHandler returns the session's latest run status
func (h *Handlers) BeastStatusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.config.Beast.Status(h.sessionID(r))
	if err != nil {
		h.sendServiceError(w, r, "Error retrieving beast status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// ApproveBeastHandler approves the plan of a waiting run
func (h *Handlers) ApproveBeastHandler(w http.ResponseWriter, r *http.Request) {
	h.beastControl(w, r, "Error approving plan", h.config.Beast.Approve)
}

// ResumeBeastHandler resumes a paused run
func (h *Handlers) ResumeBeastHandler(w http.ResponseWriter, r *http.Request) {
	h.beastControl(w, r, "Error resuming beast mode", h.config.Beast.Resume)
}

// StopBeastHandler stops a run from any state
func (h *Handlers) StopBeastHandler(w http.ResponseWriter, r *http.Request) {
	h.beastControl(w, r, "Error stopping beast mode", h.config.Beast.Stop)
}

func (h *Handlers) beastControl(w http.ResponseWriter, r *http.Request, message string, fn func(string) error) {
	id := h.sessionID(r)
	if err := fn(id); err != nil {
		h.sendServiceError(w, r, message, err)
		return
	}
	st, _ := h.config.Beast.Status(id)
	h.writeJSON(w, http.StatusOK, st)
}

// BeastEventsHandler streams run events over a WebSocket until the client goes away
func (h *Handlers) BeastEventsHandler(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(r)
	if _, err := h.config.Store.Session(id); err != nil {
		h.sendServiceError(w, r, "Error subscribing to beast events", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.config.Beast.Subscribe(id)
	defer cancel()

	logger.Log.WithField("session_id", id).Info("Beast events client connected")

	// reader: handles pongs and notices the client closing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Log.WithError(err).Warn("WebSocket read error")
				}
				return
			}
		}
	}()

	// the current status goes first so late subscribers are in sync
	if st, err := h.config.Beast.Status(id); err == nil {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(map[string]any{"type": "status", "session_id": id, "status": st}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Log.WithFields(logrus.Fields{"session_id": id}).WithError(err).Debug("WebSocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
