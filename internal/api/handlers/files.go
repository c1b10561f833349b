package handlers

import (
	"chat-workspace/internal/export"
	"chat-workspace/internal/repository/db"
	"fmt"
	"net/http"
)

type FilesResponse struct {
	Files []db.FileArtifact `json:"files"`
}

type PutFileRequest struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

type PutFileResponse struct {
	File    db.FileArtifact `json:"file"`
	Created bool            `json:"created"`
}

// ListFilesHandler lists a session's workspace
func (h *Handlers) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	files, err := h.config.Store.Files(h.sessionID(r))
	if err != nil {
		h.sendServiceError(w, r, "Error retrieving files", err)
		return
	}
	h.writeJSON(w, http.StatusOK, FilesResponse{Files: files})
}

// GetFileHandler returns one file
func (h *Handlers) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	f, err := h.config.Store.File(h.sessionID(r), r.PathValue("name"))
	if err != nil {
		h.sendServiceError(w, r, "Error retrieving file", err)
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

// PutFileHandler creates or replaces a file
func (h *Handlers) PutFileHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.validator.ValidateFileName(name); err != nil {
		h.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}
	var req PutFileRequest
	if !h.decode(w, r, &req) {
		return
	}

	f, created, err := h.config.Store.UpsertFile(h.sessionID(r), name, req.Content, req.Language)
	if err != nil {
		h.sendServiceError(w, r, "Error writing file", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, PutFileResponse{File: f, Created: created})
}

// DeleteFileHandler removes a file
func (h *Handlers) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.config.Store.DeleteFile(h.sessionID(r), r.PathValue("name")); err != nil {
		h.sendServiceError(w, r, "Error deleting file", err)
		return
	}
	h.writeJSON(w, http.StatusOK, DeleteResponse{Success: true, Message: "File deleted successfully"})
}

// ExportHandler downloads a session in the requested format
func (h *Handlers) ExportHandler(w http.ResponseWriter, r *http.Request) {
	exporter, err := export.NewExporter(r.URL.Query().Get("format"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "Unsupported export format", err)
		return
	}
	s, err := h.config.Store.Session(h.sessionID(r))
	if err != nil {
		h.sendServiceError(w, r, "Error exporting session", err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(&s, exporter)))
	if err := exporter.Export(&s, w); err != nil {
		h.sendServiceError(w, r, "Error exporting session", err)
	}
}
