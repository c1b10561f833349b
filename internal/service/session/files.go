package session

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// UpsertFile writes a file into a session's workspace and reports whether it was created
func (s *Store) UpsertFile(sessionID, name, content, language string) (db.FileArtifact, bool, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return db.FileArtifact{}, false, ErrSessionNotFound
	}
	artifact, created := e.files.CreateOrUpdate(name, content, language)
	e.meta.UpdatedAt = artifact.LastModified
	if created {
		s.analytics.FilesCreated++
	} else {
		s.analytics.FilesUpdated++
	}
	s.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"file":       name,
		"language":   artifact.Language,
		"created":    created,
	}).Debug("File written")

	s.persist()
	return artifact, created, nil
}

// DeleteFile removes a file from a session's workspace
func (s *Store) DeleteFile(sessionID, name string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if err := e.files.Delete(name); err != nil {
		s.mu.Unlock()
		return err
	}
	e.meta.UpdatedAt = s.now()
	s.mu.Unlock()

	s.persist()
	return nil
}

// File returns one file from a session's workspace
func (s *Store) File(sessionID, name string) (db.FileArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return db.FileArtifact{}, ErrSessionNotFound
	}
	return e.files.Get(name)
}

// Files lists a session's workspace in order of first creation
func (s *Store) Files(sessionID string) ([]db.FileArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.files.List(), nil
}
