package session

import (
	"chat-workspace/internal/repository/db"
	"strings"

	"github.com/google/uuid"
)

// Append adds a message to the end of a session's log.
// The first user message of an untitled session becomes its title.
func (s *Store) Append(sessionID, role, content string) (db.Message, error) {
	return s.appendMessage(sessionID, role, content, false)
}

// AppendNotice records an assistant-side status message, such as a rendered
// error, that is displayed and exported but left out of the conversation
func (s *Store) AppendNotice(sessionID, content string) (db.Message, error) {
	return s.appendMessage(sessionID, db.RoleAssistant, content, true)
}

func (s *Store) appendMessage(sessionID, role, content string, notice bool) (db.Message, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return db.Message{}, ErrSessionNotFound
	}

	msg := db.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
		Notice:    notice,
	}
	if role == db.RoleUser && e.meta.AutoTitle && !e.hasRole(db.RoleUser) {
		if title := strings.TrimSpace(content); title != "" {
			e.meta.Title = truncateTitle(title)
			e.meta.AutoTitle = false
		}
	}
	e.messages = append(e.messages, msg)
	e.meta.UpdatedAt = msg.Timestamp
	s.mu.Unlock()

	s.persist()
	return msg, nil
}

// RemoveThinking removes every thinking placeholder from a session's log and
// returns how many were removed. Removing none is not an error.
func (s *Store) RemoveThinking(sessionID string) (int, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return 0, ErrSessionNotFound
	}

	kept := e.messages[:0]
	removed := 0
	for _, m := range e.messages {
		if m.Role == db.RoleThinking {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	e.messages = kept
	s.mu.Unlock()

	if removed > 0 {
		s.persist()
	}
	return removed, nil
}

// ReplaceContent rewrites one message in place, keeping its position in the log
func (s *Store) ReplaceContent(sessionID, messageID, content string) (db.Message, error) {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return db.Message{}, ErrSessionNotFound
	}

	for i := range e.messages {
		if e.messages[i].ID != messageID {
			continue
		}
		e.messages[i].Content = content
		e.messages[i].Notice = false
		e.messages[i].Timestamp = s.now()
		e.meta.UpdatedAt = e.messages[i].Timestamp
		msg := e.messages[i]
		s.mu.Unlock()

		s.persist()
		return msg, nil
	}
	s.mu.Unlock()
	return db.Message{}, ErrMessageNotFound
}

// Messages returns a copy of a session's log in insertion order
func (s *Store) Messages(sessionID string) ([]db.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return append([]db.Message{}, e.messages...), nil
}

// Conversation returns up to n of the latest user and assistant messages that
// precede beforeID. An empty beforeID means the end of the log; n <= 0 means no limit.
// Notices are skipped, and so is a user message answered only by a notice.
func (s *Store) Conversation(sessionID, beforeID string, n int) ([]db.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	var turns []db.Message
	for _, m := range e.messages {
		if beforeID != "" && m.ID == beforeID {
			break
		}
		if m.Notice {
			if k := len(turns); k > 0 && turns[k-1].Role == db.RoleUser {
				turns = turns[:k-1]
			}
			continue
		}
		if m.Role == db.RoleUser || m.Role == db.RoleAssistant {
			turns = append(turns, m)
		}
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]db.Message{}, turns...), nil
}

func (e *entry) hasRole(role string) bool {
	for _, m := range e.messages {
		if m.Role == role {
			return true
		}
	}
	return false
}
