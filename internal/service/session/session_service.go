package session

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/workspace"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTitle is used until the first user message names the session
const DefaultTitle = "New Chat"

const (
	maxTitleRunes = 100
	saveTimeout   = 5 * time.Second
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
)

type entry struct {
	meta     db.Session
	messages []db.Message
	files    *workspace.Workspace
}

// Store owns sessions, their message logs and file workspaces, settings,
// user memory and analytics. There is always exactly one current session.
// All methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	currentID string
	settings  db.Settings
	memory    db.UserMemory
	analytics db.Analytics

	saveMu sync.Mutex
	state  db.StateStore
	now    func() time.Time
}

// NewStore creates an empty store with one fresh session.
// state may be nil for a purely in-memory store.
func NewStore(state db.StateStore, defaults db.Settings) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		settings: copySettings(defaults),
		state:    state,
		now:      time.Now,
	}
	s.createLocked("")
	return s
}

// Open creates a store from the persisted snapshot, falling back to a fresh
// store when nothing has been saved yet.
func Open(ctx context.Context, state db.StateStore, defaults db.Settings) (*Store, error) {
	snapshot, err := state.Load(ctx)
	if errors.Is(err, db.ErrNoState) {
		logger.Log.Info("No saved state found, starting fresh")
		s := NewStore(state, defaults)
		s.persist()
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	migrated := snapshot.MigrateLegacy()
	s := &Store{
		sessions:  make(map[string]*entry, len(snapshot.Sessions)),
		currentID: snapshot.CurrentSessionID,
		settings:  copySettings(snapshot.Settings),
		memory:    copyMemory(snapshot.Memory),
		analytics: snapshot.Analytics,
		state:     state,
		now:       time.Now,
	}
	for _, sess := range snapshot.Sessions {
		meta := sess
		meta.Messages = nil
		meta.Files = nil
		s.sessions[sess.ID] = &entry{
			meta:     meta,
			messages: append([]db.Message(nil), sess.Messages...),
			files:    workspace.Restore(sess.Files),
		}
	}
	if _, ok := s.sessions[s.currentID]; !ok {
		s.createLocked("")
		migrated = true
	}

	logger.Log.WithFields(logrus.Fields{
		"sessions":        len(s.sessions),
		"current_session": s.currentID,
		"migrated":        migrated,
	}).Info("State loaded")

	if migrated {
		s.persist()
	}
	return s, nil
}

// CreateSession creates a session with an empty message log and workspace and makes it current
func (s *Store) CreateSession(title string) db.Session {
	s.mu.Lock()
	e := s.createLocked(title)
	out := e.snapshot()
	s.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{"session_id": out.ID, "title": out.Title}).Info("Session created")
	s.persist()
	return out
}

func (s *Store) createLocked(title string) *entry {
	now := s.now()
	e := &entry{
		meta: db.Session{
			ID:        uuid.New().String(),
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		},
		files: workspace.New(),
	}
	if title == "" {
		e.meta.Title = DefaultTitle
		e.meta.AutoTitle = true
	}
	s.sessions[e.meta.ID] = e
	s.currentID = e.meta.ID
	return e
}

// SwitchSession makes an existing session current
func (s *Store) SwitchSession(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.currentID = id
	s.mu.Unlock()

	s.persist()
	return nil
}

// DeleteSession removes a session. Deleting the current session creates a
// fresh one so the store is never without a current session.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	replaced := ""
	if s.currentID == id {
		replaced = s.createLocked("").meta.ID
	}
	s.mu.Unlock()

	logger.Log.WithFields(logrus.Fields{"session_id": id, "new_current": replaced}).Info("Session deleted")
	s.persist()
	return nil
}

// CurrentID returns the id of the current session
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// CurrentSession returns a copy of the current session
func (s *Store) CurrentSession() db.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[s.currentID].snapshot()
}

// Session returns a copy of the session including messages and files
func (s *Store) Session(id string) (db.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return db.Session{}, ErrSessionNotFound
	}
	return e.snapshot(), nil
}

// Sessions returns copies of all sessions, most recently updated first
func (s *Store) Sessions() []db.Session {
	s.mu.RLock()
	out := make([]db.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Settings returns a copy of the current settings
func (s *Store) Settings() db.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySettings(s.settings)
}

// UpdateSettings replaces the settings verbatim
func (s *Store) UpdateSettings(settings db.Settings) {
	s.mu.Lock()
	s.settings = copySettings(settings)
	s.mu.Unlock()
	s.persist()
}

// Memory returns a copy of the user memory
func (s *Store) Memory() db.UserMemory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMemory(s.memory)
}

// UpdateMemory replaces the user memory, truncating its history tail
func (s *Store) UpdateMemory(memory db.UserMemory) {
	m := copyMemory(memory)
	if len(m.History) > db.MaxMemoryHistory {
		m.History = m.History[len(m.History)-db.MaxMemoryHistory:]
	}
	s.mu.Lock()
	s.memory = m
	s.mu.Unlock()
	s.persist()
}

// Remember appends one entry to the memory history tail
func (s *Store) Remember(entry string) {
	s.mu.Lock()
	s.memory.Remember(entry)
	s.mu.Unlock()
	s.persist()
}

// Analytics returns the usage counters
func (s *Store) Analytics() db.Analytics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analytics
}

// UpdateAnalytics applies fn to the usage counters
func (s *Store) UpdateAnalytics(fn func(a *db.Analytics)) {
	s.mu.Lock()
	fn(&s.analytics)
	s.mu.Unlock()
	s.persist()
}

// Snapshot captures the whole state for persistence or export
func (s *Store) Snapshot() *db.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &db.Snapshot{
		Sessions:         make([]db.Session, 0, len(s.sessions)),
		CurrentSessionID: s.currentID,
		Settings:         copySettings(s.settings),
		Memory:           copyMemory(s.memory),
		Analytics:        s.analytics,
	}
	for _, e := range s.sessions {
		snap.Sessions = append(snap.Sessions, e.snapshot())
	}
	sort.Slice(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].CreatedAt.Before(snap.Sessions[j].CreatedAt)
	})
	return snap
}

// persist writes a fresh snapshot. The save mutex keeps writes ordered so the
// last write always carries the latest state.
func (s *Store) persist() {
	if s.state == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.state.Save(ctx, s.Snapshot()); err != nil {
		logger.Log.WithError(err).Error("Failed to persist state")
	}
}

func (e *entry) snapshot() db.Session {
	out := e.meta
	out.Messages = append([]db.Message{}, e.messages...)
	out.Files = e.files.List()
	return out
}

func copySettings(in db.Settings) db.Settings {
	out := in
	if in.Toggles != nil {
		out.Toggles = make(map[string]bool, len(in.Toggles))
		for k, v := range in.Toggles {
			out.Toggles[k] = v
		}
	}
	return out
}

func copyMemory(in db.UserMemory) db.UserMemory {
	out := in
	out.Preferences = append([]string(nil), in.Preferences...)
	out.History = append([]string(nil), in.History...)
	return out
}

func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return string(runes[:maxTitleRunes])
}
