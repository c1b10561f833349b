package memory

import (
	"chat-workspace/internal/repository/db"
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Ensure Store implements db.StateStore interface
var _ db.StateStore = (*Store)(nil)

// Store keeps the last saved snapshot in memory, encoded so callers never share state
type Store struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Load(ctx context.Context) (*db.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, db.ErrNoState
	}
	var snapshot db.Snapshot
	if err := json.Unmarshal(s.data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &snapshot, nil
}

func (s *Store) Save(ctx context.Context, snapshot *db.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	s.mu.Lock()
	s.data = data
	s.saves++
	s.mu.Unlock()
	return nil
}

// Saves returns how many snapshots have been written
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Store) Close() error {
	return nil
}
