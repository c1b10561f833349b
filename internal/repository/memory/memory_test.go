package memory

import (
	"chat-workspace/internal/repository/db"
	"context"
	"errors"
	"testing"
)

func TestStore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, err := s.Load(ctx); !errors.Is(err, db.ErrNoState) {
		t.Fatalf("Load() error = %v, want ErrNoState", err)
	}

	snap := &db.Snapshot{CurrentSessionID: "a", Sessions: []db.Session{{ID: "a", Title: "A"}}}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	snap.Sessions[0].Title = "mutated"

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Sessions[0].Title != "A" {
		t.Errorf("stored snapshot shares memory with caller: %q", got.Sessions[0].Title)
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", s.Saves())
	}
}
