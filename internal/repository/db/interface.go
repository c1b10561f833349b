package db

import (
	"context"
	"errors"
)

// ErrNoState is returned by Load when nothing has been saved yet
var ErrNoState = errors.New("no saved state")

// StateStore persists the application snapshot.
// Every state change writes a full snapshot; startup reads it once.
type StateStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
	Close() error
}
