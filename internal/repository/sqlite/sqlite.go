package sqlite

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ensure SQLiteDB implements db.StateStore interface
var _ db.StateStore = (*SQLiteDB)(nil)

// SQLiteDB keeps the snapshot as a single row in a local database file
type SQLiteDB struct {
	conn *sql.DB
}

// NewSQLiteDB opens (creating if needed) the database at path and migrates it
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &SQLiteDB{conn: conn}
	if err := s.RunMigrations(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Log.WithField("path", path).Info("Opened SQLite state store")
	return s, nil
}

// Load reads the saved snapshot
func (s *SQLiteDB) Load(ctx context.Context) (*db.Snapshot, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM app_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var snapshot db.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &snapshot, nil
}

// Save replaces the saved snapshot
func (s *SQLiteDB) Save(ctx context.Context, snapshot *db.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	query := `
		INSERT INTO app_state (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`
	if _, err := s.conn.ExecContext(ctx, query, string(payload), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// RunMigrations applies the embedded schema migrations
func (s *SQLiteDB) RunMigrations() error {
	driver, err := sqlite.WithInstance(s.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("error opening migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("error running migrations: %w", err)
	}
	return nil
}
