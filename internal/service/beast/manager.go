package beast

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/session"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State is a step of the beast run state machine
type State string

const (
	StateIdle             State = "idle"
	StatePlanning         State = "planning"
	StateAwaitingApproval State = "awaiting_approval"
	StateExecuting        State = "executing"
	StatePaused           State = "paused"
	StateFinished         State = "finished"
	StateStopped          State = "stopped"
)

// Terminal reports whether no further transitions can happen
func (s State) Terminal() bool {
	return s == StateFinished || s == StateStopped
}

var (
	ErrRunActive          = errors.New("a beast run is already active for this session")
	ErrNoRun              = errors.New("no beast run for this session")
	ErrNotAwaitingApprove = errors.New("run is not awaiting plan approval")
	ErrNotPaused          = errors.New("run is not paused")
	ErrEmptyTask          = errors.New("task is required")
)

// Completer makes one orchestrated model call. *chat.ChatService satisfies it.
type Completer interface {
	Send(ctx context.Context, req chat.SendRequest) (string, error)
}

// Config bounds a run
type Config struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxIterations    int
	AutoApproveDelay time.Duration
}

// DefaultConfig returns the limits used when none are configured
func DefaultConfig() Config {
	return Config{
		MaxRetries:       3,
		BaseDelay:        time.Second,
		MaxDelay:         30 * time.Second,
		MaxIterations:    25,
		AutoApproveDelay: 3 * time.Second,
	}
}

// Status is a point-in-time view of a run
type Status struct {
	SessionID string    `json:"session_id"`
	Task      string    `json:"task"`
	State     State     `json:"state"`
	Plan      string    `json:"plan,omitempty"`
	Iteration int       `json:"iteration"`
	Attempts  int       `json:"attempts"`
	Failures  int       `json:"failures"`
	Files     []string  `json:"files,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager owns at most one live run per session
type Manager struct {
	store     *session.Store
	completer Completer
	cfg       Config
	events    *broker

	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	runs map[string]*Run
}

// NewManager creates a new Manager. Zero fields in cfg fall back to DefaultConfig.
func NewManager(store *session.Store, completer Completer, cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.AutoApproveDelay < 0 {
		cfg.AutoApproveDelay = 0
	}
	return &Manager{
		store:     store,
		completer: completer,
		cfg:       cfg,
		events:    newBroker(),
		sleep:     sleepContext,
		runs:      make(map[string]*Run),
	}
}

// Start plans and executes task in the given session in the background
func (m *Manager) Start(sessionID, task string) (Status, error) {
	if task == "" {
		return Status{}, ErrEmptyTask
	}
	if _, err := m.store.Session(sessionID); err != nil {
		return Status{}, err
	}

	m.mu.Lock()
	if r, ok := m.runs[sessionID]; ok && !r.status.State.Terminal() {
		m.mu.Unlock()
		return Status{}, ErrRunActive
	}
	r := newRun(m, sessionID, task)
	m.runs[sessionID] = r
	m.mu.Unlock()

	m.store.UpdateAnalytics(func(a *db.Analytics) { a.BeastRuns++ })
	logger.Log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"task":       task,
	}).Info("Starting beast run")

	go r.loop()
	return r.Status(), nil
}

// Approve releases a run waiting on its plan
func (m *Manager) Approve(sessionID string) error {
	r, err := m.run(sessionID)
	if err != nil {
		return err
	}
	return r.signal(StateAwaitingApproval, r.approve, ErrNotAwaitingApprove)
}

// Resume continues a paused run
func (m *Manager) Resume(sessionID string) error {
	r, err := m.run(sessionID)
	if err != nil {
		return err
	}
	return r.signal(StatePaused, r.resume, ErrNotPaused)
}

// Stop halts a run from any state. Stopping a finished run is a no-op.
func (m *Manager) Stop(sessionID string) error {
	r, err := m.run(sessionID)
	if err != nil {
		return err
	}
	r.stop()
	return nil
}

// Status returns the latest status of the session's most recent run
func (m *Manager) Status(sessionID string) (Status, error) {
	r, err := m.run(sessionID)
	if err != nil {
		return Status{}, err
	}
	return r.Status(), nil
}

// Done returns a channel closed when the session's run goroutine exits
func (m *Manager) Done(sessionID string) (<-chan struct{}, error) {
	r, err := m.run(sessionID)
	if err != nil {
		return nil, err
	}
	return r.done, nil
}

// Subscribe streams events for a session until cancel is called
func (m *Manager) Subscribe(sessionID string) (<-chan Event, func()) {
	return m.events.subscribe(sessionID)
}

// Shutdown stops every live run and waits for them to exit
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.Unlock()

	for _, r := range runs {
		r.stop()
	}
	for _, r := range runs {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) run(sessionID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[sessionID]
	if !ok {
		return nil, ErrNoRun
	}
	return r, nil
}

// backoff returns base*2^(failures-1) capped at max
func backoff(base, max time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
