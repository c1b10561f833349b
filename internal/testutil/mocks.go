package testutil

import (
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/llm"
	"context"
	"errors"
	"sync"
)

// MockStateStore is a mock implementation of db.StateStore for testing
type MockStateStore struct {
	LoadFunc  func(ctx context.Context) (*db.Snapshot, error)
	SaveFunc  func(ctx context.Context, snapshot *db.Snapshot) error
	CloseFunc func() error
}

func (m *MockStateStore) Load(ctx context.Context) (*db.Snapshot, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *MockStateStore) Save(ctx context.Context, snapshot *db.Snapshot) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, snapshot)
	}
	return errors.New("not implemented")
}

func (m *MockStateStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// MockProvider is a mock implementation of llm.Provider that records calls
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (string, error)
	NameValue    string

	mu       sync.Mutex
	Requests []llm.CompletionRequest
}

func (m *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return "", errors.New("not implemented")
}

func (m *MockProvider) Name() string {
	if m.NameValue != "" {
		return m.NameValue
	}
	return "mock"
}

// Calls returns how many times Complete was called
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or the zero value
func (m *MockProvider) LastRequest() llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return llm.CompletionRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// MockProviderFactory is a mock implementation of llm.ProviderFactory.
// It returns Adapter unless ProviderFunc is set.
type MockProviderFactory struct {
	Adapter      llm.Provider
	ProviderFunc func(cfg llm.ProviderConfig) (llm.Provider, error)

	mu      sync.Mutex
	Configs []llm.ProviderConfig
}

func (m *MockProviderFactory) Provider(cfg llm.ProviderConfig) (llm.Provider, error) {
	m.mu.Lock()
	m.Configs = append(m.Configs, cfg)
	m.mu.Unlock()

	if m.ProviderFunc != nil {
		return m.ProviderFunc(cfg)
	}
	if m.Adapter != nil {
		return m.Adapter, nil
	}
	return nil, errors.New("not implemented")
}

// Calls returns how many adapters were requested
func (m *MockProviderFactory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Configs)
}

// NewTestSettings returns settings that pass configuration checks
func NewTestSettings() db.Settings {
	return db.Settings{
		Provider:    "compatible",
		BaseURL:     "http://llm.test/v1",
		APIKey:      "sk-test",
		Model:       "test-model",
		Temperature: 0.7,
		TopP:        1,
		MaxTokens:   1024,
	}
}
