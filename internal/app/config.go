package app

import (
	"chat-workspace/internal/auth"
	"chat-workspace/internal/config"
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/repository/file"
	"chat-workspace/internal/repository/memory"
	"chat-workspace/internal/repository/postgres"
	"chat-workspace/internal/repository/sqlite"
	"chat-workspace/internal/service/beast"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/llm"
	"chat-workspace/internal/service/session"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Config holds all application dependencies and configuration
type Config struct {
	AppConfig *config.AppConfig

	// State persists the snapshot; Store is the in-memory container over it
	State db.StateStore
	Store *session.Store

	Providers llm.ProviderFactory
	Chat      *chat.ChatService
	Beast     *beast.Manager
	Auth      *auth.Authenticator
}

// NewConfig opens the configured state store and wires every service over it
func NewConfig(ctx context.Context, appConfig *config.AppConfig) (*Config, error) {
	state, err := OpenStateStore(appConfig.Database)
	if err != nil {
		return nil, err
	}

	providers := llm.NewFactory(llm.FactoryOptions{
		Timeout: appConfig.LLM.RequestTimeout,
		Referer: appConfig.LLM.Referer,
		Title:   appConfig.LLM.Title,
	})

	c, err := NewConfigWith(ctx, appConfig, state, providers)
	if err != nil {
		state.Close()
		return nil, err
	}
	return c, nil
}

// NewConfigWith wires services over an existing state store and provider factory
func NewConfigWith(ctx context.Context, appConfig *config.AppConfig, state db.StateStore, providers llm.ProviderFactory) (*Config, error) {
	store, err := session.Open(ctx, state, appConfig.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	chatService := chat.NewChatService(store, providers)
	manager := beast.NewManager(store, chatService, beast.Config{
		MaxRetries:       appConfig.Beast.MaxRetries,
		BaseDelay:        appConfig.Beast.BaseDelay,
		MaxDelay:         appConfig.Beast.MaxDelay,
		MaxIterations:    appConfig.Beast.MaxIterations,
		AutoApproveDelay: appConfig.Beast.AutoApproveDelay,
	})

	return &Config{
		AppConfig: appConfig,
		State:     state,
		Store:     store,
		Providers: providers,
		Chat:      chatService,
		Beast:     manager,
		Auth:      auth.NewAuthenticator(appConfig.Auth),
	}, nil
}

// OpenStateStore creates the state store selected by the driver setting
func OpenStateStore(cfg config.DatabaseConfig) (db.StateStore, error) {
	logger.Log.WithFields(logrus.Fields{"driver": cfg.Driver}).Info("Opening state store")

	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverFile, "":
		return file.NewStore(cfg.StatePath)
	case config.DriverSQLite:
		return sqlite.NewSQLiteDB(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.NewPostgresDB(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ModelsConfig returns the configured model list
func (c *Config) ModelsConfig() *config.ModelsConfig {
	return c.AppConfig.Models
}

// Close stops beast runs and closes the state store
func (c *Config) Close(ctx context.Context) error {
	var errs []error
	if err := c.Beast.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("beast shutdown: %w", err))
	}
	if err := c.State.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close state: %w", err))
	}
	return errors.Join(errs...)
}
