package config

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Auth     AuthConfig
	Beast    BeastConfig
	Models   *ModelsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	AllowedOrigin   string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and configures the state store
type DatabaseConfig struct {
	Driver     string
	StatePath  string
	SQLitePath string

	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LLMConfig holds the provider defaults applied to fresh settings
type LLMConfig struct {
	Provider         string
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	TopP             float64
	MaxTokens        int
	HistoryTurns     int
	FileContextChars int
	RequestTimeout   time.Duration
	Referer          string
	Title            string
}

// AuthConfig holds authentication configuration. Auth is off when no secret is set.
type AuthConfig struct {
	JWTSecret       []byte
	TokenExpiration time.Duration
	Username        string
	PasswordHash    []byte
}

// Enabled reports whether protected routes require a token
func (a AuthConfig) Enabled() bool {
	return len(a.JWTSecret) > 0
}

// BeastConfig bounds beast-mode runs
type BeastConfig struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	MaxIterations    int
	AutoApproveDelay time.Duration
}

// LoadConfig loads and validates application configuration from environment
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{}

	// Load Server config
	config.Server = ServerConfig{
		Port:            getEnvOrDefault("SERVER_PORT", "8080"),
		AllowedOrigin:   getEnvOrDefault("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
		ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	// Load Database config
	config.Database = DatabaseConfig{
		Driver:     strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", DriverFile)),
		StatePath:  getEnvOrDefault("STATE_FILE", "chat-workspace.json"),
		SQLitePath: getEnvOrDefault("SQLITE_PATH", "chat-workspace.db"),
		Host:       getEnvOrDefault("DB_HOST", "postgres"),
		Port:       getEnvOrDefault("DB_PORT", "5432"),
		User:       getEnvOrDefault("DB_USER", "postgres"),
		Password:   getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:       getEnvOrDefault("DB_NAME", "chatworkspace"),
		SSLMode:    getEnvOrDefault("DB_SSLMODE", "disable"),
	}
	switch config.Database.Driver {
	case DriverMemory, DriverFile, DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", config.Database.Driver)
	}

	// Load LLM config
	config.LLM = LLMConfig{
		Provider:         getEnvOrDefault("LLM_PROVIDER", "openrouter"),
		BaseURL:          os.Getenv("LLM_BASE_URL"),
		APIKey:           getEnvOrDefault("LLM_API_KEY", os.Getenv("OPENROUTER_API_KEY")),
		Model:            os.Getenv("LLM_MODEL"),
		Temperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		TopP:             getEnvAsFloat("LLM_TOP_P", 1.0),
		MaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 4096),
		HistoryTurns:     getEnvAsInt("LLM_HISTORY_TURNS", 20),
		FileContextChars: getEnvAsInt("LLM_FILE_CONTEXT_CHARS", 2000),
		RequestTimeout:   getEnvAsDuration("LLM_REQUEST_TIMEOUT", 120*time.Second),
		Referer:          getEnvOrDefault("OPENROUTER_REFERER", "http://localhost:8080"),
		Title:            getEnvOrDefault("OPENROUTER_TITLE", "Chat Workspace"),
	}
	if config.LLM.APIKey == "" {
		logger.Log.Warn("LLM_API_KEY environment variable not set")
	}

	// Load Auth config
	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}
	config.Auth = auth

	// Load Beast config
	config.Beast = BeastConfig{
		MaxRetries:       getEnvAsInt("BEAST_MAX_RETRIES", 3),
		BaseDelay:        getEnvAsDuration("BEAST_BASE_DELAY", time.Second),
		MaxDelay:         getEnvAsDuration("BEAST_MAX_DELAY", 30*time.Second),
		MaxIterations:    getEnvAsInt("BEAST_MAX_ITERATIONS", 25),
		AutoApproveDelay: getEnvAsDuration("BEAST_AUTO_APPROVE_DELAY", 3*time.Second),
	}

	// Load Models config
	modelsConfig, err := NewModelsConfig(os.Getenv("MODELS_CONFIG_PATH"))
	if err != nil {
		return nil, fmt.Errorf("failed to load models config: %w", err)
	}
	config.Models = modelsConfig
	if config.LLM.Model == "" {
		config.LLM.Model = modelsConfig.GetDefaultModel()
	}

	return config, nil
}

func loadAuthConfig() (AuthConfig, error) {
	auth := AuthConfig{
		TokenExpiration: getEnvAsDuration("JWT_TOKEN_EXPIRATION", 24*time.Hour),
		Username:        getEnvOrDefault("AUTH_USERNAME", "admin"),
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Log.Warn("JWT_SECRET not set, API authentication is disabled")
		return auth, nil
	}
	if len(jwtSecret) < 32 {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET must be at least 32 characters (current length: %d)", len(jwtSecret))
	}
	auth.JWTSecret = []byte(jwtSecret)

	if hash := os.Getenv("AUTH_PASSWORD_HASH"); hash != "" {
		auth.PasswordHash = []byte(hash)
		return auth, nil
	}
	password := os.Getenv("AUTH_PASSWORD")
	if password == "" {
		return AuthConfig{}, fmt.Errorf("AUTH_PASSWORD or AUTH_PASSWORD_HASH must be set when JWT_SECRET is set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthConfig{}, fmt.Errorf("failed to hash AUTH_PASSWORD: %w", err)
	}
	auth.PasswordHash = hash
	return auth, nil
}

// DefaultSettings returns the settings a fresh install starts with
func (c *AppConfig) DefaultSettings() db.Settings {
	return db.Settings{
		Provider:           c.LLM.Provider,
		BaseURL:            c.LLM.BaseURL,
		APIKey:             c.LLM.APIKey,
		Model:              c.LLM.Model,
		Temperature:        c.LLM.Temperature,
		TopP:               c.LLM.TopP,
		MaxTokens:          c.LLM.MaxTokens,
		HistoryTurns:       c.LLM.HistoryTurns,
		FileContextChars:   c.LLM.FileContextChars,
		ThinkingIndicator:  true,
		MemoryEnabled:      true,
		IncludeFileContext: true,
		AutoCreateFiles:    true,
	}
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
