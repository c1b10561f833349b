package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model represents an available LLM model
type Model struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Provider string `json:"provider" yaml:"provider"`
	Tier     string `json:"tier" yaml:"tier"`
}

// defaultModels is used when no models file is configured
var defaultModels = []Model{
	{ID: "meta-llama/llama-3.3-8b-instruct:free", Name: "Llama 3.3 8B Instruct (Free)", Provider: "openrouter", Tier: "free"},
	{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini", Provider: "openrouter", Tier: "paid"},
	{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "openrouter", Tier: "paid"},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: "openai", Tier: "paid"},
	{ID: "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku", Provider: "anthropic", Tier: "paid"},
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Provider: "gemini", Tier: "free"},
	{ID: "llama3.2", Name: "Llama 3.2 (local)", Provider: "ollama", Tier: "local"},
}

// ModelsConfig holds the available models configuration
type ModelsConfig struct {
	models []Model
}

// NewModelsConfig creates a new models configuration from a JSON or YAML file.
// An empty path yields the built-in list.
func NewModelsConfig(configPath string) (*ModelsConfig, error) {
	if configPath == "" {
		return &ModelsConfig{models: append([]Model(nil), defaultModels...)}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var models []Model
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &models)
	default:
		err = json.Unmarshal(data, &models)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	return &ModelsConfig{models: models}, nil
}

// GetAvailableModels returns the list of available models
func (mc *ModelsConfig) GetAvailableModels() []Model {
	return mc.models
}

// ForProvider returns the models served by the given provider kind
func (mc *ModelsConfig) ForProvider(provider string) []Model {
	var out []Model
	for _, model := range mc.models {
		if strings.EqualFold(model.Provider, provider) {
			out = append(out, model)
		}
	}
	return out
}

// IsValidModel checks if a model ID is in the list of available models
func (mc *ModelsConfig) IsValidModel(modelID string) bool {
	for _, model := range mc.models {
		if model.ID == modelID {
			return true
		}
	}
	return false
}

// GetDefaultModel returns the first model as the default
func (mc *ModelsConfig) GetDefaultModel() string {
	if len(mc.models) > 0 {
		return mc.models[0].ID
	}
	return "meta-llama/llama-3.3-8b-instruct:free"
}
