package llm

import (
	"chat-workspace/internal/logger"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Kind selects the adapter used for a request
type Kind string

const (
	KindCompatible Kind = "compatible"
	KindOpenRouter Kind = "openrouter"
	KindOpenAI     Kind = "openai"
	KindAnthropic  Kind = "anthropic"
	KindGemini     Kind = "gemini"
	KindOllama     Kind = "ollama"
	KindGenkit     Kind = "genkit"
)

// Kinds lists every supported adapter
var Kinds = []Kind{KindCompatible, KindOpenRouter, KindOpenAI, KindAnthropic, KindGemini, KindOllama, KindGenkit}

// ParseKind parses a provider name. Empty selects the OpenAI-compatible adapter.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindCompatible, nil
	case KindCompatible, KindOpenRouter, KindOpenAI, KindAnthropic, KindGemini, KindOllama, KindGenkit:
		return k, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s", s)
	}
}

// NeedsAPIKey reports whether requests to this kind require an API key
func (k Kind) NeedsAPIKey() bool {
	return k != KindOllama
}

// NeedsBaseURL reports whether this kind has no usable default endpoint
func (k Kind) NeedsBaseURL() bool {
	return k == KindCompatible || k == KindOllama
}

// ProviderConfig identifies one configured adapter
type ProviderConfig struct {
	Kind    Kind
	BaseURL string
	APIKey  string
}

// CheckConfig returns a *ConfigError when cfg lacks what its kind needs
func CheckConfig(cfg ProviderConfig) error {
	if cfg.Kind.NeedsAPIKey() && strings.TrimSpace(cfg.APIKey) == "" {
		return &ConfigError{Field: "api_key"}
	}
	if cfg.Kind.NeedsBaseURL() && strings.TrimSpace(cfg.BaseURL) == "" {
		return &ConfigError{Field: "base_url"}
	}
	return nil
}

// ProviderFactory builds adapters from configuration
type ProviderFactory interface {
	Provider(cfg ProviderConfig) (Provider, error)
}

// FactoryOptions configures adapters built by a Factory
type FactoryOptions struct {
	Timeout time.Duration
	Referer string
	Title   string
}

// Factory builds and caches adapters per configuration
type Factory struct {
	opts   FactoryOptions
	client *http.Client

	mu    sync.Mutex
	cache map[ProviderConfig]Provider
}

// NewFactory creates an adapter factory
func NewFactory(opts FactoryOptions) *Factory {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Factory{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		cache:  make(map[ProviderConfig]Provider),
	}
}

// Provider returns the adapter for cfg, building it on first use
func (f *Factory) Provider(cfg ProviderConfig) (Provider, error) {
	if err := CheckConfig(cfg); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.cache[cfg]; ok {
		return p, nil
	}

	var p Provider
	switch cfg.Kind {
	case KindCompatible:
		p = NewCompatibleProvider(cfg.BaseURL, cfg.APIKey, f.client)
	case KindOpenRouter:
		p = NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, f.opts.Referer, f.opts.Title, f.client)
	case KindOpenAI:
		p = NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, f.client)
	case KindAnthropic:
		p = NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, f.client)
	case KindGemini:
		p = NewGeminiProvider(cfg.APIKey)
	case KindOllama:
		p = NewOllamaProvider(cfg.BaseURL, f.client)
	case KindGenkit:
		p = NewGenkitProvider(cfg.BaseURL, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Kind)
	}

	logger.Log.WithFields(logrus.Fields{
		"provider": cfg.Kind,
		"base_url": cfg.BaseURL,
	}).Info("Created LLM provider")
	f.cache[cfg] = p
	return p, nil
}
