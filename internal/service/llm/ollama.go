package llm

import (
	"bytes"
	"chat-workspace/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultOllamaURL is the local Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider talks to Ollama's native /api/chat endpoint
type OllamaProvider struct {
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	NumPredict       *int     `json:"num_predict,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

type ollamaResponse struct {
	Model     string  `json:"model"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
	EvalCount int     `json:"eval_count,omitempty"`
}

// NewOllamaProvider creates an Ollama adapter
func NewOllamaProvider(baseURL string, client *http.Client) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the adapter name
func (p *OllamaProvider) Name() string {
	return string(KindOllama)
}

// Complete sends a non-streaming chat request
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	logger.Log.WithFields(logrus.Fields{
		"model":         req.Model,
		"message_count": len(req.Messages),
	}).Info("Calling Ollama")

	temperature := req.Temperature
	opts := &ollamaOptions{Temperature: &temperature}
	if req.TopP > 0 {
		topP := req.TopP
		opts.TopP = &topP
	}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		opts.NumPredict = &n
	}
	if req.PresencePenalty != 0 {
		v := req.PresencePenalty
		opts.PresencePenalty = &v
	}
	if req.FrequencyPenalty != 0 {
		v := req.FrequencyPenalty
		opts.FrequencyPenalty = &v
	}

	jsonData, err := json.Marshal(ollamaRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
		Options:  opts,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &TransportError{Provider: p.Name(), Err: fmt.Errorf("error creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &TransportError{Provider: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: p.Name(), StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Provider: p.Name(), StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &TransportError{Provider: p.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("error decoding response: %w", err)}
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}
	return out.Message.Content, nil
}
