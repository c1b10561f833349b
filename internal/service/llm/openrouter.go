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

// DefaultOpenRouterURL is used when an OpenRouter provider has no base URL
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

const maxErrorBody = 512

// CompatibleProvider speaks the OpenAI chat-completions contract over plain HTTP:
// POST {baseURL}/chat/completions with a Bearer token.
type CompatibleProvider struct {
	name    string
	baseURL string
	apiKey  string
	headers map[string]string
	client  *http.Client
}

// NewCompatibleProvider creates an adapter for any OpenAI-compatible endpoint
func NewCompatibleProvider(baseURL, apiKey string, client *http.Client) *CompatibleProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &CompatibleProvider{
		name:    string(KindCompatible),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// NewOpenRouterProvider creates a compatible adapter that also sends the
// OpenRouter attribution headers
func NewOpenRouterProvider(baseURL, apiKey, referer, title string, client *http.Client) *CompatibleProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	p := NewCompatibleProvider(baseURL, apiKey, client)
	p.name = string(KindOpenRouter)
	p.headers = map[string]string{
		"HTTP-Referer": referer,
		"X-Title":      title,
	}
	return p
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	Stream           bool      `json:"stream"`
}

// ResponseUsage reports token counts when the provider sends them
type ResponseUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// textContent decodes either a plain string or an array of {"text": ...} parts.
// Any other shape decodes as empty.
type textContent string

func (c *textContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = textContent(s)
		return nil
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		*c = ""
		return nil
	}
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.Text)
	}
	*c = textContent(b.String())
	return nil
}

type responseChoice struct {
	Message struct {
		Content textContent `json:"content"`
	} `json:"message"`
	Delta struct {
		Content textContent `json:"content"`
	} `json:"delta"`
	Text         textContent `json:"text"`
	FinishReason string      `json:"finish_reason"`
}

type chatResponse struct {
	ID      string           `json:"id"`
	Choices []responseChoice `json:"choices"`

	// flat shapes some compatible servers return instead of choices
	Output   textContent `json:"output"`
	Response textContent `json:"response"`

	Usage *ResponseUsage `json:"usage,omitempty"`
}

// text returns the first non-empty text, scanning every choice before the flat fields
func (r *chatResponse) text() string {
	for _, c := range r.Choices {
		for _, t := range []textContent{c.Message.Content, c.Delta.Content, c.Text} {
			if strings.TrimSpace(string(t)) != "" {
				return string(t)
			}
		}
	}
	for _, t := range []textContent{r.Output, r.Response} {
		if strings.TrimSpace(string(t)) != "" {
			return string(t)
		}
	}
	return ""
}

// Name returns the adapter name
func (p *CompatibleProvider) Name() string {
	return p.name
}

// Complete sends a non-streaming chat completion request
func (p *CompatibleProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	logger.Log.WithFields(logrus.Fields{
		"provider":      p.name,
		"model":         req.Model,
		"temperature":   req.Temperature,
		"message_count": len(req.Messages),
	}).Info("Calling chat completions API")

	reqBody := chatRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		Stream:           false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &TransportError{Provider: p.name, Err: fmt.Errorf("error creating request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &TransportError{Provider: p.name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: p.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("error reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{Provider: p.name, StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	logger.Log.WithField("response_length", len(body)).Debug("Received raw response")

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &TransportError{Provider: p.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("error decoding response: %w", err)}
	}

	content := chatResp.text()
	if content == "" {
		return "", &EmptyResponseError{Provider: p.name}
	}

	fields := logrus.Fields{"content_length": len(content)}
	if chatResp.Usage != nil {
		fields["total_tokens"] = chatResp.Usage.TotalTokens
	}
	logger.Log.WithFields(fields).Debug("Extracted content from response")
	return content, nil
}

func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
