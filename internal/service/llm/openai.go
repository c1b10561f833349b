package llm

import (
	"chat-workspace/internal/logger"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
)

// OpenAIProvider uses the official OpenAI SDK
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates an OpenAI SDK adapter. An empty baseURL keeps the SDK default.
func NewOpenAIProvider(baseURL, apiKey string, httpClient *http.Client) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client}
}

// Name returns the adapter name
func (p *OpenAIProvider) Name() string {
	return string(KindOpenAI)
}

// Complete sends one chat completion through the SDK
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	logger.Log.WithFields(logrus.Fields{
		"model":         req.Model,
		"message_count": len(req.Messages),
	}).Info("Calling OpenAI")

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       openai.ChatModel(req.Model),
		Temperature: openai.Float(req.Temperature),
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(req.PresencePenalty)
	}
	if req.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(req.FrequencyPenalty)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		transportErr := &TransportError{Provider: p.Name(), Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			transportErr.StatusCode = apiErr.StatusCode
		}
		return "", transportErr
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}
	return completion.Choices[0].Message.Content, nil
}
