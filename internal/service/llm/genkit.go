package llm

import (
	"chat-workspace/internal/logger"
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go"
	"github.com/sirupsen/logrus"
)

// model names are namespaced by the compat_oai plugin's provider label
const genkitProviderLabel = "openrouter"

// GenkitProvider routes requests through Firebase Genkit with the compat_oai plugin
type GenkitProvider struct {
	baseURL string
	apiKey  string

	once   sync.Once
	genkit *genkit.Genkit
}

// NewGenkitProvider creates a Genkit adapter. Genkit itself is initialised on first use.
func NewGenkitProvider(baseURL, apiKey string) *GenkitProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	return &GenkitProvider{baseURL: baseURL, apiKey: apiKey}
}

// Name returns the adapter name
func (p *GenkitProvider) Name() string {
	return string(KindGenkit)
}

func (p *GenkitProvider) init() *genkit.Genkit {
	p.once.Do(func() {
		p.genkit = genkit.Init(context.Background(),
			genkit.WithPlugins(&compat_oai.OpenAICompatible{
				Provider: genkitProviderLabel,
				APIKey:   p.apiKey,
				BaseURL:  p.baseURL,
			}),
		)
		logger.Log.WithField("base_url", p.baseURL).Info("Initialized Genkit with compat_oai provider")
	})
	return p.genkit
}

// Complete runs one Genkit generation
func (p *GenkitProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	g := p.init()

	model := req.Model
	if !strings.HasPrefix(model, genkitProviderLabel+"/") {
		model = genkitProviderLabel + "/" + model
	}

	logger.Log.WithFields(logrus.Fields{
		"model":         model,
		"message_count": len(req.Messages),
	}).Info("Calling Genkit")

	genkitMessages := make([]*ai.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		genkitMessages = append(genkitMessages, &ai.Message{
			Role:    genkitRole(msg.Role),
			Content: []*ai.Part{ai.NewTextPart(msg.Content)},
		})
	}

	config := &openai.ChatCompletionNewParams{
		Temperature: openai.Float(req.Temperature),
	}
	if req.TopP > 0 {
		config.TopP = openai.Float(req.TopP)
	}
	if req.MaxTokens > 0 {
		config.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := genkit.Generate(ctx, g,
		ai.WithMessages(genkitMessages...),
		ai.WithModelName(model),
		ai.WithConfig(config),
	)
	if err != nil {
		return "", &TransportError{Provider: p.Name(), Err: err}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &EmptyResponseError{Provider: p.Name()}
	}
	return text, nil
}

func genkitRole(role string) ai.Role {
	switch role {
	case "system":
		return ai.RoleSystem
	case "assistant":
		return ai.RoleModel
	default:
		return ai.RoleUser
	}
}
