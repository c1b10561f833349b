package chat

import (
	"chat-workspace/internal/logger"
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/llm"
	"chat-workspace/internal/service/session"
	"chat-workspace/internal/workspace"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ThinkingPlaceholder is the content of the transient thinking message
const ThinkingPlaceholder = "Thinking..."

const maxMemoryEntry = 200

var (
	ErrNotAssistantMessage = errors.New("only assistant messages can be regenerated")
	ErrNoPrompt            = errors.New("no user message precedes this reply")
)

// SendRequest carries everything one orchestrated call depends on
type SendRequest struct {
	SessionID    string
	Message      string
	Mode         Mode
	Settings     db.Settings
	Memory       db.UserMemory
	Files        []db.FileArtifact
	History      []llm.Message
	Instructions string
}

// ChatResult is the outcome of SendMessage
type ChatResult struct {
	UserMessage db.Message
	Reply       db.Message
	Files       []db.FileArtifact
}

// ChatService composes prompts, calls the configured provider and routes replies
type ChatService struct {
	store   *session.Store
	factory llm.ProviderFactory
}

// NewChatService creates a new ChatService
func NewChatService(store *session.Store, factory llm.ProviderFactory) *ChatService {
	return &ChatService{
		store:   store,
		factory: factory,
	}
}

// ProviderConfigFor extracts the adapter configuration from settings
func ProviderConfigFor(settings db.Settings) (llm.ProviderConfig, error) {
	kind, err := llm.ParseKind(settings.Provider)
	if err != nil {
		return llm.ProviderConfig{}, &llm.ConfigError{Field: "provider"}
	}
	return llm.ProviderConfig{
		Kind:    kind,
		BaseURL: strings.TrimSpace(settings.BaseURL),
		APIKey:  strings.TrimSpace(settings.APIKey),
	}, nil
}

// Send makes exactly one provider call and returns the reply text.
// Missing configuration fails with *llm.ConfigError before any network call.
// In agent mode with the thinking indicator on, a thinking message is shown
// for the duration of the call and always removed afterwards.
func (s *ChatService) Send(ctx context.Context, req SendRequest) (string, error) {
	cfg, err := ProviderConfigFor(req.Settings)
	if err != nil {
		return "", err
	}
	if err := llm.CheckConfig(cfg); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"session_id": req.SessionID,
			"provider":   cfg.Kind,
		}).WithError(err).Warn("Provider not configured")
		return "", err
	}

	if req.Mode == ModeAgent && req.Settings.ThinkingIndicator && req.SessionID != "" {
		if _, err := s.store.Append(req.SessionID, db.RoleThinking, ThinkingPlaceholder); err == nil {
			defer func() {
				if _, err := s.store.RemoveThinking(req.SessionID); err != nil {
					logger.Log.WithError(err).Warn("Failed to remove thinking placeholder")
				}
			}()
		}
	}

	provider, err := s.factory.Provider(cfg)
	if err != nil {
		return "", err
	}

	messages := BuildMessages(PromptInput{
		Mode:         req.Mode,
		Settings:     req.Settings,
		Memory:       req.Memory,
		Files:        req.Files,
		History:      req.History,
		Message:      req.Message,
		Instructions: req.Instructions,
	})

	logger.Log.WithFields(logrus.Fields{
		"session_id":    req.SessionID,
		"provider":      provider.Name(),
		"model":         req.Settings.Model,
		"mode":          req.Mode,
		"message_count": len(messages),
	}).Info("Sending request to provider")

	text, err := provider.Complete(ctx, llm.CompletionRequest{
		Model:            req.Settings.Model,
		Messages:         messages,
		Temperature:      req.Settings.Temperature,
		TopP:             req.Settings.TopP,
		MaxTokens:        req.Settings.MaxTokens,
		PresencePenalty:  req.Settings.PresencePenalty,
		FrequencyPenalty: req.Settings.FrequencyPenalty,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &llm.EmptyResponseError{Provider: provider.Name()}
	}
	return text, nil
}

// SendMessage appends the user's message, asks the provider and appends the reply.
// A failure is rendered into the log as an assistant notice and also returned.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, message string, mode Mode) (*ChatResult, error) {
	prior, err := s.store.Conversation(sessionID, "", 0)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.store.Append(sessionID, db.RoleUser, message)
	if err != nil {
		return nil, err
	}
	s.store.UpdateAnalytics(func(a *db.Analytics) { a.MessagesSent++ })

	settings := s.store.Settings()
	files, _ := s.store.Files(sessionID)

	text, err := s.Send(ctx, SendRequest{
		SessionID: sessionID,
		Message:   message,
		Mode:      mode,
		Settings:  settings,
		Memory:    s.store.Memory(),
		Files:     files,
		History:   ToProviderMessages(prior),
	})
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"session_id":  sessionID,
			"error_class": llm.ErrorClass(err),
		}).WithError(err).Error("Chat request failed")

		s.store.UpdateAnalytics(func(a *db.Analytics) { a.Errors++ })
		reply, appendErr := s.store.AppendNotice(sessionID, llm.UserFacingMessage(err))
		if appendErr != nil {
			return nil, fmt.Errorf("%w (and failed to record error: %v)", err, appendErr)
		}
		return &ChatResult{UserMessage: userMsg, Reply: reply}, err
	}

	reply, err := s.store.Append(sessionID, db.RoleAssistant, text)
	if err != nil {
		return nil, err
	}
	s.store.UpdateAnalytics(func(a *db.Analytics) { a.ResponsesReceived++ })

	result := &ChatResult{UserMessage: userMsg, Reply: reply}
	if settings.AutoCreateFiles || mode == ModeAgent || mode == ModeCoder {
		result.Files = s.extractTaggedFiles(sessionID, text)
	}
	if settings.MemoryEnabled {
		s.store.Remember(truncateRunes(message, maxMemoryEntry))
	}
	return result, nil
}

// Regenerate asks again for the prompt that produced an assistant message and
// replaces that message in place
func (s *ChatService) Regenerate(ctx context.Context, sessionID, messageID string, mode Mode) (db.Message, error) {
	msgs, err := s.store.Messages(sessionID)
	if err != nil {
		return db.Message{}, err
	}

	idx := -1
	for i, m := range msgs {
		if m.ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return db.Message{}, session.ErrMessageNotFound
	}
	if msgs[idx].Role != db.RoleAssistant {
		return db.Message{}, ErrNotAssistantMessage
	}

	var prompt *db.Message
	for i := idx - 1; i >= 0; i-- {
		if msgs[i].Role == db.RoleUser {
			prompt = &msgs[i]
			break
		}
	}
	if prompt == nil {
		return db.Message{}, ErrNoPrompt
	}

	prior, err := s.store.Conversation(sessionID, prompt.ID, 0)
	if err != nil {
		return db.Message{}, err
	}
	settings := s.store.Settings()
	files, _ := s.store.Files(sessionID)

	text, err := s.Send(ctx, SendRequest{
		SessionID: sessionID,
		Message:   prompt.Content,
		Mode:      mode,
		Settings:  settings,
		Memory:    s.store.Memory(),
		Files:     files,
		History:   ToProviderMessages(prior),
	})
	if err != nil {
		s.store.UpdateAnalytics(func(a *db.Analytics) { a.Errors++ })
		return db.Message{}, err
	}
	s.store.UpdateAnalytics(func(a *db.Analytics) { a.ResponsesReceived++ })

	logger.Log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"message_id": messageID,
	}).Info("Regenerated message")
	return s.store.ReplaceContent(sessionID, messageID, text)
}

func (s *ChatService) extractTaggedFiles(sessionID, text string) []db.FileArtifact {
	var out []db.FileArtifact
	for _, f := range workspace.NewParser().Parse(text) {
		if !f.Tagged {
			continue
		}
		artifact, _, err := s.store.UpsertFile(sessionID, f.Name, f.Content, f.Language)
		if err != nil {
			logger.Log.WithError(err).WithField("file", f.Name).Warn("Failed to write file")
			continue
		}
		out = append(out, artifact)
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n])
}
