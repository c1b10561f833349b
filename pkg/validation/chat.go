package validation

import (
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/llm"
	"errors"
	"fmt"
	"path"
	"strings"
)

// MaxFileNameLength bounds workspace file names
const MaxFileNameLength = 255

// ChatRequestValidator validates chat-related requests
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessage validates a chat message
func (v *ChatRequestValidator) ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return errors.New("message cannot be empty")
	}
	return nil
}

// ValidateMode validates the prompt mode
func (v *ChatRequestValidator) ValidateMode(mode string) error {
	_, err := chat.ParseMode(mode)
	return err
}

// ValidateTemperature validates the temperature parameter
func (v *ChatRequestValidator) ValidateTemperature(temperature float64) error {
	if temperature < 0 || temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %.2f", temperature)
	}
	return nil
}

// ValidateTopP validates nucleus sampling
func (v *ChatRequestValidator) ValidateTopP(topP float64) error {
	if topP < 0 || topP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %.2f", topP)
	}
	return nil
}

// ValidatePenalty validates a presence or frequency penalty
func (v *ChatRequestValidator) ValidatePenalty(name string, value float64) error {
	if value < -2 || value > 2 {
		return fmt.Errorf("%s must be between -2 and 2, got %.2f", name, value)
	}
	return nil
}

// ValidateProvider validates the provider kind
func (v *ChatRequestValidator) ValidateProvider(provider string) error {
	if _, err := llm.ParseKind(provider); err != nil {
		return fmt.Errorf("provider must be one of %v", llm.Kinds)
	}
	return nil
}

// ValidateFileName rejects empty, absolute and parent-relative names
func (v *ChatRequestValidator) ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("file name cannot be empty")
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("file name must be at most %d characters long, got %d", MaxFileNameLength, len(name))
	}
	if strings.ContainsRune(name, '\\') || strings.HasPrefix(name, "/") {
		return fmt.Errorf("file name %q must be a relative path", name)
	}
	for _, part := range strings.Split(path.Clean(name), "/") {
		if part == ".." {
			return fmt.Errorf("file name %q must not leave the workspace", name)
		}
	}
	return nil
}

// ValidateChatRequest validates a complete chat request
func (v *ChatRequestValidator) ValidateChatRequest(message, mode string) error {
	if err := v.ValidateMessage(message); err != nil {
		return err
	}
	return v.ValidateMode(mode)
}

// ValidateSettings validates user-editable settings
func (v *ChatRequestValidator) ValidateSettings(s db.Settings) error {
	if err := v.ValidateProvider(s.Provider); err != nil {
		return err
	}
	if err := v.ValidateTemperature(s.Temperature); err != nil {
		return err
	}
	if err := v.ValidateTopP(s.TopP); err != nil {
		return err
	}
	if err := v.ValidatePenalty("presence_penalty", s.PresencePenalty); err != nil {
		return err
	}
	if err := v.ValidatePenalty("frequency_penalty", s.FrequencyPenalty); err != nil {
		return err
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", s.MaxTokens)
	}
	if s.HistoryTurns < 0 {
		return fmt.Errorf("history_turns must not be negative, got %d", s.HistoryTurns)
	}
	if s.FileContextChars < 0 {
		return fmt.Errorf("file_context_chars must not be negative, got %d", s.FileContextChars)
	}
	return nil
}
