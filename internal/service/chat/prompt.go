package chat

import (
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/llm"
	"fmt"
	"strings"
)

// Mode selects the instruction block at the top of the system prompt
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeAgent Mode = "agent"
	ModeCoder Mode = "coder"
	ModeBeast Mode = "beast"
)

// Sentinels the model is told to emit during beast runs; matched case-insensitively
const (
	SentinelDone  = "[ALL_DONE]"
	SentinelPause = "[NEED_APPROVAL]"
)

// DefaultFileContextChars caps each file in the prompt's file dump
const DefaultFileContextChars = 2000

const truncatedMarker = "\n... [truncated]"

// ParseMode parses a mode name, defaulting to chat
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeChat, nil
	case ModeChat, ModeAgent, ModeCoder, ModeBeast:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode: %s", s)
	}
}

const fileFormatInstructions = `When you create or change a file, write a line "FILE: <path>" followed immediately by a fenced code block containing the complete file content. Never abbreviate file contents.`

var modeInstructions = map[Mode]string{
	ModeChat: "You are a helpful assistant. Answer clearly and concisely.",
	ModeAgent: "You are an autonomous software agent. Work through the user's request step by step, " +
		"explain what you are doing briefly, and produce working code.\n\n" + fileFormatInstructions,
	ModeCoder: "You are an expert programmer. Prefer complete, runnable code over explanation.\n\n" + fileFormatInstructions,
	ModeBeast: "You are building a multi-file project iteratively. Each reply should implement the next part of the plan.\n\n" +
		fileFormatInstructions + "\n\n" +
		"When every file in the plan is complete, end your reply with " + SentinelDone + ". " +
		"If you need a decision from the user before continuing, end your reply with " + SentinelPause + ".",
}

// PromptInput is everything prompt composition depends on
type PromptInput struct {
	Mode     Mode
	Settings db.Settings
	Memory   db.UserMemory
	Files    []db.FileArtifact
	History  []llm.Message
	Message  string

	// Instructions is appended to the mode block, e.g. a beast run's task and plan
	Instructions string
}

// BuildMessages composes the provider messages in a fixed order: mode
// instructions, memory summary, file dump, at most the last N prior turns
// starting on a user turn, then the new user message. It is a pure function of its input.
func BuildMessages(in PromptInput) []llm.Message {
	sections := []string{instructionsFor(in.Mode)}
	if in.Settings.CustomInstructions != "" {
		sections = append(sections, in.Settings.CustomInstructions)
	}
	if in.Instructions != "" {
		sections = append(sections, in.Instructions)
	}
	if in.Settings.MemoryEnabled {
		if summary := memorySummary(in.Memory); summary != "" {
			sections = append(sections, summary)
		}
	}
	if in.Settings.IncludeFileContext && len(in.Files) > 0 {
		sections = append(sections, fileDump(in.Files, in.Settings.FileContextChars))
	}

	history := in.History
	if n := in.Settings.HistoryTurns; n > 0 && len(history) > n {
		history = history[len(history)-n:]
		// start on a user turn so no reply is sent without its prompt
		for len(history) > 0 && history[0].Role != db.RoleUser {
			history = history[1:]
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: db.RoleSystem, Content: strings.Join(sections, "\n\n")})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: db.RoleUser, Content: in.Message})
	return messages
}

func instructionsFor(mode Mode) string {
	if s, ok := modeInstructions[mode]; ok {
		return s
	}
	return modeInstructions[ModeChat]
}

func memorySummary(m db.UserMemory) string {
	var b strings.Builder
	if m.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", m.Name)
	}
	if m.About != "" {
		fmt.Fprintf(&b, "About: %s\n", m.About)
	}
	if len(m.Preferences) > 0 {
		fmt.Fprintf(&b, "Preferences: %s\n", strings.Join(m.Preferences, "; "))
	}
	if len(m.History) > 0 {
		b.WriteString("Recent topics:\n")
		for _, h := range m.History {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "What you know about the user:\n" + strings.TrimRight(b.String(), "\n")
}

func fileDump(files []db.FileArtifact, budget int) string {
	if budget <= 0 {
		budget = DefaultFileContextChars
	}
	var b strings.Builder
	b.WriteString("Current files in the workspace:")
	for _, f := range files {
		content := f.Content
		if runes := []rune(content); len(runes) > budget {
			content = string(runes[:budget]) + truncatedMarker
		}
		fmt.Fprintf(&b, "\n\nFILE: %s\n```%s\n%s\n```", f.Name, f.Language, content)
	}
	return b.String()
}

// ToProviderMessages converts stored user and assistant messages into provider turns
func ToProviderMessages(msgs []db.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Notice || (m.Role != db.RoleUser && m.Role != db.RoleAssistant) {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
