package db

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleThinking  = "thinking"
)

// Session represents one chat conversation with its own message log and file workspace
type Session struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	AutoTitle bool           `json:"auto_title"`
	Messages  []Message      `json:"messages"`
	Files     []FileArtifact `json:"files"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Message represents a single entry in a session's message log
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Notice marks status text shown to the user, such as a rendered error.
	// Notices are never replayed to a provider.
	Notice bool `json:"notice,omitempty"`
}

// FileArtifact is a named text file tracked outside the chat transcript
type FileArtifact struct {
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	Language     string    `json:"language"`
	LastModified time.Time `json:"last_modified"`
}

// Settings holds the user-editable provider and behaviour configuration
type Settings struct {
	Provider         string  `json:"provider"`
	BaseURL          string  `json:"base_url"`
	APIKey           string  `json:"api_key"`
	Model            string  `json:"model"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
	MaxTokens        int     `json:"max_tokens"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	Stream           bool    `json:"stream"`

	// Prompt composition
	HistoryTurns       int    `json:"history_turns"`
	FileContextChars   int    `json:"file_context_chars"`
	CustomInstructions string `json:"custom_instructions,omitempty"`

	ThinkingIndicator  bool `json:"thinking_indicator"`
	MemoryEnabled      bool `json:"memory_enabled"`
	IncludeFileContext bool `json:"include_file_context"`
	AutoCreateFiles    bool `json:"auto_create_files"`
	AutoApprovePlan    bool `json:"auto_approve_plan"`

	// Toggles carries UX flags the backend stores but does not interpret
	Toggles map[string]bool `json:"toggles,omitempty"`
}

// UserMemory is the free-form profile injected into the system prompt when enabled
type UserMemory struct {
	Name        string   `json:"name"`
	About       string   `json:"about"`
	Preferences []string `json:"preferences"`
	History     []string `json:"history"`
}

// MaxMemoryHistory bounds UserMemory.History
const MaxMemoryHistory = 20

// Remember appends an entry to the history tail, keeping the last MaxMemoryHistory entries
func (m *UserMemory) Remember(entry string) {
	m.History = append(m.History, entry)
	if len(m.History) > MaxMemoryHistory {
		m.History = append([]string(nil), m.History[len(m.History)-MaxMemoryHistory:]...)
	}
}

// Analytics holds usage counters
type Analytics struct {
	MessagesSent      int `json:"messages_sent"`
	ResponsesReceived int `json:"responses_received"`
	Errors            int `json:"errors"`
	FilesCreated      int `json:"files_created"`
	FilesUpdated      int `json:"files_updated"`
	BeastRuns         int `json:"beast_runs"`
}

// Snapshot is the single persisted state blob
type Snapshot struct {
	Sessions         []Session  `json:"sessions"`
	CurrentSessionID string     `json:"current_session_id"`
	Settings         Settings   `json:"settings"`
	Memory           UserMemory `json:"memory"`
	Analytics        Analytics  `json:"analytics"`

	// Flat keys written by older clients before settings were grouped
	LegacyAPIKey  string `json:"apiKey,omitempty"`
	LegacyBaseURL string `json:"baseUrl,omitempty"`
}

// MigrateLegacy copies the legacy flat keys into Settings when Settings lacks them.
// It reports whether anything changed.
func (s *Snapshot) MigrateLegacy() bool {
	changed := false
	if s.LegacyAPIKey != "" {
		if s.Settings.APIKey == "" {
			s.Settings.APIKey = s.LegacyAPIKey
		}
		s.LegacyAPIKey = ""
		changed = true
	}
	if s.LegacyBaseURL != "" {
		if s.Settings.BaseURL == "" {
			s.Settings.BaseURL = s.LegacyBaseURL
		}
		s.LegacyBaseURL = ""
		changed = true
	}
	return changed
}
