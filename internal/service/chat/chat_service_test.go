package chat

import (
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/llm"
	"chat-workspace/internal/service/session"
	"chat-workspace/internal/testutil"
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestService(settings db.Settings, provider *testutil.MockProvider) (*ChatService, *session.Store, *testutil.MockProviderFactory) {
	store := session.NewStore(nil, settings)
	factory := &testutil.MockProviderFactory{Adapter: provider}
	return NewChatService(store, factory), store, factory
}

func TestNewChatService(t *testing.T) {
	service, _, _ := newTestService(db.Settings{}, &testutil.MockProvider{})
	if service == nil {
		t.Fatal("Expected service to be created, got nil")
	}
	if service.store == nil {
		t.Error("Expected store to be set")
	}
	if service.factory == nil {
		t.Error("Expected factory to be set")
	}
}

func TestSend_ConfigErrorBeforeNetwork(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *db.Settings)
		wantField string
	}{
		{"empty api key", func(s *db.Settings) { s.APIKey = "" }, "api_key"},
		{"empty base url", func(s *db.Settings) { s.BaseURL = "" }, "base_url"},
		{"unknown provider", func(s *db.Settings) { s.Provider = "quantum" }, "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &testutil.MockProvider{}
			service, store, factory := newTestService(db.Settings{}, provider)

			settings := testutil.NewTestSettings()
			settings.ThinkingIndicator = true
			tt.mutate(&settings)

			_, err := service.Send(context.Background(), SendRequest{
				SessionID: store.CurrentID(),
				Message:   "hi",
				Mode:      ModeAgent,
				Settings:  settings,
			})

			var configErr *llm.ConfigError
			if !errors.As(err, &configErr) || configErr.Field != tt.wantField {
				t.Fatalf("Send() error = %v, want ConfigError(%s)", err, tt.wantField)
			}
			if provider.Calls() != 0 || factory.Calls() != 0 {
				t.Errorf("transport was touched: provider=%d factory=%d", provider.Calls(), factory.Calls())
			}
			msgs, _ := store.Messages(store.CurrentID())
			if len(msgs) != 0 {
				t.Errorf("log should be untouched, got %+v", msgs)
			}
		})
	}
}

func TestSend_ThinkingPlaceholderLifecycle(t *testing.T) {
	for _, fail := range []bool{false, true} {
		name := "success"
		if fail {
			name = "failure"
		}
		t.Run(name, func(t *testing.T) {
			var store *session.Store
			sawThinking := false
			provider := &testutil.MockProvider{
				CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
					msgs, _ := store.Messages(store.CurrentID())
					for _, m := range msgs {
						if m.Role == db.RoleThinking {
							sawThinking = true
						}
					}
					if fail {
						return "", &llm.TransportError{Provider: "mock", StatusCode: 500}
					}
					return "done", nil
				},
			}
			var service *ChatService
			service, store, _ = newTestService(db.Settings{}, provider)

			settings := testutil.NewTestSettings()
			settings.ThinkingIndicator = true
			_, err := service.Send(context.Background(), SendRequest{
				SessionID: store.CurrentID(),
				Message:   "go",
				Mode:      ModeAgent,
				Settings:  settings,
			})
			if (err != nil) != fail {
				t.Fatalf("Send() error = %v, wantErr %v", err, fail)
			}
			if !sawThinking {
				t.Error("thinking placeholder should be visible during the call")
			}
			msgs, _ := store.Messages(store.CurrentID())
			for _, m := range msgs {
				if m.Role == db.RoleThinking {
					t.Error("thinking placeholder left behind")
				}
			}
		})
	}
}

func TestSend_NoThinkingOutsideAgentMode(t *testing.T) {
	var store *session.Store
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			msgs, _ := store.Messages(store.CurrentID())
			if len(msgs) != 0 {
				t.Errorf("unexpected messages during chat-mode call: %+v", msgs)
			}
			return "ok", nil
		},
	}
	var service *ChatService
	service, store, _ = newTestService(db.Settings{}, provider)

	settings := testutil.NewTestSettings()
	settings.ThinkingIndicator = true
	if _, err := service.Send(context.Background(), SendRequest{SessionID: store.CurrentID(), Message: "x", Mode: ModeChat, Settings: settings}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}

func TestSend_PassesSampling(t *testing.T) {
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "ok", nil
		},
	}
	service, _, factory := newTestService(db.Settings{}, provider)

	settings := testutil.NewTestSettings()
	settings.PresencePenalty = 0.5
	if _, err := service.Send(context.Background(), SendRequest{Message: "x", Settings: settings}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	req := provider.LastRequest()
	if req.Model != "test-model" || req.Temperature != 0.7 || req.MaxTokens != 1024 || req.PresencePenalty != 0.5 {
		t.Errorf("request = %+v", req)
	}
	if factory.Configs[0].Kind != llm.KindCompatible || factory.Configs[0].APIKey != "sk-test" {
		t.Errorf("provider config = %+v", factory.Configs[0])
	}
}

func TestSend_BlankReplyIsEmptyResponse(t *testing.T) {
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "   ", nil
		},
	}
	service, _, _ := newTestService(db.Settings{}, provider)

	_, err := service.Send(context.Background(), SendRequest{Message: "x", Settings: testutil.NewTestSettings()})
	var emptyErr *llm.EmptyResponseError
	if !errors.As(err, &emptyErr) {
		t.Errorf("Send() error = %v, want *EmptyResponseError", err)
	}
}

func TestSendMessage_Success(t *testing.T) {
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			return "Sure.\nFILE: hello.py\n```python\nprint('hi')\n```\n```bash\npython hello.py\n```", nil
		},
	}
	settings := testutil.NewTestSettings()
	settings.AutoCreateFiles = true
	settings.MemoryEnabled = true
	service, store, _ := newTestService(settings, provider)
	id := store.CurrentID()

	result, err := service.SendMessage(context.Background(), id, "Write hello world", ModeChat)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.Reply.Role != db.RoleAssistant || !strings.HasPrefix(result.Reply.Content, "Sure.") {
		t.Errorf("Reply = %+v", result.Reply)
	}
	if len(result.Files) != 1 || result.Files[0].Name != "hello.py" {
		t.Errorf("Files = %+v, want only the tagged file", result.Files)
	}

	msgs, _ := store.Messages(id)
	if len(msgs) != 2 || msgs[0].Role != db.RoleUser || msgs[1].Role != db.RoleAssistant {
		t.Errorf("log = %+v", msgs)
	}
	sess, _ := store.Session(id)
	if sess.Title != "Write hello world" {
		t.Errorf("Title = %q", sess.Title)
	}
	if m := store.Memory(); len(m.History) != 1 {
		t.Errorf("memory history = %v", m.History)
	}
	a := store.Analytics()
	if a.MessagesSent != 1 || a.ResponsesReceived != 1 || a.FilesCreated != 1 {
		t.Errorf("analytics = %+v", a)
	}
}

func TestSendMessage_IncludesPriorTurns(t *testing.T) {
	replies := []string{"first answer", "second answer"}
	call := 0
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			r := replies[call]
			call++
			return r, nil
		},
	}
	service, store, _ := newTestService(testutil.NewTestSettings(), provider)
	id := store.CurrentID()

	service.SendMessage(context.Background(), id, "q1", ModeChat)
	service.SendMessage(context.Background(), id, "q2", ModeChat)

	req := provider.LastRequest()
	var roles []string
	for _, m := range req.Messages {
		roles = append(roles, m.Role)
	}
	if strings.Join(roles, ",") != "system,user,assistant,user" {
		t.Errorf("roles = %v", roles)
	}
	if req.Messages[3].Content != "q2" {
		t.Errorf("last message = %q, want q2", req.Messages[3].Content)
	}
}

func TestSendMessage_FailureRenderedIntoLog(t *testing.T) {
	provider := &testutil.MockProvider{}
	settings := testutil.NewTestSettings()
	settings.APIKey = ""
	service, store, _ := newTestService(settings, provider)
	id := store.CurrentID()

	result, err := service.SendMessage(context.Background(), id, "hello", ModeChat)
	var configErr *llm.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("SendMessage() error = %v, want *ConfigError", err)
	}
	if result == nil || result.Reply.Role != db.RoleAssistant {
		t.Fatalf("result = %+v, want rendered error reply", result)
	}
	if !strings.Contains(result.Reply.Content, "ConfigError") || !strings.Contains(result.Reply.Content, "API key") {
		t.Errorf("error message = %q", result.Reply.Content)
	}
	if store.Analytics().Errors != 1 {
		t.Error("expected error counter to increase")
	}
}

func TestSendMessage_FailedTurnNotReplayed(t *testing.T) {
	call := 0
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			call++
			if call == 1 {
				return "", &llm.TransportError{Provider: "mock", StatusCode: 502}
			}
			return "ok", nil
		},
	}
	service, store, _ := newTestService(testutil.NewTestSettings(), provider)
	id := store.CurrentID()

	result, err := service.SendMessage(context.Background(), id, "q1", ModeChat)
	if err == nil {
		t.Fatal("SendMessage() expected an error on the first call")
	}
	if !result.Reply.Notice {
		t.Errorf("rendered error should be a notice: %+v", result.Reply)
	}
	if _, err := service.SendMessage(context.Background(), id, "q2", ModeChat); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	req := provider.LastRequest()
	if len(req.Messages) != 2 || req.Messages[1].Content != "q2" {
		t.Fatalf("second request = %+v, want system and q2 only", req.Messages)
	}
	for _, m := range req.Messages {
		if strings.Contains(m.Content, "TransportError") || m.Content == "q1" {
			t.Errorf("failed turn leaked into history: %q", m.Content)
		}
	}
}

func TestSendMessage_UnknownSession(t *testing.T) {
	service, _, _ := newTestService(testutil.NewTestSettings(), &testutil.MockProvider{})
	if _, err := service.SendMessage(context.Background(), "missing", "x", ModeChat); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("SendMessage() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRegenerate_ReplacesInPlace(t *testing.T) {
	replies := []string{"first", "second", "regenerated"}
	call := 0
	provider := &testutil.MockProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (string, error) {
			r := replies[call]
			call++
			return r, nil
		},
	}
	service, store, _ := newTestService(testutil.NewTestSettings(), provider)
	id := store.CurrentID()

	first, _ := service.SendMessage(context.Background(), id, "q1", ModeChat)
	service.SendMessage(context.Background(), id, "q2", ModeChat)

	msg, err := service.Regenerate(context.Background(), id, first.Reply.ID, ModeChat)
	if err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if msg.Content != "regenerated" {
		t.Errorf("Content = %q", msg.Content)
	}

	req := provider.LastRequest()
	if len(req.Messages) != 2 || req.Messages[1].Content != "q1" {
		t.Errorf("regenerate prompt = %+v, want system + q1 only", req.Messages)
	}

	msgs, _ := store.Messages(id)
	if len(msgs) != 4 || msgs[1].ID != first.Reply.ID || msgs[1].Content != "regenerated" {
		t.Errorf("log = %+v", msgs)
	}
}

func TestRegenerate_Errors(t *testing.T) {
	service, store, _ := newTestService(testutil.NewTestSettings(), &testutil.MockProvider{})
	id := store.CurrentID()
	user, _ := store.Append(id, db.RoleUser, "q")

	if _, err := service.Regenerate(context.Background(), id, user.ID, ModeChat); !errors.Is(err, ErrNotAssistantMessage) {
		t.Errorf("Regenerate(user msg) error = %v", err)
	}
	if _, err := service.Regenerate(context.Background(), id, "missing", ModeChat); !errors.Is(err, session.ErrMessageNotFound) {
		t.Errorf("Regenerate(missing) error = %v", err)
	}

	other := store.CreateSession("")
	lone, _ := store.Append(other.ID, db.RoleAssistant, "welcome")
	if _, err := service.Regenerate(context.Background(), other.ID, lone.ID, ModeChat); !errors.Is(err, ErrNoPrompt) {
		t.Errorf("Regenerate(no prompt) error = %v", err)
	}
}
