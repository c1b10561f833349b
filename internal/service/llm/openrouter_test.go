package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompatibleProvider_Complete(t *testing.T) {
	var gotBody chatRequest
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"Hello!"}}],"usage":{"total_tokens":7}}`))
	}))
	defer srv.Close()

	p := NewCompatibleProvider(srv.URL+"/v1/", "sk-test", srv.Client())
	text, err := p.Complete(context.Background(), CompletionRequest{
		Model:            "gpt-test",
		Messages:         []Message{{Role: "system", Content: "sys"}, {Role: "user", Content: "hi"}},
		Temperature:      0.7,
		TopP:             0.9,
		MaxTokens:        256,
		PresencePenalty:  0.1,
		FrequencyPenalty: 0.2,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "Hello!" {
		t.Errorf("Complete() = %q, want Hello!", text)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q, want /v1/chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "gpt-test" || gotBody.TopP != 0.9 || gotBody.MaxTokens != 256 || gotBody.Stream {
		t.Errorf("request body = %+v", gotBody)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestCompatibleProvider_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	p := NewCompatibleProvider(srv.URL, "sk", srv.Client())
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m"})

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if transportErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", transportErr.StatusCode)
	}
	if Hint(err) != "Check your API key." {
		t.Errorf("Hint() = %q", Hint(err))
	}
}

func TestCompatibleProvider_EmptyResponse(t *testing.T) {
	tests := map[string]string{
		"no choices":    `{"choices":[]}`,
		"blank content": `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`,
		"blank everywhere": `{"choices":[{"message":{"content":""},"text":" "}],"output":""}`,
		"unknown shape":    `{"result":{"value":"x"}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewCompatibleProvider(srv.URL, "sk", srv.Client()).Complete(context.Background(), CompletionRequest{})
			var emptyErr *EmptyResponseError
			if !errors.As(err, &emptyErr) {
				t.Errorf("error = %v, want *EmptyResponseError", err)
			}
		})
	}
}

func TestCompatibleProvider_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "chat message", body: `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`, want: "hello"},
		{name: "legacy completion text", body: `{"choices":[{"text":"legacy text"}]}`, want: "legacy text"},
		{name: "delta content", body: `{"choices":[{"delta":{"content":"streamed"}}]}`, want: "streamed"},
		{name: "later choice", body: `{"choices":[{"message":{"content":""}},{"message":{"content":"second choice"}}]}`, want: "second choice"},
		{name: "content parts", body: `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, want: "ab"},
		{name: "null content falls through to text", body: `{"choices":[{"message":{"content":null},"text":"fallback"}]}`, want: "fallback"},
		{name: "flat output", body: `{"output":"flat output"}`, want: "flat output"},
		{name: "flat response", body: `{"response":"generated"}`, want: "generated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewCompatibleProvider(srv.URL, "sk", srv.Client()).Complete(context.Background(), CompletionRequest{})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Complete() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompatibleProvider_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewCompatibleProvider(url, "sk", nil).Complete(context.Background(), CompletionRequest{})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || transportErr.StatusCode != 0 {
		t.Fatalf("error = %v, want network *TransportError", err)
	}
	if !IsRetryable(err) {
		t.Error("network errors should be retryable")
	}
}

func TestOpenRouterProvider_Headers(t *testing.T) {
	var referer, title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "sk", "http://localhost:3000", "Chat Workspace", srv.Client())
	if _, err := p.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if referer != "http://localhost:3000" || title != "Chat Workspace" {
		t.Errorf("headers = %q, %q", referer, title)
	}
	if p.Name() != "openrouter" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestOllamaProvider_Complete(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"pong"},"done":true}`))
	}))
	defer srv.Close()

	text, err := NewOllamaProvider(srv.URL, srv.Client()).Complete(context.Background(), CompletionRequest{
		Model:     "llama3",
		Messages:  []Message{{Role: "user", Content: "ping"}},
		MaxTokens: 64,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "pong" {
		t.Errorf("Complete() = %q, want pong", text)
	}
	if got.Stream || got.Options == nil || got.Options.NumPredict == nil || *got.Options.NumPredict != 64 {
		t.Errorf("request = %+v", got)
	}
}
