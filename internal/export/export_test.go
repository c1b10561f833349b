package export

import (
	"bytes"
	"chat-workspace/internal/repository/db"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func testSession() *db.Session {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &db.Session{
		ID:        "s1",
		Title:     "Calculator",
		CreatedAt: ts,
		UpdatedAt: ts,
		Messages: []db.Message{
			{ID: "m1", Role: db.RoleUser, Content: "Build a **calculator**", Timestamp: ts},
			{ID: "m2", Role: db.RoleThinking, Content: "Thinking...", Timestamp: ts},
			{ID: "m3", Role: db.RoleAssistant, Content: "Done:\n```html\n**kept**\n```", Timestamp: ts},
		},
		Files: []db.FileArtifact{{Name: "index.html", Content: "<h1>Calc</h1>", Language: "html", LastModified: ts}},
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{format: "json", wantExt: "json"},
		{format: "", wantExt: "json"},
		{format: "jsonl", wantExt: "jsonl"},
		{format: "YAML", wantExt: "yaml"},
		{format: "markdown", wantExt: "md"},
		{format: "pdf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if err == nil && e.Extension() != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", e.Extension(), tt.wantExt)
			}
		})
	}
}

func TestJSONExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got db.Session
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Errorf("messages = %d, want 2 (thinking dropped)", len(got.Messages))
	}
	if len(got.Files) != 1 || got.Files[0].Name != "index.html" {
		t.Errorf("files = %+v", got.Files)
	}
}

func TestJSONLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"role":"user"`) || !strings.Contains(lines[1], `"role":"assistant"`) {
		t.Errorf("lines out of order: %v", lines)
	}
}

func TestJSONLExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(&db.Session{ID: "empty"}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestYAMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var got yamlSession
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if got.Title != "Calculator" || len(got.Messages) != 2 || got.Files[0].Content != "<h1>Calc</h1>" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(testSession(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Calculator",
		"**Messages:** 2",
		`Build a \*\*calculator\*\*`,
		"**kept**",
		"### index.html",
		"```html\n<h1>Calc</h1>\n```",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Thinking...") {
		t.Error("thinking placeholder should not be exported")
	}
}

func TestFenceFor(t *testing.T) {
	if got := fenceFor("plain"); got != "```" {
		t.Errorf("fenceFor(plain) = %q", got)
	}
	if got := fenceFor("has ```` four"); got != "`````" {
		t.Errorf("fenceFor(four) = %q", got)
	}
}
