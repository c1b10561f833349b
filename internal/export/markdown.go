package export

import (
	"chat-workspace/internal/repository/db"
	"fmt"
	"io"
	"strings"
	"time"
)

// MarkdownExporter exports sessions in Markdown format
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *db.Session, w io.Writer) error {
	msgs := visibleMessages(session.Messages)

	_, _ = fmt.Fprintf(w, "# %s\n\n", session.Title)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(msgs))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range msgs {
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n%s\n\n", roleLabel(msg.Role), msg.Timestamp.Format(time.RFC3339), escapeMarkdown(msg.Content))
		if i < len(msgs)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	if len(session.Files) > 0 {
		_, _ = fmt.Fprintf(w, "## Files\n\n")
		for _, f := range session.Files {
			fence := fenceFor(f.Content)
			_, _ = fmt.Fprintf(w, "### %s\n\n%s%s\n%s\n%s\n\n", f.Name, fence, f.Language, f.Content, fence)
		}
	}

	return nil
}

func roleLabel(role string) string {
	switch role {
	case db.RoleUser:
		return "User"
	case db.RoleAssistant:
		return "Assistant"
	case db.RoleSystem:
		return "System"
	default:
		return role
	}
}

// fenceFor returns a backtick fence longer than any run inside content
func fenceFor(content string) string {
	longest, run := 0, 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

// escapeMarkdown escapes emphasis markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		lines[i] = strings.ReplaceAll(line, "__", "\\_\\_")
	}

	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

func (e *MarkdownExporter) ContentType() string {
	return "text/markdown; charset=utf-8"
}
