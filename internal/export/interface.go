package export

import (
	"chat-workspace/internal/repository/db"
	"fmt"
	"io"
	"strings"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session *db.Session, w io.Writer) error
	Extension() string
	ContentType() string
}

// Formats lists the accepted format names
var Formats = []string{"json", "jsonl", "yaml", "md"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// FileName returns a download name for the session in the exporter's format
func FileName(session *db.Session, e Exporter) string {
	return fmt.Sprintf("session-%s.%s", session.ID, e.Extension())
}

// visibleMessages drops transient thinking placeholders
func visibleMessages(msgs []db.Message) []db.Message {
	out := make([]db.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != db.RoleThinking {
			out = append(out, m)
		}
	}
	return out
}
